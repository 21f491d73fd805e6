package handler

import (
	"context"
	"errors"
	"net/http"

	appintegration "github.com/erp/commercesync/internal/application/integration"
	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/interfaces/http/dto"
	"github.com/erp/commercesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncLogLister lists sync log entries
type SyncLogLister interface {
	List(ctx context.Context, query appintegration.SyncLogQuery) ([]appintegration.SyncLogResponse, error)
}

// SyncLogHandler serves the operational sync log query
type SyncLogHandler struct {
	BaseHandler
	service SyncLogLister
}

// NewSyncLogHandler creates a new SyncLogHandler
func NewSyncLogHandler(service SyncLogLister) *SyncLogHandler {
	middleware.SetupValidator()
	return &SyncLogHandler{service: service}
}

// List handles GET /api/v1/sync-logs
func (h *SyncLogHandler) List(c *gin.Context) {
	var query appintegration.SyncLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entries, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, integration.ErrSyncLogInvalidFilter) {
			h.ErrorWithCode(c, dto.ErrCodeValidation, "invalid sync log filter")
			return
		}
		logger.GetGinLogger(c).Error("Failed to list sync logs", zap.Error(err))
		h.InternalError(c, "failed to list sync logs")
		return
	}

	limit := query.Limit
	if limit <= 0 {
		limit = integration.DefaultSyncLogLimit
	}
	c.JSON(http.StatusOK, dto.NewListResponse(entries, len(entries), limit))
}

// RegisterRoutes registers the sync log endpoints on rg
func (h *SyncLogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sync-logs", h.List)
}
