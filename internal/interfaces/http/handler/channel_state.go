package handler

import (
	"errors"
	"net/http"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/interfaces/http/dto"
	"github.com/erp/commercesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type organizationQuery struct {
	OrganizationID string `form:"organization_id" binding:"required,uuid"`
}

type channelOrderURI struct {
	Platform string `uri:"platform" binding:"required,platform"`
	OrderID  string `uri:"order_id" binding:"required,max=128"`
}

type channelInventoryURI struct {
	Platform string `uri:"platform" binding:"required,platform"`
	SKU      string `uri:"sku" binding:"required,max=128"`
}

// ChannelStateHandler serves the state written by the reconciliation surface
type ChannelStateHandler struct {
	BaseHandler
	reader integration.ChannelStateReader
}

// NewChannelStateHandler creates a new ChannelStateHandler
func NewChannelStateHandler(reader integration.ChannelStateReader) *ChannelStateHandler {
	middleware.SetupValidator()
	return &ChannelStateHandler{reader: reader}
}

// GetOrder handles GET /api/v1/channel-orders/:platform/:order_id
func (h *ChannelStateHandler) GetOrder(c *gin.Context) {
	var uri channelOrderURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	orgID, ok := h.bindOrganization(c)
	if !ok {
		return
	}

	order, err := h.reader.FindOrder(c.Request.Context(), orgID, integration.Platform(uri.Platform), uri.OrderID)
	if err != nil {
		h.lookupError(c, err, "channel order")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(order))
}

// GetInventory handles GET /api/v1/channel-inventory/:platform/:sku
func (h *ChannelStateHandler) GetInventory(c *gin.Context) {
	var uri channelInventoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	orgID, ok := h.bindOrganization(c)
	if !ok {
		return
	}

	row, err := h.reader.FindInventory(c.Request.Context(), orgID, integration.Platform(uri.Platform), uri.SKU)
	if err != nil {
		h.lookupError(c, err, "channel inventory")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(row))
}

func (h *ChannelStateHandler) bindOrganization(c *gin.Context) (uuid.UUID, bool) {
	var query organizationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(query.OrganizationID), true
}

func (h *ChannelStateHandler) lookupError(c *gin.Context, err error, what string) {
	if errors.Is(err, integration.ErrChannelStateNotFound) {
		h.ErrorWithCode(c, dto.ErrCodeNotFound, what+" not found")
		return
	}
	logger.GetGinLogger(c).Error("Failed to read "+what, zap.Error(err))
	h.InternalError(c, "failed to read "+what)
}

// RegisterRoutes registers the channel state endpoints on rg
func (h *ChannelStateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/channel-orders/:platform/:order_id", h.GetOrder)
	rg.GET("/channel-inventory/:platform/:sku", h.GetInventory)
}
