package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	appintegration "github.com/erp/commercesync/internal/application/integration"
	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/interfaces/http/dto"
	"github.com/erp/commercesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultShoplineVerifyToken is accepted by the shopline subscription handshake
// when no token is configured
const DefaultShoplineVerifyToken = "shopline_verify"

var platformNames = map[integration.Platform]string{
	integration.PlatformShopee:   "Shopee",
	integration.PlatformMomo:     "Momo",
	integration.PlatformShopline: "Shopline",
}

// WebhookIngester runs the ingestion pipeline for one delivery
type WebhookIngester interface {
	Ingest(ctx context.Context, req integration.WebhookRequest) (*appintegration.IngestResult, error)
}

// WebhookHandler serves the marketplace webhook endpoints. These endpoints are
// called by the marketplaces and authenticate by signature only.
type WebhookHandler struct {
	ingester            WebhookIngester
	shoplineVerifyToken string
	now                 func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingester WebhookIngester, shoplineVerifyToken string) *WebhookHandler {
	if shoplineVerifyToken == "" {
		shoplineVerifyToken = DefaultShoplineVerifyToken
	}
	return &WebhookHandler{
		ingester:            ingester,
		shoplineVerifyToken: shoplineVerifyToken,
		now:                 time.Now,
	}
}

// Receive handles POST /api/webhooks/:platform
func (h *WebhookHandler) Receive(c *gin.Context) {
	platform, ok := h.platform(c)
	if !ok {
		return
	}
	log := logger.GetGinLogger(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			middleware.AbortPayloadTooLarge(c)
			return
		}
		log.Warn("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewWebhookError("Failed to read request body"))
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), integration.WebhookRequest{
		Platform:   platform,
		Body:       body,
		Headers:    c.Request.Header.Clone(),
		ReceivedAt: h.now(),
	})
	if err != nil {
		h.handleIngestError(c, err)
		return
	}

	ack := dto.WebhookAck{Success: true}
	switch platform {
	case integration.PlatformMomo:
		ack.Received = result.SourceCode()
	case integration.PlatformShopline:
		ack.Topic = result.SourceCode()
		if ack.Topic == "" {
			ack.Topic = c.GetHeader("X-Shopline-Topic")
		}
	}
	c.JSON(http.StatusOK, ack)
}

// Status handles GET /api/webhooks/:platform. Marketplaces use it as a health
// check and to confirm a webhook subscription.
func (h *WebhookHandler) Status(c *gin.Context) {
	platform, ok := h.platform(c)
	if !ok {
		return
	}

	switch platform {
	case integration.PlatformShopline:
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")
		if token != "" && challenge != "" {
			if token != h.shoplineVerifyToken {
				c.JSON(http.StatusForbidden, gin.H{"error": dto.MsgInvalidVerifyToken})
				return
			}
			c.String(http.StatusOK, challenge)
			return
		}
	default:
		if challenge := c.Query("challenge"); challenge != "" {
			c.JSON(http.StatusOK, gin.H{"challenge": challenge})
			return
		}
	}

	status := dto.EndpointStatus{Status: platformNames[platform] + " webhook endpoint active"}
	if platform != integration.PlatformShopee {
		status.Timestamp = h.now().UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, status)
}

// platform parses the path parameter and answers 404 for platforms without
// webhook support
func (h *WebhookHandler) platform(c *gin.Context) (integration.Platform, bool) {
	platform, err := integration.ParsePlatform(c.Param("platform"))
	if err != nil || !platform.SupportsWebhooks() {
		c.JSON(http.StatusNotFound, dto.NewWebhookError(dto.MsgUnsupportedPlatform))
		return "", false
	}
	return platform, true
}

// handleIngestError maps pipeline errors to marketplace responses. Only a
// rejected signature is a client error; everything else that reaches here
// could not be logged and asks the marketplace to retry.
func (h *WebhookHandler) handleIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, integration.ErrSignatureInvalid):
		c.JSON(http.StatusUnauthorized, dto.NewWebhookError(dto.MsgInvalidSignature))
	case errors.Is(err, integration.ErrPlatformNotSupported):
		c.JSON(http.StatusNotFound, dto.NewWebhookError(dto.MsgUnsupportedPlatform))
	default:
		_ = c.Error(err)
		logger.GetGinLogger(c).Error("Webhook delivery not recorded", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewWebhookError(dto.MsgInternalError))
	}
}

// RegisterRoutes registers the webhook endpoints on rg
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	webhooks.POST("/:platform", h.Receive)
	webhooks.GET("/:platform", h.Status)
}
