package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChannelStateReader is a mock implementation of integration.ChannelStateReader
type MockChannelStateReader struct {
	mock.Mock
}

func (m *MockChannelStateReader) FindOrder(ctx context.Context, orgID uuid.UUID, platform integration.Platform, orderID string) (*integration.ChannelOrder, error) {
	args := m.Called(ctx, orgID, platform, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ChannelOrder), args.Error(1)
}

func (m *MockChannelStateReader) FindInventory(ctx context.Context, orgID uuid.UUID, platform integration.Platform, sku string) (*integration.ChannelInventory, error) {
	args := m.Called(ctx, orgID, platform, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ChannelInventory), args.Error(1)
}

func newChannelStateRouter(reader integration.ChannelStateReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewChannelStateHandler(reader).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestChannelStateHandler_GetOrder(t *testing.T) {
	orgID := uuid.New()
	reader := new(MockChannelStateReader)
	reader.On("FindOrder", mock.Anything, orgID, integration.PlatformShopee, "O-1").Return(&integration.ChannelOrder{
		OrganizationID: orgID,
		Platform:       integration.PlatformShopee,
		OrderID:        "O-1",
		Status:         "SHIPPED",
		LastEventKind:  integration.EventKindOrderStatusChanged,
		LastEventID:    "evt-2",
	}, nil)

	w := get(newChannelStateRouter(reader), "/api/v1/channel-orders/shopee/O-1?organization_id="+orgID.String())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                     `json:"success"`
		Data    integration.ChannelOrder `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "SHIPPED", resp.Data.Status)
	assert.Equal(t, "evt-2", resp.Data.LastEventID)
	reader.AssertExpectations(t)
}

func TestChannelStateHandler_GetInventory(t *testing.T) {
	orgID := uuid.New()
	reader := new(MockChannelStateReader)
	reader.On("FindInventory", mock.Anything, orgID, integration.PlatformMomo, "SKU-1").Return(&integration.ChannelInventory{
		OrganizationID: orgID,
		Platform:       integration.PlatformMomo,
		SKU:            "SKU-1",
		Quantity:       decimal.RequireFromString("7.5"),
		LastEventID:    "inv-2",
	}, nil)

	w := get(newChannelStateRouter(reader), "/api/v1/channel-inventory/momo/SKU-1?organization_id="+orgID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":"7.5"`)
	reader.AssertExpectations(t)
}

func TestChannelStateHandler_Errors(t *testing.T) {
	orgID := uuid.NewString()

	t.Run("validation", func(t *testing.T) {
		reader := new(MockChannelStateReader)
		r := newChannelStateRouter(reader)
		for _, path := range []string{
			"/api/v1/channel-orders/shopee/O-1",
			"/api/v1/channel-orders/shopee/O-1?organization_id=not-a-uuid",
			"/api/v1/channel-orders/amazon/O-1?organization_id=" + orgID,
			"/api/v1/channel-inventory/lazada/SKU-1?organization_id=" + orgID,
		} {
			w := get(r, path)
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
			assert.Contains(t, w.Body.String(), dto.ErrCodeValidation, path)
		}
		reader.AssertNotCalled(t, "FindOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		reader.AssertNotCalled(t, "FindInventory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown key", func(t *testing.T) {
		reader := new(MockChannelStateReader)
		reader.On("FindOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, integration.ErrChannelStateNotFound)

		w := get(newChannelStateRouter(reader), "/api/v1/channel-orders/shopline/O-404?organization_id="+orgID)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		reader := new(MockChannelStateReader)
		reader.On("FindInventory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		w := get(newChannelStateRouter(reader), "/api/v1/channel-inventory/momo/SKU-1?organization_id="+orgID)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInternal)
	})
}
