package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLogParams() SyncLogParams {
	id := "O1"
	return SyncLogParams{
		OrganizationID: uuid.New(),
		Platform:       PlatformShopline,
		Action:         "webhook_order_update",
		EntityType:     EntityTypeOrder,
		EntityID:       &id,
		Status:         SyncLogStatusSuccess,
		Message:        "Order updated",
	}
}

func TestNewSyncLogEntry(t *testing.T) {
	t.Run("valid entry", func(t *testing.T) {
		entry, err := NewSyncLogEntry(validLogParams())
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.Equal(t, "O1", *entry.EntityID)
		assert.True(t, entry.CreatedAt.IsZero())
	})

	t.Run("empty entity id becomes nil", func(t *testing.T) {
		p := validLogParams()
		empty := ""
		p.EntityID = &empty
		entry, err := NewSyncLogEntry(p)
		require.NoError(t, err)
		assert.Nil(t, entry.EntityID)
	})

	t.Run("missing organization", func(t *testing.T) {
		p := validLogParams()
		p.OrganizationID = uuid.Nil
		_, err := NewSyncLogEntry(p)
		assert.ErrorIs(t, err, ErrInvalidOrganizationID)
	})

	invalid := []struct {
		name   string
		mutate func(*SyncLogParams)
	}{
		{"unknown platform", func(p *SyncLogParams) { p.Platform = "ebay" }},
		{"empty action", func(p *SyncLogParams) { p.Action = "" }},
		{"bad entity type", func(p *SyncLogParams) { p.EntityType = "customer" }},
		{"bad status", func(p *SyncLogParams) { p.Status = "pending" }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			p := validLogParams()
			tt.mutate(&p)
			_, err := NewSyncLogEntry(p)
			assert.ErrorIs(t, err, ErrSyncLogInvalidEntry)
		})
	}
}

func TestSyncLogFilter_Normalize(t *testing.T) {
	orgID := uuid.New()
	now := time.Now()
	earlier := now.Add(-time.Hour)

	t.Run("default limit", func(t *testing.T) {
		f := SyncLogFilter{OrganizationID: orgID}
		require.NoError(t, f.Normalize())
		assert.Equal(t, DefaultSyncLogLimit, f.Limit)
	})

	t.Run("caps limit", func(t *testing.T) {
		f := SyncLogFilter{OrganizationID: orgID, Limit: 10000}
		require.NoError(t, f.Normalize())
		assert.Equal(t, MaxSyncLogLimit, f.Limit)
	})

	t.Run("valid time range", func(t *testing.T) {
		f := SyncLogFilter{OrganizationID: orgID, From: &earlier, To: &now}
		assert.NoError(t, f.Normalize())
	})

	invalid := []struct {
		name   string
		filter SyncLogFilter
	}{
		{"missing organization", SyncLogFilter{}},
		{"bad platform", SyncLogFilter{OrganizationID: orgID, Platform: "ebay"}},
		{"bad status", SyncLogFilter{OrganizationID: orgID, Status: "pending"}},
		{"inverted range", SyncLogFilter{OrganizationID: orgID, From: &now, To: &earlier}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			assert.ErrorIs(t, f.Normalize(), ErrSyncLogInvalidFilter)
		})
	}
}
