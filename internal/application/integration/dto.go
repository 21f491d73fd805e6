package integration

import (
	"encoding/json"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncLogQuery is the query of the sync log listing endpoint
type SyncLogQuery struct {
	OrganizationID string     `form:"organization_id" binding:"required,uuid"`
	Platform       string     `form:"platform" binding:"omitempty,platform"`
	Status         string     `form:"status" binding:"omitempty,oneof=success error skipped"`
	From           *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To             *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit          int        `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToFilter converts the query into a domain filter
func (q SyncLogQuery) ToFilter() (integration.SyncLogFilter, error) {
	orgID, err := uuid.Parse(q.OrganizationID)
	if err != nil {
		return integration.SyncLogFilter{}, integration.ErrSyncLogInvalidFilter
	}
	f := integration.SyncLogFilter{
		OrganizationID: orgID,
		Platform:       integration.Platform(q.Platform),
		Status:         integration.SyncLogStatus(q.Status),
		From:           q.From,
		To:             q.To,
		Limit:          q.Limit,
	}
	if err := f.Normalize(); err != nil {
		return integration.SyncLogFilter{}, err
	}
	return f, nil
}

// SyncLogResponse is the API representation of a sync log entry
type SyncLogResponse struct {
	ID              uuid.UUID         `json:"id"`
	OrganizationID  uuid.UUID         `json:"org_id"`
	Platform        string            `json:"platform"`
	Action          string            `json:"action"`
	EntityType      string            `json:"entity_type"`
	EntityID        *string           `json:"entity_id"`
	ExternalEventID string            `json:"external_event_id,omitempty"`
	Status          string            `json:"status"`
	Message         string            `json:"message"`
	RequestData     json.RawMessage   `json:"request_data,omitempty"`
	ResponseData    json.RawMessage   `json:"response_data,omitempty"`
	ErrorDetails    json.RawMessage   `json:"error_details,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ToSyncLogResponse converts a domain entry into its API representation
func ToSyncLogResponse(e *integration.SyncLogEntry) SyncLogResponse {
	return SyncLogResponse{
		ID:              e.ID,
		OrganizationID:  e.OrganizationID,
		Platform:        e.Platform.String(),
		Action:          e.Action,
		EntityType:      e.EntityType.String(),
		EntityID:        e.EntityID,
		ExternalEventID: e.ExternalEventID,
		Status:          e.Status.String(),
		Message:         e.Message,
		RequestData:     e.RequestData,
		ResponseData:    e.ResponseData,
		ErrorDetails:    e.ErrorDetails,
		Metadata:        e.Metadata,
		CreatedAt:       e.CreatedAt,
	}
}
