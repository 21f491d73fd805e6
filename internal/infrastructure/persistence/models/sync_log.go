package models

import (
	"encoding/json"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncLogModel is the persistence model for SyncLogEntry.
// Sequence is the primary key so the database assigns a strictly increasing
// number that breaks created_at ties.
type SyncLogModel struct {
	Sequence        int64                     `gorm:"primaryKey;autoIncrement"`
	ID              uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex"`
	OrganizationID  uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_log_org_created,priority:1"`
	Platform        integration.Platform      `gorm:"type:varchar(20);not null;index:idx_sync_log_platform_status,priority:1"`
	Action          string                    `gorm:"type:varchar(64);not null"`
	EntityType      integration.EntityType    `gorm:"type:varchar(20);not null"`
	EntityID        *string                   `gorm:"type:varchar(128)"`
	ExternalEventID string                    `gorm:"type:varchar(255);index"`
	Status          integration.SyncLogStatus `gorm:"type:varchar(20);not null;index:idx_sync_log_platform_status,priority:2"`
	Message         string                    `gorm:"type:text"`
	RequestData     []byte                    `gorm:"type:jsonb"`
	ResponseData    []byte                    `gorm:"type:jsonb"`
	ErrorDetails    []byte                    `gorm:"type:jsonb"`
	Metadata        []byte                    `gorm:"type:jsonb"`
	CreatedAt       time.Time                 `gorm:"not null;index:idx_sync_log_org_created,priority:2"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry
func (m *SyncLogModel) ToDomain() integration.SyncLogEntry {
	e := integration.SyncLogEntry{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		Platform:        m.Platform,
		Action:          m.Action,
		EntityType:      m.EntityType,
		EntityID:        m.EntityID,
		ExternalEventID: m.ExternalEventID,
		Status:          m.Status,
		Message:         m.Message,
		RequestData:     rawJSON(m.RequestData),
		ResponseData:    rawJSON(m.ResponseData),
		ErrorDetails:    rawJSON(m.ErrorDetails),
		Sequence:        m.Sequence,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		var md map[string]string
		if err := json.Unmarshal(m.Metadata, &md); err == nil {
			e.Metadata = md
		}
	}
	return e
}

// SyncLogModelFromDomain converts a domain entry to its persistence model.
// Sequence is left for the database to assign.
func SyncLogModelFromDomain(e *integration.SyncLogEntry) (*SyncLogModel, error) {
	m := &SyncLogModel{
		ID:              e.ID,
		OrganizationID:  e.OrganizationID,
		Platform:        e.Platform,
		Action:          e.Action,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		ExternalEventID: e.ExternalEventID,
		Status:          e.Status,
		Message:         e.Message,
		RequestData:     jsonColumn(e.RequestData),
		ResponseData:    jsonColumn(e.ResponseData),
		ErrorDetails:    jsonColumn(e.ErrorDetails),
		CreatedAt:       e.CreatedAt,
	}
	if len(e.Metadata) > 0 {
		md, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		m.Metadata = md
	}
	return m, nil
}

// jsonColumn keeps valid JSON and stores anything else as a JSON string, so
// the jsonb column never rejects an entry
func jsonColumn(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return raw
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
