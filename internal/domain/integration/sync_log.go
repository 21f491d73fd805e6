package integration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncLogStatus represents the outcome recorded for a processing attempt
// ---------------------------------------------------------------------------

// SyncLogStatus represents the outcome recorded for a processing attempt
type SyncLogStatus string

const (
	SyncLogStatusSuccess SyncLogStatus = "success"
	SyncLogStatusError   SyncLogStatus = "error"
	SyncLogStatusSkipped SyncLogStatus = "skipped"
)

// IsValid returns true if the status is valid
func (s SyncLogStatus) IsValid() bool {
	switch s {
	case SyncLogStatusSuccess, SyncLogStatusError, SyncLogStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncLogStatus
func (s SyncLogStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncLogEntry
// ---------------------------------------------------------------------------

// SyncLogEntry is an immutable record of one attempt to process a SyncEvent.
// Entries are only ever appended; retries and duplicate deliveries add new
// entries.
type SyncLogEntry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Platform       Platform
	// Action is the verb describing which handler ran
	Action     string
	EntityType EntityType
	// EntityID is nil when the entity could not be identified
	EntityID        *string
	ExternalEventID string
	Status          SyncLogStatus
	Message         string
	RequestData     json.RawMessage
	ResponseData    json.RawMessage
	ErrorDetails    json.RawMessage
	Metadata        map[string]string
	// Sequence is assigned by the sink and increases with every append
	Sequence  int64
	CreatedAt time.Time
}

// SyncLogParams holds the fields of a new SyncLogEntry
type SyncLogParams struct {
	OrganizationID  uuid.UUID
	Platform        Platform
	Action          string
	EntityType      EntityType
	EntityID        *string
	ExternalEventID string
	Status          SyncLogStatus
	Message         string
	RequestData     json.RawMessage
	ResponseData    json.RawMessage
	ErrorDetails    json.RawMessage
	Metadata        map[string]string
}

// NewSyncLogEntry creates a validated SyncLogEntry. CreatedAt is left for the
// sink to assign.
func NewSyncLogEntry(p SyncLogParams) (*SyncLogEntry, error) {
	if p.OrganizationID == uuid.Nil {
		return nil, ErrInvalidOrganizationID
	}
	if !p.Platform.IsValid() || p.Action == "" || !p.EntityType.IsValid() || !p.Status.IsValid() {
		return nil, ErrSyncLogInvalidEntry
	}
	if p.EntityID != nil && *p.EntityID == "" {
		p.EntityID = nil
	}
	return &SyncLogEntry{
		ID:              uuid.New(),
		OrganizationID:  p.OrganizationID,
		Platform:        p.Platform,
		Action:          p.Action,
		EntityType:      p.EntityType,
		EntityID:        p.EntityID,
		ExternalEventID: p.ExternalEventID,
		Status:          p.Status,
		Message:         p.Message,
		RequestData:     p.RequestData,
		ResponseData:    p.ResponseData,
		ErrorDetails:    p.ErrorDetails,
		Metadata:        p.Metadata,
	}, nil
}

// ---------------------------------------------------------------------------
// SyncLogFilter
// ---------------------------------------------------------------------------

const (
	// DefaultSyncLogLimit is the page size used when none is given
	DefaultSyncLogLimit = 50
	// MaxSyncLogLimit caps the page size of a single query
	MaxSyncLogLimit = 500
)

// SyncLogFilter selects log entries of one organization
type SyncLogFilter struct {
	OrganizationID uuid.UUID
	Platform       Platform
	Status         SyncLogStatus
	From           *time.Time
	To             *time.Time
	Limit          int
}

// Normalize validates the filter and applies the default limit
func (f *SyncLogFilter) Normalize() error {
	if f.OrganizationID == uuid.Nil {
		return ErrSyncLogInvalidFilter
	}
	if f.Platform != "" && !f.Platform.IsValid() {
		return ErrSyncLogInvalidFilter
	}
	if f.Status != "" && !f.Status.IsValid() {
		return ErrSyncLogInvalidFilter
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return ErrSyncLogInvalidFilter
	}
	if f.Limit <= 0 {
		f.Limit = DefaultSyncLogLimit
	}
	if f.Limit > MaxSyncLogLimit {
		f.Limit = MaxSyncLogLimit
	}
	return nil
}

// SyncLogRepository is the append-only sink for sync log entries
type SyncLogRepository interface {
	// Append stores a new entry and assigns CreatedAt and Sequence.
	// Entries of one organization are retrievable in append order.
	Append(ctx context.Context, entry *SyncLogEntry) error

	// List returns entries matching the filter, newest first
	List(ctx context.Context, filter SyncLogFilter) ([]SyncLogEntry, error)
}
