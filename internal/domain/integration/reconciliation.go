package integration

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ApplyOutcome represents the result of handing an event to authoritative state
// ---------------------------------------------------------------------------

// ApplyOutcome represents the result of handing an event to authoritative state
type ApplyOutcome string

const (
	// ApplyOutcomeApplied means the effect was written for the first time
	ApplyOutcomeApplied ApplyOutcome = "applied"
	// ApplyOutcomeAlreadyApplied means the external event was seen before and nothing changed
	ApplyOutcomeAlreadyApplied ApplyOutcome = "already_applied"
	// ApplyOutcomeRejected means the store refused the effect
	ApplyOutcomeRejected ApplyOutcome = "rejected"
)

// String returns the string representation of ApplyOutcome
func (o ApplyOutcome) String() string {
	return string(o)
}

// ApplyResult is returned by every ReconciliationSurface operation
type ApplyResult struct {
	Outcome ApplyOutcome
	// Reason is set when Outcome is Rejected
	Reason string
}

// Applied returns an ApplyResult with outcome Applied
func Applied() ApplyResult {
	return ApplyResult{Outcome: ApplyOutcomeApplied}
}

// AlreadyApplied returns an ApplyResult with outcome AlreadyApplied
func AlreadyApplied() ApplyResult {
	return ApplyResult{Outcome: ApplyOutcomeAlreadyApplied}
}

// Rejected returns an ApplyResult with outcome Rejected and the given reason
func Rejected(reason string) ApplyResult {
	return ApplyResult{Outcome: ApplyOutcomeRejected, Reason: reason}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// OrderEventCommand asks the store to apply an order lifecycle event
type OrderEventCommand struct {
	OrganizationID  uuid.UUID
	Platform        Platform
	ExternalEventID string
	Kind            EventKind
	// EntityID is the platform order identifier
	EntityID    string
	OrderNumber string
	Status      string
	Payload     json.RawMessage
}

// Validate checks the command carries an idempotency key and a target order
func (c OrderEventCommand) Validate() error {
	if c.OrganizationID == uuid.Nil || !c.Platform.IsValid() ||
		strings.TrimSpace(c.ExternalEventID) == "" || c.Kind.Family() != HandlerFamilyOrderLifecycle {
		return ErrReconciliationInvalidCommand
	}
	return nil
}

// InventoryDeltaCommand asks the store to set the stock level of a SKU
type InventoryDeltaCommand struct {
	OrganizationID  uuid.UUID
	Platform        Platform
	ExternalEventID string
	SKU             string
	NewQuantity     decimal.Decimal
}

// Validate checks the command carries an idempotency key and a SKU
func (c InventoryDeltaCommand) Validate() error {
	if c.OrganizationID == uuid.Nil || !c.Platform.IsValid() ||
		strings.TrimSpace(c.ExternalEventID) == "" {
		return ErrReconciliationInvalidCommand
	}
	return nil
}

// ReconciliationSurface is the port downstream order/inventory stores implement.
// Both operations are idempotent upserts keyed on
// (organization, platform, external event ID): calling them twice with the
// same key yields Applied then AlreadyApplied.
// A returned error means the store could not be reached; business refusals are
// reported as Rejected.
type ReconciliationSurface interface {
	// ApplyOrderEvent applies an order lifecycle event
	ApplyOrderEvent(ctx context.Context, cmd OrderEventCommand) (ApplyResult, error)

	// ApplyInventoryDelta sets the absolute stock level of a SKU
	ApplyInventoryDelta(ctx context.Context, cmd InventoryDeltaCommand) (ApplyResult, error)
}

// ChannelOrder is the stored state of a platform order
type ChannelOrder struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	Platform       Platform        `json:"platform"`
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number,omitempty"`
	Status         string          `json:"status,omitempty"`
	LastEventKind  EventKind       `json:"last_event_kind"`
	LastEventID    string          `json:"last_event_id"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ChannelInventory is the stored stock level of a platform SKU
type ChannelInventory struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	Platform       Platform        `json:"platform"`
	SKU            string          `json:"sku"`
	Quantity       decimal.Decimal `json:"quantity"`
	LastEventID    string          `json:"last_event_id"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ChannelStateReader reads what the reconciliation surface has written.
// Both lookups return ErrChannelStateNotFound for an unknown key.
type ChannelStateReader interface {
	FindOrder(ctx context.Context, orgID uuid.UUID, platform Platform, orderID string) (*ChannelOrder, error)
	FindInventory(ctx context.Context, orgID uuid.UUID, platform Platform, sku string) (*ChannelInventory, error)
}

// AppliedEventKey builds the idempotency key of an external event
func AppliedEventKey(orgID uuid.UUID, platform Platform, externalEventID string) string {
	return orgID.String() + ":" + string(platform) + ":" + externalEventID
}
