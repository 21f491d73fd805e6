package integration

import (
	"errors"
	"fmt"
)

// NormalizationErrorKind classifies why a payload could not be normalized
type NormalizationErrorKind string

const (
	// NormalizationMalformed means the body is not valid JSON or has the wrong shape
	NormalizationMalformed NormalizationErrorKind = "malformed"
	// NormalizationMissingDiscriminant means the event code or topic is absent
	NormalizationMissingDiscriminant NormalizationErrorKind = "missing_discriminant"
)

// NormalizationError is returned when a raw payload cannot become a SyncEvent.
// It is never fatal to the HTTP layer.
type NormalizationError struct {
	Platform Platform
	Kind     NormalizationErrorKind
	// Field names the missing discriminant, if any
	Field string
	// ShopID is the shop identifier when it could still be read from the envelope
	ShopID string
	Err    error
}

// NewMalformedError creates a NormalizationError of kind Malformed
func NewMalformedError(platform Platform, err error) *NormalizationError {
	return &NormalizationError{Platform: platform, Kind: NormalizationMalformed, Err: err}
}

// NewMissingDiscriminantError creates a NormalizationError of kind MissingDiscriminant
func NewMissingDiscriminantError(platform Platform, field, shopID string) *NormalizationError {
	return &NormalizationError{
		Platform: platform,
		Kind:     NormalizationMissingDiscriminant,
		Field:    field,
		ShopID:   shopID,
	}
}

// Error implements the error interface
func (e *NormalizationError) Error() string {
	switch {
	case e.Kind == NormalizationMissingDiscriminant:
		return fmt.Sprintf("integration: %s payload missing %s", e.Platform, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("integration: malformed %s payload: %v", e.Platform, e.Err)
	default:
		return fmt.Sprintf("integration: malformed %s payload", e.Platform)
	}
}

// Unwrap returns the underlying parse error
func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// AsNormalizationError extracts a NormalizationError from an error chain
func AsNormalizationError(err error) (*NormalizationError, bool) {
	var ne *NormalizationError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}
