// Package orgscope provides organization scoping and append-only guards for GORM.
//
// Every table written by the ingestion pipeline carries an organization_id
// column. Queries go through Organization so a missing organization fails the
// statement instead of reading across tenants.
//
// Usage:
//
//	db.WithContext(ctx).Scopes(orgscope.Organization(orgID)).Find(&entries)
package orgscope

import (
	"context"
	"errors"

	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the organization column of every scoped table
const Column = "organization_id"

// ErrOrganizationRequired is returned when a scoped statement has no organization
var ErrOrganizationRequired = errors.New("orgscope: organization_id is required")

// ErrInvalidOrganizationID is returned when the organization in context is not a UUID
var ErrInvalidOrganizationID = errors.New("orgscope: invalid organization_id format")

// Organization filters the statement to one organization
func Organization(orgID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if orgID == uuid.Nil {
			_ = db.AddError(ErrOrganizationRequired)
			return db
		}
		return db.Where(Column+" = ?", orgID)
	}
}

// FromContext scopes the statement to the organization stored in ctx by
// logger.WithOrganizationID
func FromContext(ctx context.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		raw := logger.GetOrganizationID(ctx)
		if raw == "" {
			_ = db.AddError(ErrOrganizationRequired)
			return db
		}
		orgID, err := uuid.Parse(raw)
		if err != nil {
			_ = db.AddError(ErrInvalidOrganizationID)
			return db
		}
		return Organization(orgID)(db)
	}
}
