// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - sync_log.go: append-only sync log entries
//   - platform_connection.go: shop to organization bindings
//   - reconciliation.go: applied event markers and channel order/inventory state
package models
