// Package integration contains the marketplace synchronization bounded context.
// It covers inbound webhook events from commerce platforms and the audit trail
// they produce.
//
// Key concepts:
//   - SyncEvent: canonical, platform-agnostic representation of a webhook delivery
//   - SyncLogEntry: append-only record of one attempt to process a SyncEvent
//   - ReconciliationSurface: port that applies order/inventory effects idempotently
//   - TenantResolver: port mapping a platform shop identifier to an organization
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
