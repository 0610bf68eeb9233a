/*
store.go - Audit trail types shared by every store

PURPOSE:
  Who did what, when, to which record. Audit entries are written inside
  the same database transaction as the change they describe, so a rolled
  back operation leaves no audit line behind.

APPEND-ONLY CONTRACT:
  Entries are never updated or deleted.

IMPLEMENTATIONS:
  - store/sqlstore: audit_log table (SQLite, PostgreSQL)
  - store/memory: slice guarded by the store mutex

SEE ALSO:
  - leave/store.go: Persistence contract that embeds AuditLog
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Separate from the records, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string // who performed the action
	Action    AuditAction
	SubjectID string // the record acted on
	UserID    string // the employee the record belongs to
	Payload   map[string]any
}

type AuditAction string

const (
	AuditRequestCreated     AuditAction = "request_created"
	AuditRequestApproved    AuditAction = "request_approved"
	AuditRequestRejected    AuditAction = "request_rejected"
	AuditRequestCanceled    AuditAction = "request_canceled"
	AuditEntitlementCreated AuditAction = "entitlement_created"
	AuditEntitlementUpdated AuditAction = "entitlement_updated"
	AuditUserCreated        AuditAction = "user_created"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	UserID  string
	ActorID string
	Actions []AuditAction
	Limit   int
}

// Matches reports whether e passes the filter. Used by stores that filter
// in memory.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if a == e.Action {
				return true
			}
		}
		return false
	}
	return true
}
