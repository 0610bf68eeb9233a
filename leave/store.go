/*
store.go - Persistence contract for the leave core

PURPOSE:
  Defines the interface between the leave rules and the database. The core
  never opens transactions itself beyond calling WithTx; every check-then-
  write sequence runs inside one Tx so concurrent callers cannot interleave.

KEY INTERFACES:
  Reader: Lookups and listings, usable in and out of a transaction
  Tx:     Reader plus row locks and writes, only valid inside WithTx
  Store:  Reader plus WithTx

MISSING ROWS:
  Single-row getters return (nil, nil) when the row does not exist. The
  core turns that into a NotFound error with the message it wants.

LOCKING:
  LockUser and LockRequest take an exclusive row lock for the rest of the
  transaction (SELECT ... FOR UPDATE on PostgreSQL, an immediate write
  transaction on SQLite, the store mutex in memory). All writers for one
  user's leave go through LockUser or LockRequest first.

IMPLEMENTATIONS:
  - store/sqlite:   SQLite via store/sqlstore
  - store/postgres: PostgreSQL via store/sqlstore
  - store/memory:   In-memory for tests and development

SEE ALSO:
  - balance.go: Reads sums through Reader
  - validator.go, decision.go: Write paths through Tx
*/
package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// READER - Lookups and listings
// =============================================================================

type Reader interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, role Role) ([]User, error)

	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	// ListRequests returns matches newest first with related users attached.
	ListRequests(ctx context.Context, filter RequestFilter) (generic.Page[LeaveRequest], error)

	GetEntitlement(ctx context.Context, userID string, year int) (*Entitlement, error)
	GetEntitlementByID(ctx context.Context, id string) (*Entitlement, error)
	ListEntitlements(ctx context.Context, filter EntitlementFilter) (generic.Page[Entitlement], error)

	// SumDays totals request_days over the user's requests with the given
	// status whose start date falls in year.
	SumDays(ctx context.Context, userID string, year int, status Status) (int, error)

	// FindOverlap returns one pending or approved request of the user whose
	// inclusive range intersects [start, end], or nil.
	FindOverlap(ctx context.Context, userID string, period generic.Period) (*LeaveRequest, error)

	QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error)
}

// =============================================================================
// TX - Locks and writes
// =============================================================================

type Tx interface {
	Reader

	LockUser(ctx context.Context, id string) (*User, error)
	LockRequest(ctx context.Context, id string) (*LeaveRequest, error)

	InsertUser(ctx context.Context, u *User) error

	// InsertEntitlement fails with generic.ErrConflict when (user, year)
	// already has an entitlement.
	InsertEntitlement(ctx context.Context, e *Entitlement) error
	// InsertEntitlementIfAbsent inserts e unless (user, year) already
	// exists and reports whether a row was written. It never fails on the
	// uniqueness constraint, so the surrounding transaction stays usable.
	InsertEntitlementIfAbsent(ctx context.Context, e *Entitlement) (bool, error)
	UpdateEntitlement(ctx context.Context, e *Entitlement) error

	InsertRequest(ctx context.Context, r *LeaveRequest) error
	// UpdateRequestStatus persists status, decision fields and updated_at.
	UpdateRequestStatus(ctx context.Context, r *LeaveRequest) error

	AppendAudit(ctx context.Context, entry generic.AuditEntry) error
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	Reader

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// AttachmentStore keeps uploaded files and hands back opaque references.
type AttachmentStore interface {
	Save(ctx context.Context, userID string, year int, filename string, content []byte) (string, error)
	Remove(ctx context.Context, ref string) error
}
