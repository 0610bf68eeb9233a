// Package leave implements annual leave requests, entitlements and the
// quota rules that tie them together.
package leave

import (
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// USERS AND CALLERS
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool { return r == RoleEmployee || r == RoleAdmin }

// Caller is the authenticated identity an operation runs on behalf of.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

const (
	DefaultQuotaDays          = 12
	DefaultCarriedForwardDays = 0
)

// Entitlement is a user's leave allowance for one calendar year. At most one
// exists per (UserID, Year).
type Entitlement struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Year               int       `json:"year"`
	QuotaDays          int       `json:"quota_days"`
	CarriedForwardDays int       `json:"carried_forward_days"`
	CreatedBy          *string   `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	User *User `json:"user,omitempty"`
}

// DefaultEntitlement is what a user gets the first time a year is touched.
// CreatedBy stays nil: nobody authored it.
func DefaultEntitlement(userID string, year int) Entitlement {
	return Entitlement{
		UserID:             userID,
		Year:               year,
		QuotaDays:          DefaultQuotaDays,
		CarriedForwardDays: DefaultCarriedForwardDays,
	}
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Active statuses count against overlap.
func (s Status) Active() bool { return s == StatusPending || s == StatusApproved }

// Decision is one of the two statuses an administrator may set.
func (s Status) Decision() bool { return s == StatusApproved || s == StatusRejected }

type LeaveRequest struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	StartDate    generic.TimePoint `json:"start_date"`
	EndDate      generic.TimePoint `json:"end_date"`
	RequestDays  int               `json:"request_days"`
	Reason       string            `json:"reason"`
	Status       Status            `json:"status"`
	Attachment   *string           `json:"attachment"`
	DecidedBy    *string           `json:"decided_by"`
	DecidedAt    *time.Time        `json:"decided_at"`
	DecisionNote *string           `json:"decision_note"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	User    *User `json:"user,omitempty"`
	Decider *User `json:"decided_by_user,omitempty"`
}

// Year is the calendar year the request counts against.
func (r LeaveRequest) Year() int { return r.StartDate.Year() }

func (r LeaveRequest) Period() generic.Period {
	return generic.Period{Start: r.StartDate, End: r.EndDate}
}

// =============================================================================
// FILTERS
// =============================================================================

type RequestFilter struct {
	ID     string
	UserID string
	Status Status
	Year   int
	generic.Pagination
}

type EntitlementFilter struct {
	ID        string
	UserName  string
	Year      int
	CreatedBy string
	generic.Pagination
}
