/*
balance.go - Balance calculation for one user and year

PURPOSE:
  Answers "how many days can this user still be approved for this year?"
  Nothing is cached: every call re-reads the entitlement and the approved
  sum, so a decision made a millisecond ago is already reflected.

BALANCE COMPONENTS:
  Quota:           Entitlement.QuotaDays
  CarriedForward:  Entitlement.CarriedForwardDays
  Approved:        Sum of request_days over approved requests starting in the year
  Pending:         Same sum over pending requests (informational only)

AVAILABILITY CALCULATION:
  Available = Quota + CarriedForward - Approved

  Pending requests do NOT reduce availability. Two pending requests may
  each fit on their own and jointly exceed the balance; the second approval
  is what gets rejected.

  Available can go negative if an administrator lowers a quota below what
  was already approved. A negative balance means zero capacity.

EXAMPLE:
  Quota 12, carried 2, approved 10, pending 3:
    Available = 4, CanConsume(4) = true, CanConsume(5) = false

SEE ALSO:
  - entitlement.go: Get-or-create used by Available
  - validator.go, decision.go: Callers that check CanConsume
*/
package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// BALANCE
// =============================================================================

type Balance struct {
	UserID         string
	Year           int
	Quota          generic.Amount
	CarriedForward generic.Amount
	Approved       generic.Amount
	Pending        generic.Amount
}

// Entitlement is the year's total allowance.
func (b Balance) Entitlement() generic.Amount {
	return b.Quota.Add(b.CarriedForward)
}

// Available may be negative; use CanConsume for decisions.
func (b Balance) Available() generic.Amount {
	return b.Entitlement().Sub(b.Approved)
}

// Remaining is Available clamped at zero, for display.
func (b Balance) Remaining() generic.Amount {
	return b.Available().Max(b.Available().Zero())
}

// CanConsume reports whether days more can be approved.
func (b Balance) CanConsume(days int) bool {
	if days <= 0 {
		return false
	}
	return !b.Available().LessThan(generic.Days(days))
}

// =============================================================================
// CALCULATOR
// =============================================================================

// BalanceCalculator computes balances from the store. It holds no state.
type BalanceCalculator struct {
	Entitlements *EntitlementStore
}

func NewBalanceCalculator(entitlements *EntitlementStore) *BalanceCalculator {
	return &BalanceCalculator{Entitlements: entitlements}
}

// Available resolves the entitlement (creating the default on first use)
// and returns the balance inside tx. The caller must already hold the
// user's lock for the result to stay valid until commit.
func (c *BalanceCalculator) Available(ctx context.Context, tx Tx, userID string, year int) (Balance, error) {
	ent, err := c.Entitlements.GetOrCreate(ctx, tx, userID, year)
	if err != nil {
		return Balance{}, err
	}

	approved, err := tx.SumDays(ctx, userID, year, StatusApproved)
	if err != nil {
		return Balance{}, fmt.Errorf("sum approved days: %w", err)
	}

	return Balance{
		UserID:         userID,
		Year:           year,
		Quota:          generic.Days(ent.QuotaDays),
		CarriedForward: generic.Days(ent.CarriedForwardDays),
		Approved:       generic.Days(approved),
		Pending:        generic.Days(0),
	}, nil
}

// Snapshot is the read-only view: defaults stand in for a missing
// entitlement and nothing is written.
func (c *BalanceCalculator) Snapshot(ctx context.Context, r Reader, userID string, year int) (Balance, error) {
	ent, err := r.GetEntitlement(ctx, userID, year)
	if err != nil {
		return Balance{}, fmt.Errorf("get entitlement: %w", err)
	}
	if ent == nil {
		def := DefaultEntitlement(userID, year)
		ent = &def
	}

	approved, err := r.SumDays(ctx, userID, year, StatusApproved)
	if err != nil {
		return Balance{}, fmt.Errorf("sum approved days: %w", err)
	}
	pending, err := r.SumDays(ctx, userID, year, StatusPending)
	if err != nil {
		return Balance{}, fmt.Errorf("sum pending days: %w", err)
	}

	return Balance{
		UserID:         userID,
		Year:           year,
		Quota:          generic.Days(ent.QuotaDays),
		CarriedForward: generic.Days(ent.CarriedForwardDays),
		Approved:       generic.Days(approved),
		Pending:        generic.Days(pending),
	}, nil
}
