/*
Package generic provides domain-agnostic building blocks for the leave engine.

PURPOSE:
  Small value types shared by the leave core, the stores and the HTTP
  layer. Nothing in here knows what a leave request or an entitlement is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 12 days)
  - Page:   One page of a filtered listing plus the total match count

DESIGN PRINCIPLES:
  1. Precision: Amounts use decimal.Decimal, so balance arithmetic never
     drifts even when fractional days are introduced later
  2. Value semantics: every operation returns a new Amount

USAGE:
  quota := generic.NewAmountFromInt(12, generic.UnitDays)
  left := quota.Sub(generic.NewAmountFromInt(5, generic.UnitDays))

SEE ALSO:
  - time.go: Day-granular TimePoint
  - period.go: Inclusive date ranges and overlap
  - errors.go: Error kinds
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for NewAmountFromInt(n, UnitDays).
func Days(n int) Amount { return NewAmountFromInt(n, UnitDays) }

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Int truncates the amount to a whole number.
func (a Amount) Int() int { return int(a.Value.IntPart()) }

func (a Amount) String() string { return a.Value.String() + " " + string(a.Unit) }

// =============================================================================
// PAGE - Paginated listing
// =============================================================================

const DefaultPageSize = 10

// Page is one slice of a filtered, ordered listing.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// Pagination normalizes page/limit input. Page is 1-based.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// LastPage returns the last page number for total items, at least 1.
func (p Page[T]) LastPage() int {
	if p.Limit < 1 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}
