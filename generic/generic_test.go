package generic_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
)

func date(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestPeriod_DayCount_IsInclusive(t *testing.T) {
	tests := []struct {
		name  string
		start generic.TimePoint
		end   generic.TimePoint
		want  int
	}{
		{"single day", date(2025, time.June, 1), date(2025, time.June, 1), 1},
		{"five days", date(2025, time.June, 1), date(2025, time.June, 5), 5},
		{"across month end", date(2025, time.January, 30), date(2025, time.February, 2), 4},
		{"leap february", date(2024, time.February, 28), date(2024, time.March, 1), 3},
		{"whole year", date(2025, time.January, 1), date(2025, time.December, 31), 365},
		{"reversed", date(2025, time.June, 5), date(2025, time.June, 1), -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := generic.Period{Start: tt.start, End: tt.end}
			assert.Equal(t, tt.want, p.DayCount())
		})
	}
}

func TestPeriod_Overlaps(t *testing.T) {
	base := generic.Period{Start: date(2025, time.March, 10), End: date(2025, time.March, 12)}

	tests := []struct {
		name  string
		other generic.Period
		want  bool
	}{
		{"identical", base, true},
		{"touching at start", generic.Period{Start: date(2025, time.March, 8), End: date(2025, time.March, 10)}, true},
		{"touching at end", generic.Period{Start: date(2025, time.March, 12), End: date(2025, time.March, 14)}, true},
		{"contained", generic.Period{Start: date(2025, time.March, 11), End: date(2025, time.March, 11)}, true},
		{"day before", generic.Period{Start: date(2025, time.March, 1), End: date(2025, time.March, 9)}, false},
		{"day after", generic.Period{Start: date(2025, time.March, 13), End: date(2025, time.March, 20)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestPeriod_SingleYear(t *testing.T) {
	assert.True(t, generic.YearPeriod(2025).SingleYear())
	assert.False(t, generic.Period{Start: date(2025, time.December, 30), End: date(2026, time.January, 2)}.SingleYear())
	assert.True(t, generic.YearPeriod(2025).Contains(date(2025, time.July, 4)))
	assert.False(t, generic.YearPeriod(2025).Contains(date(2026, time.January, 1)))
}

// =============================================================================
// TIMEPOINT TESTS
// =============================================================================

func TestParseDate(t *testing.T) {
	tp, err := generic.ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", tp.String())

	tp, err = generic.ParseDate("2025-06-01T23:30:00Z")
	require.NoError(t, err)
	assert.True(t, tp.Equal(date(2025, time.June, 1)), "time of day is dropped")

	_, err = generic.ParseDate("01/06/2025")
	assert.Error(t, err)
}

func TestTimePoint_Scan(t *testing.T) {
	var tp generic.TimePoint

	require.NoError(t, tp.Scan("2025-02-03"))
	assert.Equal(t, "2025-02-03", tp.String())

	require.NoError(t, tp.Scan([]byte("2025-02-04")))
	assert.Equal(t, "2025-02-04", tp.String())

	require.NoError(t, tp.Scan(time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-02-05", tp.String())

	require.NoError(t, tp.Scan(nil))
	assert.True(t, tp.IsZero())

	assert.Error(t, tp.Scan(42))
}

func TestTimePoint_TextRoundTrip(t *testing.T) {
	b, err := date(2025, time.November, 9).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2025-11-09", string(b))

	var tp generic.TimePoint
	require.NoError(t, tp.UnmarshalText(b))
	assert.Equal(t, 2025, tp.Year())
}

// =============================================================================
// AMOUNT / PAGINATION TESTS
// =============================================================================

func TestAmount_Arithmetic(t *testing.T) {
	quota := generic.Days(12)
	used := generic.Days(15)

	left := quota.Sub(used)
	assert.True(t, left.IsNegative())
	assert.Equal(t, -3, left.Int())
	assert.True(t, left.Max(left.Zero()).IsZero())
	assert.True(t, quota.GreaterThan(generic.Days(11)))
	assert.True(t, quota.LessThan(quota.Add(generic.Days(1))))
}

func TestPagination(t *testing.T) {
	p := generic.Pagination{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, generic.DefaultPageSize, p.Limit)

	assert.Equal(t, 20, generic.Pagination{Page: 3, Limit: 10}.Offset())

	page := generic.Page[int]{Total: 21, Limit: 10}
	assert.Equal(t, 3, page.LastPage())
	assert.Equal(t, 1, generic.Page[int]{Total: 0, Limit: 10}.LastPage())
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestError_IsMatchesKind(t *testing.T) {
	err := generic.NewError(generic.KindNotFound, "User Not Found")
	wrapped := fmt.Errorf("lookup: %w", err)

	assert.True(t, errors.Is(wrapped, generic.ErrNotFound))
	assert.False(t, errors.Is(wrapped, generic.ErrForbidden))
	assert.Equal(t, generic.KindNotFound, generic.KindOf(wrapped))
	assert.Equal(t, "User Not Found", generic.MessageOf(wrapped))
}

func TestError_StructuredErrorsCarryKind(t *testing.T) {
	quota := &generic.InsufficientQuotaError{
		UserID:    "u-1",
		Year:      2025,
		Available: generic.Days(2),
		Requested: generic.Days(5),
		Message:   "Insufficient leave quota",
	}
	assert.True(t, errors.Is(quota, generic.ErrInsufficientQuota))
	assert.Equal(t, "Insufficient leave quota", generic.MessageOf(quota))

	var qe *generic.InsufficientQuotaError
	require.True(t, errors.As(fmt.Errorf("create: %w", quota), &qe))
	assert.Equal(t, 2, qe.Available.Int())

	overlap := &generic.OverlapError{UserID: "u-1", ExistingID: "r-1", Message: "overlaps"}
	assert.True(t, errors.Is(overlap, generic.ErrOverlap))
	assert.Equal(t, generic.KindOverlap, generic.KindOf(overlap))
}

func TestError_InternalDetailsAreHidden(t *testing.T) {
	plain := errors.New("pq: connection refused")
	assert.Equal(t, generic.KindInternal, generic.KindOf(plain))
	assert.Equal(t, "Internal Server Error", generic.MessageOf(plain))
	assert.False(t, generic.IsClientError(plain))

	wrapped := generic.Wrap(generic.KindInternal, "db down", plain)
	assert.Equal(t, "Internal Server Error", generic.MessageOf(wrapped))
	assert.ErrorIs(t, wrapped, plain)
}

func TestAuditFilter_Matches(t *testing.T) {
	e := generic.AuditEntry{UserID: "u-1", ActorID: "a-1", Action: generic.AuditRequestApproved}

	assert.True(t, generic.AuditFilter{}.Matches(e))
	assert.True(t, generic.AuditFilter{UserID: "u-1"}.Matches(e))
	assert.False(t, generic.AuditFilter{UserID: "u-2"}.Matches(e))
	assert.False(t, generic.AuditFilter{ActorID: "a-2"}.Matches(e))
	assert.True(t, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditRequestCreated, generic.AuditRequestApproved}}.Matches(e))
	assert.False(t, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditRequestRejected}}.Matches(e))
}
