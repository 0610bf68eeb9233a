package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	admin = leave.Caller{ID: "admin-1", Role: leave.RoleAdmin}
	alice = leave.Caller{ID: "emp-alice", Role: leave.RoleEmployee}
)

func newTestService(t *testing.T) (*leave.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := leave.NewService(store, leave.MustNewPolicy(), leave.WithLogger(zap.NewNop()))
	ctx := context.Background()
	for _, in := range []leave.CreateUserInput{
		{ID: admin.ID, Name: "Ada Admin", Email: "ada@example.com", Role: leave.RoleAdmin},
		{ID: alice.ID, Name: "Alice Liddell", Email: "alice@example.com", Role: leave.RoleEmployee},
	} {
		_, err := svc.EnsureUser(ctx, in)
		require.NoError(t, err)
	}
	return svc, store
}

func day(m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(2025, m, d)
}

func createRequest(t *testing.T, svc *leave.Service, start, end generic.TimePoint) *leave.LeaveRequest {
	t.Helper()
	req, err := svc.CreateRequest(context.Background(), alice, leave.CreateRequestInput{StartDate: start, EndDate: end, Reason: "trip"})
	require.NoError(t, err)
	return req
}

// =============================================================================
// SCHEMA / CONSTRAINTS
// =============================================================================

func TestNew_MigratesIdempotently(t *testing.T) {
	path := t.TempDir() + "/leave.db"

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestEntitlementUniquePerUserYear(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := store.WithTx(ctx, func(tx leave.Tx) error {
		created, err := tx.InsertEntitlementIfAbsent(ctx, &leave.Entitlement{ID: "e-1", UserID: alice.ID, Year: 2025, QuotaDays: 12, CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = tx.InsertEntitlementIfAbsent(ctx, &leave.Entitlement{ID: "e-2", UserID: alice.ID, Year: 2025, QuotaDays: 30, CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.False(t, created)

		err = tx.InsertEntitlement(ctx, &leave.Entitlement{ID: "e-3", UserID: alice.ID, Year: 2025, CreatedAt: now, UpdatedAt: now})
		assert.ErrorIs(t, err, generic.ErrConflict)
		return nil
	})
	require.NoError(t, err)

	ent, err := store.GetEntitlement(ctx, alice.ID, 2025)
	require.NoError(t, err)
	require.NotNil(t, ent)
	assert.Equal(t, "e-1", ent.ID)
	assert.Equal(t, 12, ent.QuotaDays)
}

func TestWithTx_RollsBack(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx leave.Tx) error {
		now := time.Now().UTC()
		require.NoError(t, tx.InsertEntitlement(ctx, &leave.Entitlement{ID: "e-1", UserID: alice.ID, Year: 2025, CreatedAt: now, UpdatedAt: now}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	ent, err := store.GetEntitlement(ctx, alice.ID, 2025)
	require.NoError(t, err)
	assert.Nil(t, ent)
}

func TestMissingRowsReturnNil(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()

	u, err := store.GetUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)

	r, err := store.GetRequest(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, r)

	e, err := store.GetEntitlementByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, e)
}

// =============================================================================
// END TO END THROUGH THE SERVICE
// =============================================================================

func TestRequestLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	note := "approved, have fun"

	req := createRequest(t, svc, day(time.June, 2), day(time.June, 6))
	assert.Equal(t, 5, req.RequestDays)

	decided, err := svc.DecideRequest(ctx, admin, req.ID, leave.DecideInput{Status: leave.StatusApproved, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, decided.Status)

	// Reload from the database and check every column survived the round trip.
	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-06-02", got.StartDate.String())
	assert.Equal(t, "2025-06-06", got.EndDate.String())
	assert.Equal(t, leave.StatusApproved, got.Status)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, admin.ID, *got.DecidedBy)
	require.NotNil(t, got.DecidedAt)
	require.NotNil(t, got.DecisionNote)
	assert.Equal(t, note, *got.DecisionNote)
	require.NotNil(t, got.User)
	assert.Equal(t, "Alice Liddell", got.User.Name)
	require.NotNil(t, got.Decider)
	assert.Equal(t, "Ada Admin", got.Decider.Name)

	view, err := svc.MyQuota(ctx, alice, 2025)
	require.NoError(t, err)
	assert.Equal(t, 5, view.ApprovedDays)
	assert.Equal(t, 7, view.RemainingDays)

	_, err = svc.CreateRequest(ctx, alice, leave.CreateRequestInput{StartDate: day(time.June, 6), EndDate: day(time.June, 8), Reason: "again"})
	assert.ErrorIs(t, err, generic.ErrOverlap)
}

func TestListRequests_FiltersAndPages(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		d := day(time.February, 1+i*3)
		createRequest(t, svc, d, d)
	}
	_, err := svc.CreateEntitlement(ctx, admin, leave.CreateEntitlementInput{UserID: alice.ID, Year: 2026, QuotaDays: 5})
	require.NoError(t, err)
	nextYear := generic.NewTimePoint(2026, time.January, 5)
	_, err = svc.CreateRequest(ctx, alice, leave.CreateRequestInput{StartDate: nextYear, EndDate: nextYear, Reason: "x"})
	require.NoError(t, err)

	page, err := svc.ListRequests(ctx, admin, leave.RequestFilter{Year: 2025, Pagination: generic.Pagination{Page: 2, Limit: 3}})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.LastPage())

	page, err = svc.ListRequests(ctx, alice, leave.RequestFilter{Status: leave.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
}

func TestListEntitlements_NameFilterAndAuthor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateEntitlement(ctx, admin, leave.CreateEntitlementInput{UserID: alice.ID, Year: 2026, QuotaDays: 14, CarriedForwardDays: 2})
	require.NoError(t, err)
	createRequest(t, svc, day(time.March, 3), day(time.March, 3))

	page, err := svc.ListEntitlements(ctx, admin, leave.EntitlementFilter{UserName: "LIDDELL"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.NotNil(t, page.Items[0].User)

	page, err = svc.ListEntitlements(ctx, admin, leave.EntitlementFilter{CreatedBy: admin.ID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 2026, page.Items[0].Year)
	assert.Equal(t, 2, page.Items[0].CarriedForwardDays)
}

func TestAuditNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := createRequest(t, svc, day(time.May, 5), day(time.May, 6))
	_, err := svc.CancelRequest(ctx, alice, req.ID)
	require.NoError(t, err)

	entries, err := svc.ListAudit(ctx, admin, generic.AuditFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 3)
	assert.Equal(t, generic.AuditRequestCanceled, entries[0].Action)
	assert.Equal(t, generic.AuditRequestCreated, entries[1].Action)
	assert.Equal(t, generic.AuditUserCreated, entries[2].Action)
	assert.EqualValues(t, 2, entries[1].Payload["request_days"])
}

// TestConcurrentApprovals runs approvals for the same user in parallel
// against a real database. The approved total must never exceed the
// entitlement.
func TestConcurrentApprovals(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		start := day(time.Month(i+1), 10)
		ids = append(ids, createRequest(t, svc, start, start.AddDays(4)).ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	approved := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.DecideRequest(ctx, admin, id, leave.DecideInput{Status: leave.StatusApproved})
			if err == nil {
				mu.Lock()
				approved++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, generic.ErrInsufficientQuota)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 2, approved, "12 days fit two 5-day requests")
	sum, err := store.SumDays(ctx, alice.ID, 2025, leave.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 10, sum)
}

func TestConcurrentFirstUseCreatesOneEntitlement(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := day(time.September, 1+i*5)
			_, err := svc.CreateRequest(ctx, alice, leave.CreateRequestInput{StartDate: d, EndDate: d, Reason: "x"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page, err := store.ListEntitlements(ctx, leave.EntitlementFilter{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestConcurrentOverlappingCreatesAdmitOne(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// GIVEN: Eight identical Mar 1 - Mar 3 requests filed at once
	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateRequest(ctx, alice, leave.CreateRequestInput{
				StartDate: day(time.March, 1),
				EndDate:   day(time.March, 3),
				Reason:    "trip",
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, generic.ErrOverlap)
		}()
	}
	wg.Wait()

	// THEN: The user lock serializes them and only one is stored
	assert.Equal(t, 1, admitted)
	page, err := store.ListRequests(ctx, leave.RequestFilter{UserID: alice.ID, Pagination: generic.Pagination{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestConcurrentCreatesBeyondQuotaStayPending(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// GIVEN: Five days available and two disjoint 3-day requests filed at once
	_, err := svc.CreateEntitlement(ctx, admin, leave.CreateEntitlementInput{UserID: alice.ID, Year: 2025, QuotaDays: 5})
	require.NoError(t, err)

	starts := []generic.TimePoint{day(time.May, 5), day(time.August, 11)}
	errs := make([]error, len(starts))
	ids := make([]string, len(starts))
	var wg sync.WaitGroup
	for i, start := range starts {
		wg.Add(1)
		go func(i int, start generic.TimePoint) {
			defer wg.Done()
			req, err := svc.CreateRequest(ctx, alice, leave.CreateRequestInput{StartDate: start, EndDate: start.AddDays(2), Reason: "trip"})
			errs[i] = err
			if err == nil {
				ids[i] = req.ID
			}
		}(i, start)
	}
	wg.Wait()

	// THEN: Pending requests consume nothing, so both are admitted
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	pending, err := store.SumDays(ctx, alice.ID, 2025, leave.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 6, pending)

	// AND: Only one of them can be approved
	_, err = svc.DecideRequest(ctx, admin, ids[0], leave.DecideInput{Status: leave.StatusApproved})
	require.NoError(t, err)
	_, err = svc.DecideRequest(ctx, admin, ids[1], leave.DecideInput{Status: leave.StatusApproved})
	assert.ErrorIs(t, err, generic.ErrInsufficientQuota)

	approved, err := store.SumDays(ctx, alice.ID, 2025, leave.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 3, approved)
}
