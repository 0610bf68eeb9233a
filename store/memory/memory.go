// Package memory provides an in-memory leave.Store for tests and development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store keeps everything in maps guarded by one mutex. WithTx holds the
// write lock for the whole transaction, which serializes every writer and
// makes LockUser/LockRequest no-ops.
type Store struct {
	mu   sync.RWMutex
	data state
}

type state struct {
	users        map[string]leave.User
	requests     map[string]leave.LeaveRequest
	entitlements map[string]leave.Entitlement
	byUserYear   map[userYear]string
	audit        []generic.AuditEntry
}

type userYear struct {
	UserID string
	Year   int
}

func New() *Store {
	return &Store{data: state{
		users:        make(map[string]leave.User),
		requests:     make(map[string]leave.LeaveRequest),
		entitlements: make(map[string]leave.Entitlement),
		byUserYear:   make(map[userYear]string),
	}}
}

var _ leave.Store = (*Store)(nil)

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txView{st: &s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (st *state) clone() state {
	c := state{
		users:        make(map[string]leave.User, len(st.users)),
		requests:     make(map[string]leave.LeaveRequest, len(st.requests)),
		entitlements: make(map[string]leave.Entitlement, len(st.entitlements)),
		byUserYear:   make(map[userYear]string, len(st.byUserYear)),
		audit:        append([]generic.AuditEntry(nil), st.audit...),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v
	}
	for k, v := range st.entitlements {
		c.entitlements[k] = v
	}
	for k, v := range st.byUserYear {
		c.byUserYear[k] = v
	}
	return c
}

// =============================================================================
// READS (outside a transaction)
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id string) (*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getUser(id), nil
}

func (s *Store) ListUsers(ctx context.Context, role leave.Role) ([]leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listUsers(role), nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getRequest(id), nil
}

func (s *Store) ListRequests(ctx context.Context, f leave.RequestFilter) (generic.Page[leave.LeaveRequest], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listRequests(f), nil
}

func (s *Store) GetEntitlement(ctx context.Context, userID string, year int) (*leave.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getEntitlement(userID, year), nil
}

func (s *Store) GetEntitlementByID(ctx context.Context, id string) (*leave.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getEntitlementByID(id), nil
}

func (s *Store) ListEntitlements(ctx context.Context, f leave.EntitlementFilter) (generic.Page[leave.Entitlement], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listEntitlements(f), nil
}

func (s *Store) SumDays(ctx context.Context, userID string, year int, status leave.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.sumDays(userID, year, status), nil
}

func (s *Store) FindOverlap(ctx context.Context, userID string, p generic.Period) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.findOverlap(userID, p), nil
}

func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.queryAudit(f), nil
}

// =============================================================================
// TRANSACTIONAL VIEW - Caller already holds the write lock
// =============================================================================

type txView struct {
	st *state
}

func (tv *txView) GetUser(_ context.Context, id string) (*leave.User, error) {
	return tv.st.getUser(id), nil
}

func (tv *txView) ListUsers(_ context.Context, role leave.Role) ([]leave.User, error) {
	return tv.st.listUsers(role), nil
}

func (tv *txView) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	return tv.st.getRequest(id), nil
}

func (tv *txView) ListRequests(_ context.Context, f leave.RequestFilter) (generic.Page[leave.LeaveRequest], error) {
	return tv.st.listRequests(f), nil
}

func (tv *txView) GetEntitlement(_ context.Context, userID string, year int) (*leave.Entitlement, error) {
	return tv.st.getEntitlement(userID, year), nil
}

func (tv *txView) GetEntitlementByID(_ context.Context, id string) (*leave.Entitlement, error) {
	return tv.st.getEntitlementByID(id), nil
}

func (tv *txView) ListEntitlements(_ context.Context, f leave.EntitlementFilter) (generic.Page[leave.Entitlement], error) {
	return tv.st.listEntitlements(f), nil
}

func (tv *txView) SumDays(_ context.Context, userID string, year int, status leave.Status) (int, error) {
	return tv.st.sumDays(userID, year, status), nil
}

func (tv *txView) FindOverlap(_ context.Context, userID string, p generic.Period) (*leave.LeaveRequest, error) {
	return tv.st.findOverlap(userID, p), nil
}

func (tv *txView) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return tv.st.queryAudit(f), nil
}

func (tv *txView) LockUser(_ context.Context, id string) (*leave.User, error) {
	return tv.st.getUser(id), nil
}

func (tv *txView) LockRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	r, ok := tv.st.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (tv *txView) InsertUser(_ context.Context, u *leave.User) error {
	if _, ok := tv.st.users[u.ID]; ok {
		return generic.ErrConflict
	}
	tv.st.users[u.ID] = *u
	return nil
}

func (tv *txView) InsertEntitlement(_ context.Context, e *leave.Entitlement) error {
	k := userYear{UserID: e.UserID, Year: e.Year}
	if _, ok := tv.st.byUserYear[k]; ok {
		return generic.ErrConflict
	}
	tv.st.entitlements[e.ID] = stripEntitlement(*e)
	tv.st.byUserYear[k] = e.ID
	return nil
}

func (tv *txView) InsertEntitlementIfAbsent(ctx context.Context, e *leave.Entitlement) (bool, error) {
	if _, ok := tv.st.byUserYear[userYear{UserID: e.UserID, Year: e.Year}]; ok {
		return false, nil
	}
	return true, tv.InsertEntitlement(ctx, e)
}

func (tv *txView) UpdateEntitlement(_ context.Context, e *leave.Entitlement) error {
	cur, ok := tv.st.entitlements[e.ID]
	if !ok {
		return generic.ErrNotFound
	}
	cur.QuotaDays = e.QuotaDays
	cur.CarriedForwardDays = e.CarriedForwardDays
	cur.UpdatedAt = e.UpdatedAt
	tv.st.entitlements[e.ID] = cur
	return nil
}

func (tv *txView) InsertRequest(_ context.Context, r *leave.LeaveRequest) error {
	if _, ok := tv.st.requests[r.ID]; ok {
		return generic.ErrConflict
	}
	tv.st.requests[r.ID] = stripRequest(*r)
	return nil
}

func (tv *txView) UpdateRequestStatus(_ context.Context, r *leave.LeaveRequest) error {
	cur, ok := tv.st.requests[r.ID]
	if !ok {
		return generic.ErrNotFound
	}
	cur.Status = r.Status
	cur.DecidedBy = r.DecidedBy
	cur.DecidedAt = r.DecidedAt
	cur.DecisionNote = r.DecisionNote
	cur.UpdatedAt = r.UpdatedAt
	tv.st.requests[r.ID] = cur
	return nil
}

func (tv *txView) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	tv.st.audit = append(tv.st.audit, e)
	return nil
}

// =============================================================================
// QUERIES ON STATE
// =============================================================================

func stripRequest(r leave.LeaveRequest) leave.LeaveRequest {
	r.User, r.Decider = nil, nil
	return r
}

func stripEntitlement(e leave.Entitlement) leave.Entitlement {
	e.User = nil
	return e
}

func (st *state) getUser(id string) *leave.User {
	u, ok := st.users[id]
	if !ok {
		return nil
	}
	return &u
}

func (st *state) listUsers(role leave.Role) []leave.User {
	var out []leave.User
	for _, u := range st.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (st *state) withUsers(r leave.LeaveRequest) leave.LeaveRequest {
	r.User = st.getUser(r.UserID)
	if r.DecidedBy != nil {
		r.Decider = st.getUser(*r.DecidedBy)
	}
	return r
}

func (st *state) getRequest(id string) *leave.LeaveRequest {
	r, ok := st.requests[id]
	if !ok {
		return nil
	}
	r = st.withUsers(r)
	return &r
}

func (st *state) listRequests(f leave.RequestFilter) generic.Page[leave.LeaveRequest] {
	var all []leave.LeaveRequest
	for _, r := range st.requests {
		if f.ID != "" && r.ID != f.ID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Year != 0 && r.Year() != f.Year {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	items := paginate(all, f.Pagination)
	for i := range items {
		items[i] = st.withUsers(items[i])
	}
	p := f.Pagination.Normalize()
	return generic.Page[leave.LeaveRequest]{Items: items, Total: len(all), Page: p.Page, Limit: p.Limit}
}

func (st *state) getEntitlement(userID string, year int) *leave.Entitlement {
	id, ok := st.byUserYear[userYear{UserID: userID, Year: year}]
	if !ok {
		return nil
	}
	return st.getEntitlementByID(id)
}

func (st *state) getEntitlementByID(id string) *leave.Entitlement {
	e, ok := st.entitlements[id]
	if !ok {
		return nil
	}
	e.User = st.getUser(e.UserID)
	return &e
}

func (st *state) listEntitlements(f leave.EntitlementFilter) generic.Page[leave.Entitlement] {
	var all []leave.Entitlement
	for _, e := range st.entitlements {
		if f.ID != "" && e.ID != f.ID {
			continue
		}
		if f.Year != 0 && e.Year != f.Year {
			continue
		}
		if f.CreatedBy != "" && (e.CreatedBy == nil || *e.CreatedBy != f.CreatedBy) {
			continue
		}
		if f.UserName != "" {
			u := st.getUser(e.UserID)
			if u == nil || !strings.Contains(strings.ToLower(u.Name), strings.ToLower(f.UserName)) {
				continue
			}
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	items := paginate(all, f.Pagination)
	for i := range items {
		items[i].User = st.getUser(items[i].UserID)
	}
	p := f.Pagination.Normalize()
	return generic.Page[leave.Entitlement]{Items: items, Total: len(all), Page: p.Page, Limit: p.Limit}
}

func (st *state) sumDays(userID string, year int, status leave.Status) int {
	in := generic.YearPeriod(year)
	total := 0
	for _, r := range st.requests {
		if r.UserID == userID && r.Status == status && in.Contains(r.StartDate) {
			total += r.RequestDays
		}
	}
	return total
}

func (st *state) findOverlap(userID string, p generic.Period) *leave.LeaveRequest {
	for _, r := range st.requests {
		if r.UserID == userID && r.Status.Active() && r.Period().Overlaps(p) {
			found := r
			return &found
		}
	}
	return nil
}

func (st *state) queryAudit(f generic.AuditFilter) []generic.AuditEntry {
	var out []generic.AuditEntry
	for i := len(st.audit) - 1; i >= 0; i-- {
		if f.Matches(st.audit[i]) {
			out = append(out, st.audit[i])
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out
}

func paginate[T any](all []T, p generic.Pagination) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[start:end]...)
}
