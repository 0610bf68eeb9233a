/*
Package sqlstore implements leave.Store on database/sql.

PURPOSE:
  One set of queries for every SQL backend. A Dialect supplies the few
  things that differ: placeholder syntax, the row-lock clause, how dates
  and timestamps are bound, and how a unique violation is recognized.

KEY TABLES:
  users:              Identity directory (id, name, email, role)
  leave_entitlements: One row per (user_id, year), UNIQUE enforced
  leave_requests:     Requests with status and decision fields
  audit_log:          Append-only trail, ordered by seq

INDEXES:
  - leave_entitlements(user_id, year) UNIQUE: first-use race resolves here
  - leave_requests(user_id, status):      overlap and sum queries
  - leave_requests(user_id, created_at):  listings
  - leave_requests(start_date, end_date): overlap range scan

TRANSACTIONS:
  WithTx opens one *sql.Tx and every query inside fn goes through it,
  never through the pool. Row locks are the dialect's ForUpdate clause.

SEE ALSO:
  - store/sqlite: SQLite dialect and connection setup
  - store/postgres: PostgreSQL dialect and connection setup
  - leave/store.go: The contract implemented here
*/
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Dialect captures backend differences.
type Dialect interface {
	Name() string
	// Rebind rewrites ? placeholders into the backend's syntax.
	Rebind(query string) string
	// ForUpdate is appended to SELECTs that must lock their rows.
	ForUpdate() string
	// Schema returns the DDL statements, executed in order.
	Schema() []string
	IsUniqueViolation(err error) bool
	// DateArg and TimeArg convert values into the driver's preferred form.
	DateArg(tp generic.TimePoint) any
	TimeArg(t time.Time) any
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements leave.Store for any Dialect.
type Store struct {
	queries
	db *sql.DB
}

var _ leave.Store = (*Store)(nil)

// New wraps an open database and creates the schema.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, queries: queries{q: db, d: d}}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", d.Name(), err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.d.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries: queries{q: sqlTx, d: s.d}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	queries
}

var _ leave.Tx = (*txStore)(nil)

// =============================================================================
// QUERIES - Shared by Store and txStore
// =============================================================================

type queries struct {
	q querier
	d Dialect
}

func (qs queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qs.q.ExecContext(ctx, qs.d.Rebind(query), args...)
}

func (qs queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qs.q.QueryContext(ctx, qs.d.Rebind(query), args...)
}

func (qs queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qs.q.QueryRowContext(ctx, qs.d.Rebind(query), args...)
}

// conflict turns a unique violation into generic.ErrConflict.
func (qs queries) conflict(err error) error {
	if qs.d.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", generic.ErrConflict, err)
	}
	return err
}

// =============================================================================
// USERS
// =============================================================================

const userCols = "id, name, email, role, created_at"

func scanUser(row interface{ Scan(...any) error }) (*leave.User, error) {
	var u leave.User
	var role string
	var created timeValue
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &created); err != nil {
		return nil, err
	}
	u.Role = leave.Role(role)
	u.CreatedAt = created.Time
	return &u, nil
}

func (qs queries) getUser(ctx context.Context, id string, lock bool) (*leave.User, error) {
	query := "SELECT " + userCols + " FROM users WHERE id = ?"
	if lock {
		query += qs.d.ForUpdate()
	}
	u, err := scanUser(qs.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (qs queries) GetUser(ctx context.Context, id string) (*leave.User, error) {
	return qs.getUser(ctx, id, false)
}

func (qs queries) ListUsers(ctx context.Context, role leave.Role) ([]leave.User, error) {
	query := "SELECT " + userCols + " FROM users"
	var args []any
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, string(role))
	}
	rows, err := qs.query(ctx, query+" ORDER BY name, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []leave.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (qs queries) usersByID(ctx context.Context, ids []string) (map[string]*leave.User, error) {
	out := make(map[string]*leave.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := qs.query(ctx, "SELECT "+userCols+" FROM users WHERE id IN ("+marks+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (ts *txStore) LockUser(ctx context.Context, id string) (*leave.User, error) {
	return ts.getUser(ctx, id, true)
}

func (ts *txStore) InsertUser(ctx context.Context, u *leave.User) error {
	_, err := ts.exec(ctx,
		"INSERT INTO users ("+userCols+") VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, string(u.Role), ts.d.TimeArg(u.CreatedAt),
	)
	return ts.conflict(err)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestCols = `id, user_id, start_date, end_date, year, request_days, reason, status,
	attachment, decided_by, decided_at, decision_note, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var year int
	var status string
	var attachment, decidedBy, note sql.NullString
	var decidedAt nullTimeValue
	var created, updated timeValue

	err := row.Scan(&r.ID, &r.UserID, &r.StartDate, &r.EndDate, &year, &r.RequestDays, &r.Reason, &status,
		&attachment, &decidedBy, &decidedAt, &note, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.Status = leave.Status(status)
	r.Attachment = stringPtr(attachment)
	r.DecidedBy = stringPtr(decidedBy)
	r.DecisionNote = stringPtr(note)
	r.DecidedAt = decidedAt.ptr()
	r.CreatedAt = created.Time
	r.UpdatedAt = updated.Time
	return &r, nil
}

func (qs queries) getRequest(ctx context.Context, id string, lock bool) (*leave.LeaveRequest, error) {
	query := "SELECT " + requestCols + " FROM leave_requests WHERE id = ?"
	if lock {
		query += qs.d.ForUpdate()
	}
	r, err := scanRequest(qs.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (qs queries) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	r, err := qs.getRequest(ctx, id, false)
	if err != nil || r == nil {
		return r, err
	}
	reqs := []leave.LeaveRequest{*r}
	if err := qs.attachRequestUsers(ctx, reqs); err != nil {
		return nil, err
	}
	return &reqs[0], nil
}

func (qs queries) attachRequestUsers(ctx context.Context, reqs []leave.LeaveRequest) error {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range reqs {
		add(r.UserID)
		if r.DecidedBy != nil {
			add(*r.DecidedBy)
		}
	}
	users, err := qs.usersByID(ctx, ids)
	if err != nil {
		return fmt.Errorf("load request users: %w", err)
	}
	for i := range reqs {
		reqs[i].User = users[reqs[i].UserID]
		if reqs[i].DecidedBy != nil {
			reqs[i].Decider = users[*reqs[i].DecidedBy]
		}
	}
	return nil
}

func (qs queries) ListRequests(ctx context.Context, f leave.RequestFilter) (generic.Page[leave.LeaveRequest], error) {
	var where whereClause
	where.add(f.ID != "", "id = ?", f.ID)
	where.add(f.UserID != "", "user_id = ?", f.UserID)
	where.add(f.Status != "", "status = ?", string(f.Status))
	where.add(f.Year != 0, "year = ?", f.Year)

	p := f.Pagination.Normalize()
	page := generic.Page[leave.LeaveRequest]{Page: p.Page, Limit: p.Limit, Items: []leave.LeaveRequest{}}

	if err := qs.queryRow(ctx, "SELECT COUNT(*) FROM leave_requests"+where.sql(), where.args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count requests: %w", err)
	}

	args := append(where.args, p.Limit, p.Offset())
	rows, err := qs.query(ctx,
		"SELECT "+requestCols+" FROM leave_requests"+where.sql()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, *r)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}
	return page, qs.attachRequestUsers(ctx, page.Items)
}

func (qs queries) SumDays(ctx context.Context, userID string, year int, status leave.Status) (int, error) {
	var total int64
	err := qs.queryRow(ctx,
		"SELECT COALESCE(SUM(request_days), 0) FROM leave_requests WHERE user_id = ? AND year = ? AND status = ?",
		userID, year, string(status),
	).Scan(&total)
	return int(total), err
}

func (qs queries) FindOverlap(ctx context.Context, userID string, p generic.Period) (*leave.LeaveRequest, error) {
	r, err := scanRequest(qs.queryRow(ctx,
		"SELECT "+requestCols+` FROM leave_requests
		WHERE user_id = ? AND status IN (?, ?) AND start_date <= ? AND end_date >= ?
		ORDER BY start_date LIMIT 1`,
		userID, string(leave.StatusPending), string(leave.StatusApproved),
		qs.d.DateArg(p.End), qs.d.DateArg(p.Start),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (ts *txStore) LockRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return ts.getRequest(ctx, id, true)
}

func (ts *txStore) InsertRequest(ctx context.Context, r *leave.LeaveRequest) error {
	_, err := ts.exec(ctx,
		"INSERT INTO leave_requests ("+requestCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.UserID, ts.d.DateArg(r.StartDate), ts.d.DateArg(r.EndDate), r.Year(), r.RequestDays,
		r.Reason, string(r.Status), nullString(r.Attachment), nullString(r.DecidedBy),
		ts.nullTime(r.DecidedAt), nullString(r.DecisionNote),
		ts.d.TimeArg(r.CreatedAt), ts.d.TimeArg(r.UpdatedAt),
	)
	return ts.conflict(err)
}

func (ts *txStore) UpdateRequestStatus(ctx context.Context, r *leave.LeaveRequest) error {
	res, err := ts.exec(ctx,
		`UPDATE leave_requests
		SET status = ?, decided_by = ?, decided_at = ?, decision_note = ?, updated_at = ?
		WHERE id = ?`,
		string(r.Status), nullString(r.DecidedBy), ts.nullTime(r.DecidedAt), nullString(r.DecisionNote),
		ts.d.TimeArg(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// =============================================================================
// ENTITLEMENTS
// =============================================================================

const entitlementCols = "e.id, e.user_id, e.year, e.quota_days, e.carried_forward_days, e.created_by, e.created_at, e.updated_at"

func scanEntitlement(row interface{ Scan(...any) error }) (*leave.Entitlement, error) {
	var e leave.Entitlement
	var createdBy sql.NullString
	var created, updated timeValue
	err := row.Scan(&e.ID, &e.UserID, &e.Year, &e.QuotaDays, &e.CarriedForwardDays, &createdBy, &created, &updated)
	if err != nil {
		return nil, err
	}
	e.CreatedBy = stringPtr(createdBy)
	e.CreatedAt = created.Time
	e.UpdatedAt = updated.Time
	return &e, nil
}

func (qs queries) oneEntitlement(ctx context.Context, cond string, args ...any) (*leave.Entitlement, error) {
	e, err := scanEntitlement(qs.queryRow(ctx, "SELECT "+entitlementCols+" FROM leave_entitlements e WHERE "+cond, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.User, err = qs.getUser(ctx, e.UserID, false); err != nil {
		return nil, err
	}
	return e, nil
}

func (qs queries) GetEntitlement(ctx context.Context, userID string, year int) (*leave.Entitlement, error) {
	return qs.oneEntitlement(ctx, "e.user_id = ? AND e.year = ?", userID, year)
}

func (qs queries) GetEntitlementByID(ctx context.Context, id string) (*leave.Entitlement, error) {
	return qs.oneEntitlement(ctx, "e.id = ?", id)
}

func (qs queries) ListEntitlements(ctx context.Context, f leave.EntitlementFilter) (generic.Page[leave.Entitlement], error) {
	var where whereClause
	where.add(f.ID != "", "e.id = ?", f.ID)
	where.add(f.Year != 0, "e.year = ?", f.Year)
	where.add(f.CreatedBy != "", "e.created_by = ?", f.CreatedBy)
	where.add(f.UserName != "", "LOWER(u.name) LIKE ?", "%"+strings.ToLower(f.UserName)+"%")

	const from = " FROM leave_entitlements e JOIN users u ON u.id = e.user_id"
	p := f.Pagination.Normalize()
	page := generic.Page[leave.Entitlement]{Page: p.Page, Limit: p.Limit, Items: []leave.Entitlement{}}

	if err := qs.queryRow(ctx, "SELECT COUNT(*)"+from+where.sql(), where.args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count entitlements: %w", err)
	}

	args := append(where.args, p.Limit, p.Offset())
	rows, err := qs.query(ctx,
		"SELECT "+entitlementCols+", "+prefixed("u", userCols)+from+where.sql()+
			" ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var e leave.Entitlement
		var u leave.User
		var createdBy sql.NullString
		var created, updated, userCreated timeValue
		var role string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Year, &e.QuotaDays, &e.CarriedForwardDays, &createdBy, &created, &updated,
			&u.ID, &u.Name, &u.Email, &role, &userCreated); err != nil {
			return page, err
		}
		e.CreatedBy = stringPtr(createdBy)
		e.CreatedAt, e.UpdatedAt = created.Time, updated.Time
		u.Role, u.CreatedAt = leave.Role(role), userCreated.Time
		e.User = &u
		page.Items = append(page.Items, e)
	}
	return page, rows.Err()
}

func (ts *txStore) InsertEntitlement(ctx context.Context, e *leave.Entitlement) error {
	_, err := ts.exec(ctx, insertEntitlementSQL, ts.entitlementArgs(e)...)
	return ts.conflict(err)
}

func (ts *txStore) InsertEntitlementIfAbsent(ctx context.Context, e *leave.Entitlement) (bool, error) {
	res, err := ts.exec(ctx, insertEntitlementSQL+" ON CONFLICT (user_id, year) DO NOTHING", ts.entitlementArgs(e)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const insertEntitlementSQL = `INSERT INTO leave_entitlements
	(id, user_id, year, quota_days, carried_forward_days, created_by, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (ts *txStore) entitlementArgs(e *leave.Entitlement) []any {
	return []any{e.ID, e.UserID, e.Year, e.QuotaDays, e.CarriedForwardDays, nullString(e.CreatedBy),
		ts.d.TimeArg(e.CreatedAt), ts.d.TimeArg(e.UpdatedAt)}
}

func (ts *txStore) UpdateEntitlement(ctx context.Context, e *leave.Entitlement) error {
	res, err := ts.exec(ctx,
		"UPDATE leave_entitlements SET quota_days = ?, carried_forward_days = ?, updated_at = ? WHERE id = ?",
		e.QuotaDays, e.CarriedForwardDays, ts.d.TimeArg(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (ts *txStore) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = ts.exec(ctx,
		`INSERT INTO audit_log (id, occurred_at, actor_id, action, subject_id, user_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, ts.d.TimeArg(e.Timestamp), e.ActorID, string(e.Action), e.SubjectID, e.UserID, string(payload),
	)
	return err
}

func (qs queries) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	var where whereClause
	where.add(f.UserID != "", "user_id = ?", f.UserID)
	where.add(f.ActorID != "", "actor_id = ?", f.ActorID)
	if len(f.Actions) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Actions)), ", ")
		args := make([]any, len(f.Actions))
		for i, a := range f.Actions {
			args[i] = string(a)
		}
		where.add(true, "action IN ("+marks+")", args...)
	}
	query := "SELECT id, occurred_at, actor_id, action, subject_id, user_id, payload_json FROM audit_log" +
		where.sql() + " ORDER BY seq DESC"
	args := where.args
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := qs.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var e generic.AuditEntry
		var at timeValue
		var action, payload string
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &action, &e.SubjectID, &e.UserID, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = at.Time
		e.Action = generic.AuditAction(action)
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(ok bool, cond string, args ...any) {
	if !ok {
		return
	}
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%w: expected 1 row, updated %d", generic.ErrNotFound, n)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (qs queries) nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return qs.d.TimeArg(*t)
}
