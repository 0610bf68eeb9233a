/*
api_test.go - End-to-end tests for the HTTP layer

Each test builds the full router over an in-memory SQLite store with real
JWTs, so routing, authentication, validation, the service rules and the
error-to-status mapping are exercised together.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/leave-engine/attachment"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	testAdmin = leave.Caller{ID: "admin-1", Role: leave.RoleAdmin}
	testAlice = leave.Caller{ID: "emp-alice", Role: leave.RoleEmployee}
	testBob   = leave.Caller{ID: "emp-bob", Role: leave.RoleEmployee}
)

type testServer struct {
	t      *testing.T
	router http.Handler
	tokens *auth.Tokens
	files  *attachment.Local
}

type routerOption func(*RouterConfig)

func newTestServer(t *testing.T, opts ...routerOption) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	files := attachment.NewLocal(t.TempDir(), 1<<20)
	svc := leave.NewService(store, leave.MustNewPolicy(),
		leave.WithLogger(zap.NewNop()),
		leave.WithAttachments(files),
	)
	for _, in := range []leave.CreateUserInput{
		{ID: testAdmin.ID, Name: "Ada Admin", Role: leave.RoleAdmin},
		{ID: testAlice.ID, Name: "Alice", Role: leave.RoleEmployee},
		{ID: testBob.ID, Name: "Bob", Role: leave.RoleEmployee},
	} {
		_, err := svc.EnsureUser(context.Background(), in)
		require.NoError(t, err)
	}

	tokens := auth.NewTokens("test-secret", "leave-engine", time.Hour)
	cfg := RouterConfig{
		Tokens:      tokens,
		Logger:      zap.NewNop(),
		CORSOrigins: []string{"http://localhost:5173"},
		RateLimit:   1000,
		RateBurst:   1000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &testServer{
		t:      t,
		router: NewRouter(NewHandler(svc, files, 1<<20), cfg),
		tokens: tokens,
		files:  files,
	}
}

func (s *testServer) token(c leave.Caller) string {
	raw, err := s.tokens.Issue(c)
	require.NoError(s.t, err)
	return raw
}

type response struct {
	Code int
	Meta Meta
	Data json.RawMessage
	Head http.Header
}

func (s *testServer) do(method, path string, caller *leave.Caller, body any) response {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(*caller))
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) response {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env struct {
		Meta Meta            `json:"meta"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return response{Code: rec.Code, Meta: env.Meta, Data: env.Data, Head: rec.Header()}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type requestJSON struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	RequestDays int     `json:"request_days"`
	Status      string  `json:"status"`
	Attachment  *string `json:"attachment"`
	DecidedBy   *string `json:"decided_by"`
	User        *struct {
		Name string `json:"name"`
	} `json:"user"`
}

func (s *testServer) createRequest(c leave.Caller, start, end string) requestJSON {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/leave-requests", &c, map[string]string{
		"start_date": start, "end_date": end, "reason": "holiday",
	})
	require.Equal(s.t, http.StatusCreated, res.Code, res.Meta.Message)
	return decode[requestJSON](s.t, res.Data)
}

// =============================================================================
// AUTHENTICATION / MIDDLEWARE
// =============================================================================

func TestHealth_IsPublic(t *testing.T) {
	s := newTestServer(t)
	res := s.do(http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "success", res.Meta.Status)
	assert.NotEmpty(t, res.Head.Get(requestIDHeader))
}

func TestHealth_ReportsUnreachableStore(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	svc := leave.NewService(store, leave.MustNewPolicy(), leave.WithLogger(zap.NewNop()))
	router := NewRouter(NewHandler(svc, nil, 0), RouterConfig{
		Tokens: auth.NewTokens("test-secret", "leave-engine", time.Hour),
		Logger: zap.NewNop(),
	})

	// GIVEN: The database connection is gone
	require.NoError(t, store.Close())

	// WHEN: Health is checked
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	// THEN: The server reports itself unavailable
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"down"`)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	res := s.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, MsgUnauthorized, res.Meta.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	res = s.serve(req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = s.do(http.MethodGet, "/api/me", &testAlice, nil)
	require.Equal(t, http.StatusOK, res.Code)
	me := decode[leave.User](t, res.Data)
	assert.Equal(t, "Alice", me.Name)
}

func TestRequestID_IsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	res := s.serve(req)
	assert.Equal(t, "trace-123", res.Head.Get(requestIDHeader))
}

func TestContextLogger_UsesRouterRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := middleware.RequestID(ContextLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	// GIVEN: A request carrying its own id
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestIDHeader, "trace-456")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// THEN: The same id is echoed and logged
	assert.Equal(t, "trace-456", rec.Header().Get(requestIDHeader))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "trace-456", logs.All()[0].ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusNoContent, logs.All()[0].ContextMap()["status"])

	// WHEN: No id is sent, the generated one is both echoed and logged
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	rid := rec.Header().Get(requestIDHeader)
	assert.NotEmpty(t, rid)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, rid, logs.All()[1].ContextMap()["request_id"])
}

func TestRateLimitByCaller(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) { c.RateLimit = 0.001; c.RateBurst = 1 })

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/me", &testAlice, nil).Code)
	res := s.do(http.MethodGet, "/api/me", &testAlice, nil)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, MsgTooManyReqs, res.Meta.Message)

	// Buckets are per caller.
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/me", &testBob, nil).Code)
}

func TestKeyedRateLimiter_DropsIdleBuckets(t *testing.T) {
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	k := NewKeyedRateLimiter(1, 1)
	k.now = func() time.Time { return clock }
	k.lastSweep = clock

	// GIVEN: Two callers, one of which keeps calling
	k.GetLimiter("user:a")
	k.GetLimiter("user:b")
	assert.Equal(t, 2, k.Len())

	clock = clock.Add(defaultLimiterIdle / 2)
	same := k.GetLimiter("user:a")

	// WHEN: The idle window passes for b but not for a
	clock = clock.Add(defaultLimiterIdle / 2)
	k.GetLimiter("user:c")

	// THEN: Only b is dropped and a keeps its bucket
	assert.Equal(t, 2, k.Len())
	assert.Same(t, same, k.GetLimiter("user:a"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	res := s.do(http.MethodGet, "/api/nothing-here", &testAlice, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestCreateLeaveRequest(t *testing.T) {
	s := newTestServer(t)

	created := s.createRequest(testAlice, "2027-06-02", "2027-06-06")
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 5, created.RequestDays)
	assert.Equal(t, "2027-06-02", created.StartDate)
	require.NotNil(t, created.User)
	assert.Equal(t, "Alice", created.User.Name)
}

func TestCreateLeaveRequest_Validation(t *testing.T) {
	s := newTestServer(t)

	res := s.do(http.MethodPost, "/api/leave-requests", &testAlice, map[string]string{"end_date": "2027-06-02"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, MsgValidation, res.Meta.Message)
	fields := decode[map[string]string](t, res.Data)
	assert.Equal(t, "Start Date is required", fields["start_date"])
	assert.Equal(t, "Reason is required", fields["reason"])

	res = s.do(http.MethodPost, "/api/leave-requests", &testAlice, map[string]string{
		"start_date": "2027-06-05", "end_date": "2027-06-01", "reason": "x",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, decode[map[string]string](t, res.Data), "end_date")

	res = s.do(http.MethodPost, "/api/leave-requests", &testAlice, map[string]string{
		"start_date": "06/01/2027", "end_date": "2027-06-01", "reason": "x",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Start Date must be a date in YYYY-MM-DD format", decode[map[string]string](t, res.Data)["start_date"])
}

func TestCreateLeaveRequest_RuleFailures(t *testing.T) {
	s := newTestServer(t)
	s.createRequest(testAlice, "2027-03-10", "2027-03-12")

	tests := []struct {
		name    string
		caller  leave.Caller
		start   string
		end     string
		code    int
		message string
	}{
		{"crosses year", testAlice, "2027-12-30", "2028-01-02", http.StatusBadRequest, "Start date and end date must be within the same year"},
		{"overlaps", testAlice, "2027-03-12", "2027-03-14", http.StatusConflict, "Your leave request overlaps with an existing pending or approved leave."},
		{"over quota", testAlice, "2027-05-01", "2027-05-20", http.StatusBadRequest, "Insufficient leave quota"},
		{"admin", testAdmin, "2027-05-01", "2027-05-01", http.StatusForbidden, "Forbidden: Only employee can create leave requests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.caller
			res := s.do(http.MethodPost, "/api/leave-requests", &c, map[string]string{
				"start_date": tt.start, "end_date": tt.end, "reason": "x",
			})
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, tt.message, res.Meta.Message)
			assert.Equal(t, "error", res.Meta.Status)
		})
	}
}

func TestCreateLeaveRequest_Multipart(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("start_date", "2027-07-01"))
	require.NoError(t, mw.WriteField("end_date", "2027-07-02"))
	require.NoError(t, mw.WriteField("reason", "medical"))
	fw, err := mw.CreateFormFile("attachment", "note.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/leave-requests", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(testAlice))
	res := s.serve(req)
	require.Equal(t, http.StatusCreated, res.Code, res.Meta.Message)

	created := decode[requestJSON](t, res.Data)
	require.NotNil(t, created.Attachment)
	_, err = s.files.Path(*created.Attachment)
	assert.NoError(t, err)
}

func TestCreateLeaveRequest_MultipartRejectsFileType(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("start_date", "2027-07-01"))
	require.NoError(t, mw.WriteField("end_date", "2027-07-02"))
	require.NoError(t, mw.WriteField("reason", "medical"))
	fw, err := mw.CreateFormFile("attachment", "run.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/leave-requests", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(testAlice))
	res := s.serve(req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, decode[map[string]string](t, res.Data), "attachment")
}

func TestDecideLeaveRequest(t *testing.T) {
	s := newTestServer(t)
	a := s.createRequest(testAlice, "2027-05-01", "2027-05-08")
	b := s.createRequest(testAlice, "2027-06-01", "2027-06-08")

	res := s.do(http.MethodPatch, "/api/leave-requests/"+a.ID+"/decide", &testAlice, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Forbidden: Only admin can decide leave requests", res.Meta.Message)

	res = s.do(http.MethodPatch, "/api/leave-requests/"+a.ID+"/decide", &testAdmin, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, MsgValidation, res.Meta.Message)

	res = s.do(http.MethodPatch, "/api/leave-requests/"+a.ID+"/decide", &testAdmin, map[string]string{"status": "approved", "decision_note": "ok"})
	require.Equal(t, http.StatusOK, res.Code, res.Meta.Message)
	decided := decode[requestJSON](t, res.Data)
	assert.Equal(t, "approved", decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, testAdmin.ID, *decided.DecidedBy)

	// Second approval no longer fits: a conflict with state, not bad input.
	res = s.do(http.MethodPatch, "/api/leave-requests/"+b.ID+"/decide", &testAdmin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Insufficient leave quota to approve this request", res.Meta.Message)

	res = s.do(http.MethodPatch, "/api/leave-requests/"+a.ID+"/decide", &testAdmin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Leave request has already been decided", res.Meta.Message)

	res = s.do(http.MethodPatch, "/api/leave-requests/missing/decide", &testAdmin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCancelLeaveRequest(t *testing.T) {
	s := newTestServer(t)
	req := s.createRequest(testAlice, "2027-05-01", "2027-05-02")

	res := s.do(http.MethodPatch, "/api/leave-requests/"+req.ID+"/cancel", &testBob, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(http.MethodPatch, "/api/leave-requests/"+req.ID+"/cancel", &testAlice, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, MsgCancelData, res.Meta.Message)
	assert.Equal(t, "cancelled", decode[requestJSON](t, res.Data).Status)

	res = s.do(http.MethodPatch, "/api/leave-requests/"+req.ID+"/cancel", &testAlice, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Cannot cancel leave request that is not pending", res.Meta.Message)
}

func TestListAndShowLeaveRequests(t *testing.T) {
	s := newTestServer(t)

	res := s.do(http.MethodGet, "/api/leave-requests", &testAlice, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Data Not Found", res.Meta.Message)

	mine := s.createRequest(testAlice, "2027-05-01", "2027-05-02")
	s.createRequest(testAlice, "2027-06-01", "2027-06-02")
	s.createRequest(testBob, "2027-05-01", "2027-05-02")

	res = s.do(http.MethodGet, "/api/leave-requests?limit=1", &testAlice, nil)
	require.Equal(t, http.StatusOK, res.Code)
	page := decode[struct {
		Total    int           `json:"total"`
		PerPage  int           `json:"per_page"`
		LastPage int           `json:"last_page"`
		Data     []requestJSON `json:"data"`
	}](t, res.Data)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.PerPage)
	assert.Equal(t, 2, page.LastPage)
	assert.Len(t, page.Data, 1)

	res = s.do(http.MethodGet, "/api/leave-requests?status=pending&user_id="+testBob.ID, &testAdmin, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = s.do(http.MethodGet, "/api/leave-requests?status=archived", &testAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(http.MethodGet, "/api/leave-requests?page=abc", &testAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(http.MethodGet, "/api/leave-requests/"+mine.ID, &testBob, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(http.MethodGet, "/api/leave-requests/"+mine.ID, &testAdmin, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

// =============================================================================
// QUOTA / ADMIN
// =============================================================================

func TestQuotaEndpoints(t *testing.T) {
	s := newTestServer(t)
	req := s.createRequest(testAlice, "2027-05-01", "2027-05-03")
	res := s.do(http.MethodPatch, "/api/leave-requests/"+req.ID+"/decide", &testAdmin, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, res.Code)
	s.createRequest(testAlice, "2027-06-01", "2027-06-01")

	res = s.do(http.MethodGet, "/api/my-leave-quota?year=2027", &testAlice, nil)
	require.Equal(t, http.StatusOK, res.Code)
	view := decode[leave.QuotaView](t, res.Data)
	assert.Equal(t, leave.QuotaView{UserID: testAlice.ID, Year: 2027, QuotaDays: 12, ApprovedDays: 3, PendingDays: 1, RemainingDays: 9}, view)

	res = s.do(http.MethodGet, "/api/admin/users/"+testAlice.ID+"/leave-quota?year=2027", &testAdmin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, view, decode[leave.QuotaView](t, res.Data))

	res = s.do(http.MethodGet, "/api/admin/users/"+testAlice.ID+"/leave-quota", &testBob, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestEntitlementEndpoints(t *testing.T) {
	s := newTestServer(t)

	res := s.do(http.MethodPost, "/api/admin/leave-entitlements", &testAdmin, map[string]any{"user_id": testAlice.ID, "year": 2028})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Quota Days is required", decode[map[string]string](t, res.Data)["quota_days"])

	body := map[string]any{"user_id": testAlice.ID, "year": 2028, "quota_days": 15, "carried_forward_days": 2}
	res = s.do(http.MethodPost, "/api/admin/leave-entitlements", &testAdmin, body)
	require.Equal(t, http.StatusCreated, res.Code, res.Meta.Message)
	ent := decode[leave.Entitlement](t, res.Data)
	assert.Equal(t, 15, ent.QuotaDays)

	res = s.do(http.MethodPost, "/api/admin/leave-entitlements", &testAdmin, body)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Leave Entitlements Already Exists", res.Meta.Message)

	res = s.do(http.MethodPost, "/api/admin/leave-entitlements", &testAdmin, map[string]any{"user_id": testAdmin.ID, "year": 2028, "quota_days": 1})
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "User Not Employee", res.Meta.Message)

	res = s.do(http.MethodPut, "/api/admin/leave-entitlements/"+ent.ID, &testAdmin, map[string]any{"quota_days": 20, "carried_forward_days": 0})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 20, decode[leave.Entitlement](t, res.Data).QuotaDays)

	res = s.do(http.MethodGet, "/api/admin/leave-entitlements?created_by=me&name=ali", &testAdmin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, decode[PageDTO](t, res.Data).Total)

	res = s.do(http.MethodGet, "/api/admin/leave-entitlements/"+ent.ID, &testAlice, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestUserAndAuditEndpoints(t *testing.T) {
	s := newTestServer(t)

	res := s.do(http.MethodPost, "/api/admin/users", &testAdmin, map[string]string{"name": "Carol", "role": "manager"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Role must be one of: employee, admin", decode[map[string]string](t, res.Data)["role"])

	res = s.do(http.MethodPost, "/api/admin/users", &testAdmin, map[string]string{"id": "emp-carol", "name": "Carol", "role": "employee"})
	require.Equal(t, http.StatusCreated, res.Code, res.Meta.Message)

	res = s.do(http.MethodGet, "/api/admin/users?role=employee", &testAdmin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, decode[[]leave.User](t, res.Data), 3)

	res = s.do(http.MethodGet, "/api/admin/users/emp-carol", &testAlice, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(http.MethodGet, "/api/admin/audit?action=user_created&limit=2", &testAdmin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	entries := decode[[]AuditEntryDTO](t, res.Data)
	require.Len(t, entries, 2)
	assert.Equal(t, "emp-carol", entries[0].SubjectID)
	assert.Equal(t, testAdmin.ID, entries[0].ActorID)
}
