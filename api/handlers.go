/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes leave.Service over REST. Handles HTTP request/response, input
  validation and the response envelope; every rule lives in leave.

ENDPOINTS:
  Self:
    GET    /api/me                               Caller's user record
    GET    /api/my-leave-quota?year=             Caller's quota (employee)

  Leave requests (role-filtered):
    GET    /api/leave-requests                   List (admin: all, employee: own)
    POST   /api/leave-requests                   Create (employee, JSON or multipart)
    GET    /api/leave-requests/{id}              Show (owner or admin)
    PATCH  /api/leave-requests/{id}/cancel       Cancel (owner, pending only)
    PATCH  /api/leave-requests/{id}/decide       Approve/reject (admin)

  Admin:
    GET    /api/admin/users                      List users
    POST   /api/admin/users                      Create user
    GET    /api/admin/users/{id}                 Show user
    GET    /api/admin/users/{id}/leave-quota     Any user's quota
    GET    /api/admin/leave-entitlements         List entitlements
    POST   /api/admin/leave-entitlements         Create entitlement
    GET    /api/admin/leave-entitlements/{id}    Show entitlement
    PUT    /api/admin/leave-entitlements/{id}    Update quota/carry
    GET    /api/admin/audit                      Audit trail

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (400 "Validation Error" with per-field messages)
  3. Call leave.Service with the authenticated caller
  4. Wrap the result in the envelope
  5. Map error kinds to status codes (response.go)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// UploadValidator checks an attachment before the request body is accepted.
type UploadValidator interface {
	Validate(filename string, size int64) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service        *leave.Service
	Uploads        UploadValidator
	MaxUploadBytes int64

	validate *validator.Validate
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *leave.Service, uploads UploadValidator, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &Handler{
		Service:        svc,
		Uploads:        uploads,
		MaxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
	}
}

func caller(r *http.Request) leave.Caller {
	c, _ := CallerFrom(r.Context())
	return c
}

// =============================================================================
// HEALTH / SELF
// =============================================================================

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness, and store reachability when the store can tell.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Service.Store.(Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			LoggerFrom(r.Context()).Error("health check failed", zap.Error(err))
			writeFailure(w, http.StatusServiceUnavailable, "Service Unavailable", map[string]string{"status": "down"})
			return
		}
	}
	writeSuccess(w, http.StatusOK, "OK", map[string]string{"status": "up"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	u, err := h.Service.GetUser(r.Context(), c, c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, u)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := leave.RequestFilter{
		ID:     q.Get("id"),
		UserID: q.Get("user_id"),
		Status: leave.Status(q.Get("status")),
	}
	var verr *validationError
	filter.Year, verr = queryInt(q.Get("year"), "year")
	if verr == nil {
		filter.Pagination, verr = queryPagination(q.Get("page"), q.Get("limit"))
	}
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeValidation(w, newValidationError("status", "Status must be one of: pending, approved, rejected, cancelled"))
		return
	}

	page, err := h.Service.ListRequests(r.Context(), caller(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, toPageDTO(page))
}

func (h *Handler) GetLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.GetRequest(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, req)
}

// CreateLeaveRequest accepts JSON or multipart/form-data with an optional
// "attachment" file.
func (h *Handler) CreateLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var dto CreateLeaveRequestRequest
	var upload *leave.Upload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var verr *validationError
		dto, upload, verr = h.parseMultipartCreate(w, r)
		if verr != nil {
			writeValidation(w, verr)
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeValidation(w, newValidationError("body", "Request body must be valid JSON"))
		return
	}

	if verr := h.validateStruct(dto); verr != nil {
		writeValidation(w, verr)
		return
	}
	start, _ := generic.ParseDate(dto.StartDate)
	end, _ := generic.ParseDate(dto.EndDate)
	if end.Before(start) {
		writeValidation(w, newValidationError("end_date", "End Date must be a date after or equal to start date"))
		return
	}

	req, err := h.Service.CreateRequest(r.Context(), caller(r), leave.CreateRequestInput{
		StartDate:  start,
		EndDate:    end,
		Reason:     strings.TrimSpace(dto.Reason),
		Attachment: upload,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, MsgCreateData, req)
}

func (h *Handler) parseMultipartCreate(w http.ResponseWriter, r *http.Request) (CreateLeaveRequestRequest, *leave.Upload, *validationError) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.MaxUploadBytes + (1 << 20)); err != nil {
		return CreateLeaveRequestRequest{}, nil, newValidationError("attachment", "The upload is too large or malformed")
	}
	dto := CreateLeaveRequestRequest{
		StartDate: r.FormValue("start_date"),
		EndDate:   r.FormValue("end_date"),
		Reason:    r.FormValue("reason"),
	}

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return dto, nil, nil
	}
	if err != nil {
		return dto, nil, newValidationError("attachment", "The attachment failed to upload")
	}
	defer file.Close()

	if h.Uploads != nil {
		if err := h.Uploads.Validate(header.Filename, header.Size); err != nil {
			return dto, nil, newValidationError("attachment", generic.MessageOf(err))
		}
	}
	content, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		return dto, nil, newValidationError("attachment", "The attachment failed to upload")
	}
	if int64(len(content)) > h.MaxUploadBytes {
		return dto, nil, newValidationError("attachment", "The attachment is too large")
	}
	return dto, &leave.Upload{Filename: header.Filename, Content: content}, nil
}

func (h *Handler) CancelLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.CancelRequest(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgCancelData, req)
}

// decideOverrides: an approval that no longer fits is a conflict with
// state changed since submission, not bad input.
var decideOverrides = statusOverrides{generic.KindInsufficientQuota: http.StatusConflict}

func (h *Handler) DecideLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var dto DecideLeaveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeValidation(w, newValidationError("body", "Request body must be valid JSON"))
		return
	}
	if verr := h.validateStruct(dto); verr != nil {
		writeValidation(w, verr)
		return
	}

	req, err := h.Service.DecideRequest(r.Context(), caller(r), chi.URLParam(r, "id"), leave.DecideInput{
		Status: leave.Status(dto.Status),
		Note:   dto.DecisionNote,
	})
	if err != nil {
		writeError(w, r, err, decideOverrides)
		return
	}
	writeSuccess(w, http.StatusOK, MsgUpdateData, req)
}

// =============================================================================
// QUOTA
// =============================================================================

func (h *Handler) MyQuota(w http.ResponseWriter, r *http.Request) {
	year, verr := queryInt(r.URL.Query().Get("year"), "year")
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	view, err := h.Service.MyQuota(r.Context(), caller(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, view)
}

func (h *Handler) UserQuota(w http.ResponseWriter, r *http.Request) {
	year, verr := queryInt(r.URL.Query().Get("year"), "year")
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	view, err := h.Service.UserQuota(r.Context(), caller(r), chi.URLParam(r, "id"), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, view)
}

// =============================================================================
// USERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := leave.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		writeValidation(w, newValidationError("role", "Role must be one of: employee, admin"))
		return
	}
	users, err := h.Service.ListUsers(r.Context(), caller(r), role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []leave.User{}
	}
	writeSuccess(w, http.StatusOK, MsgGetData, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeValidation(w, newValidationError("body", "Request body must be valid JSON"))
		return
	}
	if verr := h.validateStruct(dto); verr != nil {
		writeValidation(w, verr)
		return
	}
	u, err := h.Service.CreateUser(r.Context(), caller(r), leave.CreateUserInput{
		ID:    dto.ID,
		Name:  dto.Name,
		Email: dto.Email,
		Role:  leave.Role(dto.Role),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, MsgCreateData, u)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.GetUser(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, u)
}

// =============================================================================
// ENTITLEMENTS
// =============================================================================

func (h *Handler) ListEntitlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := leave.EntitlementFilter{
		ID:       q.Get("id"),
		UserName: q.Get("name"),
	}
	if q.Get("created_by") == "me" {
		filter.CreatedBy = caller(r).ID
	}
	var verr *validationError
	filter.Year, verr = queryInt(q.Get("year"), "year")
	if verr == nil {
		filter.Pagination, verr = queryPagination(q.Get("page"), q.Get("limit"))
	}
	if verr != nil {
		writeValidation(w, verr)
		return
	}

	page, err := h.Service.ListEntitlements(r.Context(), caller(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, toPageDTO(page))
}

func (h *Handler) CreateEntitlement(w http.ResponseWriter, r *http.Request) {
	var dto CreateEntitlementRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeValidation(w, newValidationError("body", "Request body must be valid JSON"))
		return
	}
	if verr := h.validateStruct(dto); verr != nil {
		writeValidation(w, verr)
		return
	}
	in := leave.CreateEntitlementInput{
		UserID:    dto.UserID,
		Year:      dto.Year,
		QuotaDays: *dto.QuotaDays,
	}
	if dto.CarriedForwardDays != nil {
		in.CarriedForwardDays = *dto.CarriedForwardDays
	}

	ent, err := h.Service.CreateEntitlement(r.Context(), caller(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, MsgCreateData, ent)
}

func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	ent, err := h.Service.GetEntitlement(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, ent)
}

func (h *Handler) UpdateEntitlement(w http.ResponseWriter, r *http.Request) {
	var dto UpdateEntitlementRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeValidation(w, newValidationError("body", "Request body must be valid JSON"))
		return
	}
	if verr := h.validateStruct(dto); verr != nil {
		writeValidation(w, verr)
		return
	}
	ent, err := h.Service.UpdateEntitlement(r.Context(), caller(r), chi.URLParam(r, "id"), leave.UpdateEntitlementInput{
		QuotaDays:          *dto.QuotaDays,
		CarriedForwardDays: *dto.CarriedForwardDays,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgUpdateData, ent)
}

// =============================================================================
// AUDIT
// =============================================================================

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := generic.AuditFilter{
		UserID:  q.Get("user_id"),
		ActorID: q.Get("actor_id"),
	}
	if a := q.Get("action"); a != "" {
		filter.Actions = []generic.AuditAction{generic.AuditAction(a)}
	}
	limit, verr := queryInt(q.Get("limit"), "limit")
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	filter.Limit = limit

	entries, err := h.Service.ListAudit(r.Context(), caller(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, MsgGetData, toAuditDTOs(entries))
}

// =============================================================================
// HELPERS
// =============================================================================

func queryInt(raw, field string) (int, *validationError) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newValidationError(field, formatFieldName(field)+" must be a positive integer")
	}
	return n, nil
}

func queryPagination(page, limit string) (generic.Pagination, *validationError) {
	p, verr := queryInt(page, "page")
	if verr != nil {
		return generic.Pagination{}, verr
	}
	l, verr := queryInt(limit, "limit")
	if verr != nil {
		return generic.Pagination{}, verr
	}
	if l > 100 {
		return generic.Pagination{}, newValidationError("limit", "Limit may not be greater than 100")
	}
	return generic.Pagination{Page: p, Limit: l}, nil
}
