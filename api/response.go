package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the shape of every response body.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type Meta struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	MsgGetData       = "Success Get Data"
	MsgCreateData    = "Success Create Data"
	MsgUpdateData    = "Success Update Data"
	MsgCancelData    = "Success Cancel Data"
	MsgValidation    = "Validation Error"
	MsgTooManyReqs   = "Too Many Requests"
	MsgUnauthorized  = "Unauthenticated"
	MsgInternalError = "Internal Server Error"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Meta: Meta{Code: status, Status: "success", Message: message},
		Data: data,
	})
}

func writeFailure(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Meta: Meta{Code: status, Status: "error", Message: message},
		Data: data,
	})
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

var kindStatus = map[generic.Kind]int{
	generic.KindNotFound:          http.StatusNotFound,
	generic.KindUnauthorized:      http.StatusUnauthorized,
	generic.KindForbidden:         http.StatusForbidden,
	generic.KindInvalidInput:      http.StatusBadRequest,
	generic.KindInvalidRange:      http.StatusBadRequest,
	generic.KindInvalidState:      http.StatusBadRequest,
	generic.KindInsufficientQuota: http.StatusBadRequest,
	generic.KindOverlap:           http.StatusConflict,
	generic.KindAlreadyDecided:    http.StatusConflict,
	generic.KindConflict:          http.StatusConflict,
	generic.KindInternal:          http.StatusInternalServerError,
}

// statusOverrides lets one route map a kind differently.
type statusOverrides map[generic.Kind]int

// writeError maps err to a status and envelope. Internal details are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error, overrides ...statusOverrides) {
	kind := generic.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	for _, o := range overrides {
		if s, ok := o[kind]; ok {
			status = s
		}
	}

	if status >= http.StatusInternalServerError {
		LoggerFrom(r.Context()).Error("request failed", zap.Error(err))
	}
	writeFailure(w, status, generic.MessageOf(err), nil)
}

// validationError carries per-field messages for a 400 "Validation Error".
type validationError struct {
	Fields map[string]string
}

func (e *validationError) Error() string { return MsgValidation }

func newValidationError(field, message string) *validationError {
	return &validationError{Fields: map[string]string{field: message}}
}

func writeValidation(w http.ResponseWriter, err *validationError) {
	writeFailure(w, http.StatusBadRequest, MsgValidation, err.Fields)
}
