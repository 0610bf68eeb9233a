/*
dto.go - Request/response data transfer objects

PURPOSE:
  Wire shapes for the HTTP API, kept apart from the leave package's types
  so JSON field names and validation tags can change without touching the
  rules.

VALIDATION:
  Request DTOs carry go-playground/validator tags. Field names in error
  messages come from the json tag, title-cased ("start_date" -> "Start Date").

SEE ALSO:
  - handlers.go: Uses these DTOs
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// REQUEST DTOs
// =============================================================================

type CreateLeaveRequestRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

type DecideLeaveRequestRequest struct {
	Status       string  `json:"status" validate:"required,oneof=approved rejected"`
	DecisionNote *string `json:"decision_note" validate:"omitempty,max=1000"`
}

type CreateEntitlementRequest struct {
	UserID             string `json:"user_id" validate:"required"`
	Year               int    `json:"year" validate:"required,min=1900,max=2100"`
	QuotaDays          *int   `json:"quota_days" validate:"required,min=0"`
	CarriedForwardDays *int   `json:"carried_forward_days" validate:"omitempty,min=0"`
}

type UpdateEntitlementRequest struct {
	QuotaDays          *int `json:"quota_days" validate:"required,min=0"`
	CarriedForwardDays *int `json:"carried_forward_days" validate:"required,min=0"`
}

type CreateUserRequest struct {
	ID    string `json:"id" validate:"omitempty,max=64"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"required,oneof=employee admin"`
}

// =============================================================================
// RESPONSE DTOs
// =============================================================================

// PageDTO mirrors the paginator shape clients already consume.
type PageDTO struct {
	CurrentPage int `json:"current_page"`
	Data        any `json:"data"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

func toPageDTO[T any](p generic.Page[T]) PageDTO {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return PageDTO{
		CurrentPage: p.Page,
		Data:        items,
		PerPage:     p.Limit,
		Total:       p.Total,
		LastPage:    p.LastPage(),
	}
}

type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	SubjectID string         `json:"subject_id"`
	UserID    string         `json:"user_id"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func toAuditDTOs(entries []generic.AuditEntry) []AuditEntryDTO {
	out := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryDTO{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			SubjectID: e.SubjectID,
			UserID:    e.UserID,
			Payload:   e.Payload,
		})
	}
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatFieldName turns "start_date" into "Start Date". Casers are
// stateful, so each call gets its own.
func formatFieldName(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// validateStruct runs the tags and converts failures into field messages.
func (h *Handler) validateStruct(dto any) *validationError {
	err := h.validate.Struct(dto)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return newValidationError("body", "Invalid input")
	}

	out := &validationError{Fields: make(map[string]string, len(errs))}
	for _, e := range errs {
		name := e.Field()
		if _, seen := out.Fields[name]; seen {
			continue
		}
		out.Fields[name] = fieldMessage(formatFieldName(name), e)
	}
	return out
}

func fieldMessage(label string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return label + " is required"
	case "datetime":
		return label + " must be a date in YYYY-MM-DD format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(e.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", label, e.Param())
	case "max":
		return fmt.Sprintf("%s may not be greater than %s", label, e.Param())
	case "email":
		return label + " must be a valid email address"
	default:
		return label + " is invalid"
	}
}
