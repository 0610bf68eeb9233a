/*
scenarios.go - Demo scenario loaders for development and demonstrations

PURPOSE:

	Populates the store with realistic leave data so a frontend or a manual
	session has something to look at. Every write goes through leave.Service,
	so the same rules (overlap, quota, decisions, audit) apply as for real
	traffic. Loading acts as the calling admin; employee actions are
	performed as the scenario's own employees.

AVAILABLE SCENARIOS:

	team-basics:     Two employees, one approved, one pending, one rejected
	quota-pressure:  Small allowance with pending requests that cannot all fit
	carry-forward:   Allowance topped up with days carried from last year

HOW SCENARIOS WORK:
 1. Users are created with ids prefixed by the scenario id
 2. Entitlements are set for the current year where the scenario needs one
 3. Requests are filed as the employee, then decided as the admin

Loading is additive. A scenario whose users already exist is reported as a
conflict instead of being loaded twice.

USAGE VIA API:

	GET  /api/admin/scenarios
	POST /api/admin/scenarios/load
	{"scenario_id": "quota-pressure"}

Routes are only mounted when the server runs with APP_ENV=development.

SEE ALSO:
  - server.go: RouterConfig.Scenarios
  - leave/service.go: the operations used here
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, sl *scenarioLoader) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "team-basics",
			Name:        "Team Basics",
			Description: "Two employees on the default allowance with approved, pending and rejected leave",
		},
		load: loadTeamBasics,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "quota-pressure",
			Name:        "Quota Pressure",
			Description: "Five day allowance with two pending three day requests; only one can be approved",
		},
		load: loadQuotaPressure,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "carry-forward",
			Name:        "Carry Forward",
			Description: "Twelve day quota plus four carried forward days, fourteen already approved",
		},
		load: loadCarryForward,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s.ScenarioDTO)
	}
	writeSuccess(w, http.StatusOK, MsgGetData, out)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var dto LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeValidation(w, newValidationError("body", "Request body must be valid JSON"))
		return
	}
	if verr := h.validateStruct(dto); verr != nil {
		writeValidation(w, verr)
		return
	}

	sc, ok := findScenario(dto.ScenarioID)
	if !ok {
		writeValidation(w, newValidationError("scenario_id", "Unknown scenario"))
		return
	}

	sl := &scenarioLoader{
		svc:    h.Service,
		admin:  caller(r),
		prefix: sc.ID,
		year:   h.Service.Now().Year(),
	}
	if err := sl.ensureFresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sc.load(r.Context(), sl); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, MsgCreateData, map[string]any{
		"scenario": sc.ID,
		"users":    sl.users,
	})
}

// =============================================================================
// LOADER
// =============================================================================

type scenarioLoader struct {
	svc    *leave.Service
	admin  leave.Caller
	prefix string
	year   int
	users  []string
}

func (sl *scenarioLoader) userID(name string) string { return sl.prefix + "-" + name }

// ensureFresh rejects a second load of the same scenario.
func (sl *scenarioLoader) ensureFresh(ctx context.Context) error {
	if err := sl.svc.Policy.Authorize(sl.admin, leave.ActionManageUsers); err != nil {
		return err
	}
	existing, err := sl.svc.Store.GetUser(ctx, sl.userID("admin"))
	if err != nil {
		return fmt.Errorf("check scenario: %w", err)
	}
	if existing != nil {
		return generic.NewError(generic.KindConflict, "Scenario already loaded")
	}
	return nil
}

func (sl *scenarioLoader) user(ctx context.Context, name string, role leave.Role) (leave.Caller, error) {
	id := sl.userID(name)
	u, err := sl.svc.CreateUser(ctx, sl.admin, leave.CreateUserInput{
		ID:    id,
		Name:  name,
		Email: id + "@demo.local",
		Role:  role,
	})
	if err != nil {
		return leave.Caller{}, fmt.Errorf("create %s: %w", id, err)
	}
	sl.users = append(sl.users, u.ID)
	return leave.Caller{ID: u.ID, Role: u.Role}, nil
}

func (sl *scenarioLoader) allowance(ctx context.Context, emp leave.Caller, quota, carried int) error {
	_, err := sl.svc.CreateEntitlement(ctx, sl.admin, leave.CreateEntitlementInput{
		UserID:             emp.ID,
		Year:               sl.year,
		QuotaDays:          quota,
		CarriedForwardDays: carried,
	})
	if err != nil {
		return fmt.Errorf("entitlement for %s: %w", emp.ID, err)
	}
	return nil
}

// request files days of leave starting on the given month/day of the
// scenario year.
func (sl *scenarioLoader) request(ctx context.Context, emp leave.Caller, month time.Month, day, days int, reason string) (*leave.LeaveRequest, error) {
	start := generic.NewTimePoint(sl.year, month, day)
	req, err := sl.svc.CreateRequest(ctx, emp, leave.CreateRequestInput{
		StartDate: start,
		EndDate:   start.AddDays(days - 1),
		Reason:    reason,
	})
	if err != nil {
		return nil, fmt.Errorf("request for %s: %w", emp.ID, err)
	}
	return req, nil
}

func (sl *scenarioLoader) decide(ctx context.Context, req *leave.LeaveRequest, status leave.Status, note string) error {
	_, err := sl.svc.DecideRequest(ctx, sl.admin, req.ID, leave.DecideInput{Status: status, Note: &note})
	if err != nil {
		return fmt.Errorf("decide %s: %w", req.ID, err)
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadTeamBasics(ctx context.Context, sl *scenarioLoader) error {
	if _, err := sl.user(ctx, "admin", leave.RoleAdmin); err != nil {
		return err
	}
	alice, err := sl.user(ctx, "alice", leave.RoleEmployee)
	if err != nil {
		return err
	}
	bob, err := sl.user(ctx, "bob", leave.RoleEmployee)
	if err != nil {
		return err
	}

	// Alice: 3 approved, 2 pending -> 9 remaining on the default 12.
	trip, err := sl.request(ctx, alice, time.March, 10, 3, "Family trip")
	if err != nil {
		return err
	}
	if err := sl.decide(ctx, trip, leave.StatusApproved, "Enjoy"); err != nil {
		return err
	}
	if _, err := sl.request(ctx, alice, time.June, 2, 2, "Moving house"); err != nil {
		return err
	}

	// Bob: one rejected request, nothing consumed.
	conf, err := sl.request(ctx, bob, time.April, 14, 5, "Conference")
	if err != nil {
		return err
	}
	return sl.decide(ctx, conf, leave.StatusRejected, "Release week")
}

func loadQuotaPressure(ctx context.Context, sl *scenarioLoader) error {
	if _, err := sl.user(ctx, "admin", leave.RoleAdmin); err != nil {
		return err
	}
	emp, err := sl.user(ctx, "carol", leave.RoleEmployee)
	if err != nil {
		return err
	}
	if err := sl.allowance(ctx, emp, 5, 0); err != nil {
		return err
	}

	// Pending requests do not consume quota, so both are accepted here.
	if _, err := sl.request(ctx, emp, time.May, 5, 3, "Long weekend"); err != nil {
		return err
	}
	_, err = sl.request(ctx, emp, time.August, 11, 3, "Summer break")
	return err
}

func loadCarryForward(ctx context.Context, sl *scenarioLoader) error {
	if _, err := sl.user(ctx, "admin", leave.RoleAdmin); err != nil {
		return err
	}
	emp, err := sl.user(ctx, "dave", leave.RoleEmployee)
	if err != nil {
		return err
	}
	if err := sl.allowance(ctx, emp, 12, 4); err != nil {
		return err
	}

	for _, r := range []struct {
		month time.Month
		day   int
		days  int
	}{
		{time.February, 3, 7},
		{time.July, 14, 7},
	} {
		req, err := sl.request(ctx, emp, r.month, r.day, r.days, "Holiday")
		if err != nil {
			return err
		}
		if err := sl.decide(ctx, req, leave.StatusApproved, ""); err != nil {
			return err
		}
	}
	return nil
}
