/*
policy.go - Role-based access policy

PURPOSE:
  Decides which roles may perform which actions, and whether a caller may
  see a particular leave request. Role capabilities live in a casbin model
  so they can be audited as data rather than scattered if-statements.

CAPABILITIES:
  employee: create, cancel, read own requests, read own quota
  admin:    read all requests, decide, manage entitlements and users,
            read any quota, read the audit trail

OWNERSHIP:
  Reading a single request needs either read:all or (read:own and being
  the owner). Cancel additionally requires ownership; that check lives in
  decision.go because it needs the locked row.

SEE ALSO:
  - service.go: Every operation starts with Authorize
*/
package leave

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/warp/leave-engine/generic"
)

type Action string

const (
	ActionCreateRequest      Action = "request:create"
	ActionCancelRequest      Action = "request:cancel"
	ActionReadOwnRequests    Action = "request:read_own"
	ActionReadAllRequests    Action = "request:read_all"
	ActionDecideRequest      Action = "request:decide"
	ActionReadOwnQuota       Action = "quota:read_own"
	ActionReadAnyQuota       Action = "quota:read_any"
	ActionManageEntitlements Action = "entitlement:manage"
	ActionManageUsers        Action = "user:manage"
	ActionReadAudit          Action = "audit:read"
)

const policyModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

var rolePolicies = map[Role][]Action{
	RoleEmployee: {
		ActionCreateRequest,
		ActionCancelRequest,
		ActionReadOwnRequests,
		ActionReadOwnQuota,
	},
	RoleAdmin: {
		ActionReadAllRequests,
		ActionDecideRequest,
		ActionReadAnyQuota,
		ActionManageEntitlements,
		ActionManageUsers,
		ActionReadAudit,
	},
}

// forbiddenMessages overrides the generic denial text for actions whose
// messages callers already depend on.
var forbiddenMessages = map[Action]string{
	ActionCreateRequest: "Forbidden: Only employee can create leave requests",
	ActionCancelRequest: "Forbidden: Only employee can cancel leave requests",
	ActionDecideRequest: "Forbidden: Only admin can decide leave requests",
}

const forbiddenDefault = "Forbidden: You do not have access to this resource"

// Policy enforces role capabilities.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	for role, actions := range rolePolicies {
		for _, act := range actions {
			if _, err := e.AddPolicy(string(role), string(act)); err != nil {
				return nil, fmt.Errorf("add policy %s/%s: %w", role, act, err)
			}
		}
	}
	return &Policy{enforcer: e}, nil
}

// MustNewPolicy panics if the built-in model fails to load.
func MustNewPolicy() *Policy {
	p, err := NewPolicy()
	if err != nil {
		panic(err)
	}
	return p
}

// Can reports whether the caller's role grants act.
func (p *Policy) Can(caller Caller, act Action) bool {
	ok, err := p.enforcer.Enforce(string(caller.Role), string(act))
	return err == nil && ok
}

// Authorize returns a Forbidden error when the caller's role lacks act.
func (p *Policy) Authorize(caller Caller, act Action) error {
	if caller.ID == "" {
		return generic.NewError(generic.KindUnauthorized, "Unauthenticated")
	}
	if p.Can(caller, act) {
		return nil
	}
	msg, ok := forbiddenMessages[act]
	if !ok {
		msg = forbiddenDefault
	}
	return generic.NewError(generic.KindForbidden, msg)
}

// CanView reports whether the caller may see req.
func (p *Policy) CanView(caller Caller, req *LeaveRequest) bool {
	if p.Can(caller, ActionReadAllRequests) {
		return true
	}
	return p.Can(caller, ActionReadOwnRequests) && req.UserID == caller.ID
}

// ScopeRequests restricts a listing filter to what the caller may see.
// Administrators keep whatever user filter they asked for.
func (p *Policy) ScopeRequests(caller Caller, filter RequestFilter) (RequestFilter, error) {
	if p.Can(caller, ActionReadAllRequests) {
		return filter, nil
	}
	if err := p.Authorize(caller, ActionReadOwnRequests); err != nil {
		return filter, err
	}
	filter.UserID = caller.ID
	return filter, nil
}
