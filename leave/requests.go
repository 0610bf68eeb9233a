package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// GetRequest returns one request if the caller owns it or is an admin.
func (s *Service) GetRequest(ctx context.Context, caller Caller, id string) (*LeaveRequest, error) {
	if !s.Policy.Can(caller, ActionReadAllRequests) {
		if err := s.Policy.Authorize(caller, ActionReadOwnRequests); err != nil {
			return nil, err
		}
	}

	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, generic.NewError(generic.KindNotFound, "Data Not Found")
	}
	if !s.Policy.CanView(caller, req) {
		return nil, generic.NewError(generic.KindForbidden, forbiddenDefault)
	}
	return req, nil
}

// ListRequests returns the caller's view of requests, newest first.
// Employees only ever see their own. An empty page is NotFound.
func (s *Service) ListRequests(ctx context.Context, caller Caller, filter RequestFilter) (generic.Page[LeaveRequest], error) {
	filter, err := s.Policy.ScopeRequests(caller, filter)
	if err != nil {
		return generic.Page[LeaveRequest]{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return generic.Page[LeaveRequest]{}, generic.NewError(generic.KindInvalidInput, "Unknown status "+string(filter.Status))
	}
	filter.Pagination = filter.Pagination.Normalize()

	page, err := s.Store.ListRequests(ctx, filter)
	if err != nil {
		return page, fmt.Errorf("list requests: %w", err)
	}
	if len(page.Items) == 0 {
		return page, generic.NewError(generic.KindNotFound, "Data Not Found")
	}
	return page, nil
}

// ListAudit returns audit entries newest first.
func (s *Service) ListAudit(ctx context.Context, caller Caller, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	if err := s.Policy.Authorize(caller, ActionReadAudit); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	entries, err := s.Store.QueryAudit(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	return entries, nil
}
