/*
decision.go - Approve, reject and cancel

PURPOSE:
  The only transitions out of pending:

    pending --decide(approved)--> approved
    pending --decide(rejected)--> rejected
    pending --cancel(owner)-----> cancelled

  Every other status is terminal.

DECIDE (one transaction):
  1. Lock the request row                        -> NotFound
  2. Status must be pending                      -> AlreadyDecided
  3. If approving:
       lock the owner's user row                 -> NotFound
       recompute the balance from committed data
       request_days must fit                     -> InsufficientQuota
  4. Set status, decided_by, decided_at, decision_note; audit

  Because the owner row is locked before the balance is read, two approvals
  for the same user run one after the other and the second sees the first.

CANCEL (one transaction):
  Lock the request, require owner and pending, set cancelled. Decision
  fields are left untouched.

SEE ALSO:
  - balance.go: Available
  - validator.go: The create-time check
*/
package leave

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

type DecideInput struct {
	Status Status
	Note   *string
}

// DecideRequest approves or rejects a pending request.
func (s *Service) DecideRequest(ctx context.Context, caller Caller, id string, in DecideInput) (*LeaveRequest, error) {
	if err := s.Policy.Authorize(caller, ActionDecideRequest); err != nil {
		return nil, err
	}
	if !in.Status.Decision() {
		return nil, generic.NewError(generic.KindInvalidInput, "Status must be approved or rejected")
	}

	s.Logger.Debug("decide request",
		zap.String("request_id", id),
		zap.String("decision", string(in.Status)),
		zap.String("admin_id", caller.ID),
	)

	var req *LeaveRequest
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.LockRequest(ctx, id)
		if err != nil {
			return fmt.Errorf("lock request: %w", err)
		}
		if req == nil {
			return generic.NewError(generic.KindNotFound, "Data Not Found")
		}
		if req.Status != StatusPending {
			return generic.NewError(generic.KindAlreadyDecided, "Leave request has already been decided")
		}

		if in.Status == StatusApproved {
			owner, err := tx.LockUser(ctx, req.UserID)
			if err != nil {
				return fmt.Errorf("lock user: %w", err)
			}
			if owner == nil {
				return generic.NewError(generic.KindNotFound, "User Not Found")
			}
			req.User = owner

			bal, err := s.Balances.Available(ctx, tx, req.UserID, req.Year())
			if err != nil {
				return err
			}
			if !bal.CanConsume(req.RequestDays) {
				return &generic.InsufficientQuotaError{
					UserID:    req.UserID,
					Year:      req.Year(),
					Available: bal.Available(),
					Requested: generic.Days(req.RequestDays),
					Message:   "Insufficient leave quota to approve this request",
				}
			}
		}

		now := s.Now().UTC()
		decider := caller.ID
		req.Status = in.Status
		req.DecidedBy = &decider
		req.DecidedAt = &now
		req.DecisionNote = in.Note
		req.UpdatedAt = now

		if err := tx.UpdateRequestStatus(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		if req.User == nil {
			if req.User, err = tx.GetUser(ctx, req.UserID); err != nil {
				return fmt.Errorf("get user: %w", err)
			}
		}
		if req.Decider, err = tx.GetUser(ctx, caller.ID); err != nil {
			return fmt.Errorf("get decider: %w", err)
		}

		action := generic.AuditRequestRejected
		if in.Status == StatusApproved {
			action = generic.AuditRequestApproved
		}
		payload := map[string]any{"request_days": req.RequestDays}
		if in.Note != nil {
			payload["decision_note"] = *in.Note
		}
		return s.audit(ctx, tx, caller, action, req.ID, req.UserID, payload)
	})
	if err != nil {
		s.logFailure("decide request", err, zap.String("request_id", id), zap.String("decision", string(in.Status)))
		return nil, err
	}

	s.Logger.Info("leave request decided",
		zap.String("request_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.String("status", string(req.Status)),
		zap.String("admin_id", caller.ID),
	)
	return req, nil
}

// CancelRequest withdraws the caller's own pending request.
func (s *Service) CancelRequest(ctx context.Context, caller Caller, id string) (*LeaveRequest, error) {
	if err := s.Policy.Authorize(caller, ActionCancelRequest); err != nil {
		return nil, err
	}

	var req *LeaveRequest
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.LockRequest(ctx, id)
		if err != nil {
			return fmt.Errorf("lock request: %w", err)
		}
		if req == nil {
			return generic.NewError(generic.KindNotFound, "Data Not Found")
		}
		if req.UserID != caller.ID {
			return generic.NewError(generic.KindForbidden, forbiddenDefault)
		}
		if req.Status != StatusPending {
			return generic.NewError(generic.KindInvalidState, "Cannot cancel leave request that is not pending")
		}

		req.Status = StatusCancelled
		req.UpdatedAt = s.Now().UTC()
		if err := tx.UpdateRequestStatus(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if req.User, err = tx.GetUser(ctx, req.UserID); err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return s.audit(ctx, tx, caller, generic.AuditRequestCanceled, req.ID, req.UserID, nil)
	})
	if err != nil {
		s.logFailure("cancel request", err, zap.String("request_id", id), zap.String("user_id", caller.ID))
		return nil, err
	}

	s.Logger.Info("leave request cancelled", zap.String("request_id", req.ID), zap.String("user_id", req.UserID))
	return req, nil
}
