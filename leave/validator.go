/*
validator.go - Request creation rules

PURPOSE:
  Turns a requested date range into a pending leave request, or refuses it.

ALGORITHM:
  1. Normalize both dates to start of day
  2. Both dates must fall in the same calendar year         -> InvalidRange
  3. request_days = inclusive day count, must be > 0         -> InvalidRange
  4. Store the attachment (if any)
  5. No pending/approved request of the user may intersect   -> Overlap
  6. Resolve the year's entitlement (default on first use)
  7. request_days must fit quota + carried - approved        -> InsufficientQuota
  8. Insert as pending, audit

  Steps 5-8 run in one transaction holding the user's row lock, so two
  concurrent creates for the same user see each other's inserts. The file
  is written before the lock is taken and removed again if the transaction
  fails. Pending requests are not counted in step 7; approval re-checks
  the balance.

SEE ALSO:
  - balance.go: Step 6/7
  - decision.go: The approval re-check
*/
package leave

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

type Upload struct {
	Filename string
	Content  []byte
}

type CreateRequestInput struct {
	StartDate  generic.TimePoint
	EndDate    generic.TimePoint
	Reason     string
	Attachment *Upload
}

// RequestRange applies steps 1-3 and returns the normalized period and its
// inclusive day count.
func RequestRange(start, end generic.TimePoint) (generic.Period, int, error) {
	p := generic.Period{
		Start: generic.StartOfDay(start.Time),
		End:   generic.StartOfDay(end.Time),
	}
	if !p.SingleYear() {
		return p, 0, generic.NewError(generic.KindInvalidRange, "Start date and end date must be within the same year")
	}
	days := p.DayCount()
	if days <= 0 {
		return p, 0, generic.NewError(generic.KindInvalidRange, "Invalid date range")
	}
	return p, days, nil
}

// CreateRequest files a new pending request for the caller.
func (s *Service) CreateRequest(ctx context.Context, caller Caller, in CreateRequestInput) (*LeaveRequest, error) {
	if err := s.Policy.Authorize(caller, ActionCreateRequest); err != nil {
		return nil, err
	}

	period, days, err := RequestRange(in.StartDate, in.EndDate)
	if err != nil {
		s.logFailure("create request", err, zap.String("user_id", caller.ID))
		return nil, err
	}
	year := period.Start.Year()

	s.Logger.Debug("create request",
		zap.String("user_id", caller.ID),
		zap.Stringer("period", period),
		zap.Int("days", days),
	)

	now := s.Now().UTC()
	req := &LeaveRequest{
		ID:          s.NewID(),
		UserID:      caller.ID,
		StartDate:   period.Start,
		EndDate:     period.End,
		RequestDays: days,
		Reason:      in.Reason,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var storedRef string
	if in.Attachment != nil && s.Attachments != nil {
		ref, err := s.Attachments.Save(ctx, caller.ID, year, in.Attachment.Filename, in.Attachment.Content)
		if err != nil {
			err = fmt.Errorf("store attachment: %w", err)
			s.logFailure("create request", err, zap.String("user_id", caller.ID))
			return nil, err
		}
		storedRef = ref
		req.Attachment = &ref
	}

	err = s.Store.WithTx(ctx, func(tx Tx) error {
		user, err := tx.LockUser(ctx, caller.ID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if user == nil {
			return generic.NewError(generic.KindNotFound, "User Not Found")
		}

		existing, err := tx.FindOverlap(ctx, caller.ID, period)
		if err != nil {
			return fmt.Errorf("find overlap: %w", err)
		}
		if existing != nil {
			return &generic.OverlapError{
				UserID:     caller.ID,
				ExistingID: existing.ID,
				Requested:  period,
				Message:    "Your leave request overlaps with an existing pending or approved leave.",
			}
		}

		bal, err := s.Balances.Available(ctx, tx, caller.ID, year)
		if err != nil {
			return err
		}
		if !bal.CanConsume(days) {
			return &generic.InsufficientQuotaError{
				UserID:    caller.ID,
				Year:      year,
				Available: bal.Available(),
				Requested: generic.Days(days),
				Message:   "Insufficient leave quota",
			}
		}

		if err := tx.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		req.User = user

		return s.audit(ctx, tx, caller, generic.AuditRequestCreated, req.ID, req.UserID, map[string]any{
			"start_date":   req.StartDate.String(),
			"end_date":     req.EndDate.String(),
			"request_days": req.RequestDays,
		})
	})
	if err != nil {
		if storedRef != "" {
			if rmErr := s.Attachments.Remove(ctx, storedRef); rmErr != nil {
				s.Logger.Error("remove orphaned attachment", zap.String("ref", storedRef), zap.Error(rmErr))
			}
		}
		s.logFailure("create request", err, zap.String("user_id", caller.ID), zap.Stringer("period", period))
		return nil, err
	}

	s.Logger.Info("leave request created",
		zap.String("request_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.Int("days", req.RequestDays),
	)
	return req, nil
}
