package leave

import (
	"context"

	"go.uber.org/zap"
)

// QuotaView is the caller-facing summary of one user's year.
type QuotaView struct {
	UserID             string `json:"user_id"`
	Year               int    `json:"year"`
	QuotaDays          int    `json:"quota_days"`
	CarriedForwardDays int    `json:"carried_forward_days"`
	ApprovedDays       int    `json:"approved_days"`
	PendingDays        int    `json:"pending_days"`
	RemainingDays      int    `json:"remaining_days"`
}

func quotaViewOf(b Balance) QuotaView {
	return QuotaView{
		UserID:             b.UserID,
		Year:               b.Year,
		QuotaDays:          b.Quota.Int(),
		CarriedForwardDays: b.CarriedForward.Int(),
		ApprovedDays:       b.Approved.Int(),
		PendingDays:        b.Pending.Int(),
		RemainingDays:      b.Remaining().Int(),
	}
}

// MyQuota reports the caller's own balance. year 0 means the current year.
func (s *Service) MyQuota(ctx context.Context, caller Caller, year int) (QuotaView, error) {
	if err := s.Policy.Authorize(caller, ActionReadOwnQuota); err != nil {
		return QuotaView{}, err
	}
	return s.quota(ctx, caller.ID, year)
}

// UserQuota reports any user's balance for administrators.
func (s *Service) UserQuota(ctx context.Context, caller Caller, userID string, year int) (QuotaView, error) {
	if err := s.Policy.Authorize(caller, ActionReadAnyQuota); err != nil {
		return QuotaView{}, err
	}
	if _, err := s.GetUser(ctx, caller, userID); err != nil {
		return QuotaView{}, err
	}
	return s.quota(ctx, userID, year)
}

func (s *Service) quota(ctx context.Context, userID string, year int) (QuotaView, error) {
	if year == 0 {
		year = s.currentYear()
	}
	bal, err := s.Balances.Snapshot(ctx, s.Store, userID, year)
	if err != nil {
		s.logFailure("quota", err, zap.String("user_id", userID), zap.Int("year", year))
		return QuotaView{}, err
	}
	return quotaViewOf(bal), nil
}
