package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ENTITLEMENT STORE - Idempotent per-year allowance
// =============================================================================

// EntitlementStore resolves a user's entitlement for a year, creating the
// default {12, 0} the first time a year is touched.
type EntitlementStore struct {
	Now   func() time.Time
	NewID func() string
}

// GetOrCreate returns the (user, year) entitlement. When two callers race
// on the first touch, one insert wins and the other re-reads the winner,
// so both see the same row.
func (es *EntitlementStore) GetOrCreate(ctx context.Context, tx Tx, userID string, year int) (*Entitlement, error) {
	ent, err := tx.GetEntitlement(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("get entitlement: %w", err)
	}
	if ent != nil {
		return ent, nil
	}

	def := DefaultEntitlement(userID, year)
	def.ID = es.NewID()
	def.CreatedAt = es.Now().UTC()
	def.UpdatedAt = def.CreatedAt

	created, err := tx.InsertEntitlementIfAbsent(ctx, &def)
	if err != nil {
		return nil, fmt.Errorf("insert default entitlement: %w", err)
	}
	if created {
		return &def, nil
	}

	ent, err = tx.GetEntitlement(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("re-read entitlement: %w", err)
	}
	if ent == nil {
		return nil, fmt.Errorf("entitlement for %s/%d vanished after conflict", userID, year)
	}
	return ent, nil
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

type CreateEntitlementInput struct {
	UserID             string
	Year               int
	QuotaDays          int
	CarriedForwardDays int
}

type UpdateEntitlementInput struct {
	QuotaDays          int
	CarriedForwardDays int
}

func validateAllowance(year, quota, carried int) error {
	if year < 1900 || year > 2100 {
		return generic.NewError(generic.KindInvalidInput, "Year must be between 1900 and 2100")
	}
	if quota < 0 || carried < 0 {
		return generic.NewError(generic.KindInvalidInput, "Quota and carried forward days must not be negative")
	}
	return nil
}

// CreateEntitlement sets an explicit allowance for an employee and year.
func (s *Service) CreateEntitlement(ctx context.Context, caller Caller, in CreateEntitlementInput) (*Entitlement, error) {
	if err := s.Policy.Authorize(caller, ActionManageEntitlements); err != nil {
		return nil, err
	}
	if err := validateAllowance(in.Year, in.QuotaDays, in.CarriedForwardDays); err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	createdBy := caller.ID
	ent := &Entitlement{
		ID:                 s.NewID(),
		UserID:             in.UserID,
		Year:               in.Year,
		QuotaDays:          in.QuotaDays,
		CarriedForwardDays: in.CarriedForwardDays,
		CreatedBy:          &createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.Store.WithTx(ctx, func(tx Tx) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user == nil {
			return generic.NewError(generic.KindNotFound, "User Not Found")
		}
		if user.Role != RoleEmployee {
			return generic.NewError(generic.KindNotFound, "User Not Employee")
		}

		if err := tx.InsertEntitlement(ctx, ent); err != nil {
			if errors.Is(err, generic.ErrConflict) {
				return generic.Wrap(generic.KindConflict, "Leave Entitlements Already Exists", err)
			}
			return fmt.Errorf("insert entitlement: %w", err)
		}
		ent.User = user

		return s.audit(ctx, tx, caller, generic.AuditEntitlementCreated, ent.ID, ent.UserID, map[string]any{
			"year":                 ent.Year,
			"quota_days":           ent.QuotaDays,
			"carried_forward_days": ent.CarriedForwardDays,
		})
	})
	if err != nil {
		s.logFailure("create entitlement", err, zap.String("user_id", in.UserID), zap.Int("year", in.Year))
		return nil, err
	}

	s.Logger.Info("entitlement created",
		zap.String("entitlement_id", ent.ID),
		zap.String("user_id", ent.UserID),
		zap.Int("year", ent.Year),
		zap.String("admin_id", caller.ID),
	)
	return ent, nil
}

// UpdateEntitlement changes quota and carried-forward days. The owner and
// year of an entitlement never change.
func (s *Service) UpdateEntitlement(ctx context.Context, caller Caller, id string, in UpdateEntitlementInput) (*Entitlement, error) {
	if err := s.Policy.Authorize(caller, ActionManageEntitlements); err != nil {
		return nil, err
	}

	var ent *Entitlement
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		ent, err = tx.GetEntitlementByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get entitlement: %w", err)
		}
		if ent == nil {
			return generic.NewError(generic.KindNotFound, "Data Not Found")
		}
		if err := validateAllowance(ent.Year, in.QuotaDays, in.CarriedForwardDays); err != nil {
			return err
		}

		before := map[string]any{"quota_days": ent.QuotaDays, "carried_forward_days": ent.CarriedForwardDays}
		ent.QuotaDays = in.QuotaDays
		ent.CarriedForwardDays = in.CarriedForwardDays
		ent.UpdatedAt = s.Now().UTC()

		if err := tx.UpdateEntitlement(ctx, ent); err != nil {
			return fmt.Errorf("update entitlement: %w", err)
		}
		return s.audit(ctx, tx, caller, generic.AuditEntitlementUpdated, ent.ID, ent.UserID, map[string]any{
			"before":               before,
			"quota_days":           ent.QuotaDays,
			"carried_forward_days": ent.CarriedForwardDays,
		})
	})
	if err != nil {
		s.logFailure("update entitlement", err, zap.String("entitlement_id", id))
		return nil, err
	}
	return ent, nil
}

func (s *Service) GetEntitlement(ctx context.Context, caller Caller, id string) (*Entitlement, error) {
	if err := s.Policy.Authorize(caller, ActionManageEntitlements); err != nil {
		return nil, err
	}
	ent, err := s.Store.GetEntitlementByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entitlement: %w", err)
	}
	if ent == nil {
		return nil, generic.NewError(generic.KindNotFound, "Data Not Found")
	}
	return ent, nil
}

// ListEntitlements filters by user name substring, year and author. An
// empty page is reported as NotFound.
func (s *Service) ListEntitlements(ctx context.Context, caller Caller, filter EntitlementFilter) (generic.Page[Entitlement], error) {
	if err := s.Policy.Authorize(caller, ActionManageEntitlements); err != nil {
		return generic.Page[Entitlement]{}, err
	}
	filter.Pagination = filter.Pagination.Normalize()

	page, err := s.Store.ListEntitlements(ctx, filter)
	if err != nil {
		return page, fmt.Errorf("list entitlements: %w", err)
	}
	if len(page.Items) == 0 {
		return page, generic.NewError(generic.KindNotFound, "Data Not Found")
	}
	return page, nil
}
