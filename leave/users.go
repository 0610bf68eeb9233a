package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

type CreateUserInput struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// CreateUser registers a user. An empty ID gets a generated one.
func (s *Service) CreateUser(ctx context.Context, caller Caller, in CreateUserInput) (*User, error) {
	if err := s.Policy.Authorize(caller, ActionManageUsers); err != nil {
		return nil, err
	}
	u, err := s.insertUser(ctx, caller, in)
	if err != nil {
		s.logFailure("create user", err, zap.String("user_id", in.ID))
		return nil, err
	}
	s.Logger.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// EnsureUser creates the user if missing, bypassing the policy. Used at
// startup to seed the first administrator.
func (s *Service) EnsureUser(ctx context.Context, in CreateUserInput) (*User, error) {
	existing, err := s.Store.GetUser(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	u, err := s.insertUser(ctx, Caller{ID: "system", Role: RoleAdmin}, in)
	if errors.Is(err, generic.ErrConflict) {
		return s.Store.GetUser(ctx, in.ID)
	}
	return u, err
}

func (s *Service) insertUser(ctx context.Context, caller Caller, in CreateUserInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, generic.NewError(generic.KindInvalidInput, "Role must be employee or admin")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, generic.NewError(generic.KindInvalidInput, "Name is required")
	}
	u := &User{
		ID:        in.ID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Role:      in.Role,
		CreatedAt: s.Now().UTC(),
	}
	if u.ID == "" {
		u.ID = s.NewID()
	}

	err := s.Store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertUser(ctx, u); err != nil {
			if errors.Is(err, generic.ErrConflict) {
				return generic.Wrap(generic.KindConflict, "User Already Exists", err)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return s.audit(ctx, tx, caller, generic.AuditUserCreated, u.ID, u.ID, map[string]any{"role": string(u.Role)})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, caller Caller, id string) (*User, error) {
	if caller.ID != id {
		if err := s.Policy.Authorize(caller, ActionManageUsers); err != nil {
			return nil, err
		}
	}
	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, generic.NewError(generic.KindNotFound, "User Not Found")
	}
	return u, nil
}

// ListUsers lists users, optionally restricted to one role.
func (s *Service) ListUsers(ctx context.Context, caller Caller, role Role) ([]User, error) {
	if err := s.Policy.Authorize(caller, ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := s.Store.ListUsers(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
