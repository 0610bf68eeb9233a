/*
service.go - Entry point for every leave operation

PURPOSE:
  Service bundles the store, the access policy, the balance calculator and
  the optional attachment store. Each exported method is one operation:
  authorize, run the rules inside a transaction, log the outcome.

OPERATIONS:
  Requests:     CreateRequest, CancelRequest, DecideRequest,
                GetRequest, ListRequests
  Quota:        MyQuota, UserQuota
  Entitlements: CreateEntitlement, UpdateEntitlement,
                GetEntitlement, ListEntitlements
  Users:        CreateUser, GetUser, ListUsers, EnsureUser
  Audit:        ListAudit

LOGGING:
  Rule rejections (overlap, quota, already decided) are Warn, store
  failures are Error, successful writes are Info.

SEE ALSO:
  - validator.go: CreateRequest
  - decision.go: DecideRequest, CancelRequest
  - quota.go: MyQuota, UserQuota
  - provisioner.go: ProvisionYear and the background provisioner
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

type Service struct {
	Store        Store
	Policy       *Policy
	Entitlements *EntitlementStore
	Balances     *BalanceCalculator
	Attachments  AttachmentStore
	Logger       *zap.Logger
	Now          func() time.Time
	NewID        func() string
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.Logger = l
		}
	}
}

func WithAttachments(a AttachmentStore) Option {
	return func(s *Service) { s.Attachments = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.Now = now }
}

func NewService(store Store, policy *Policy, opts ...Option) *Service {
	s := &Service{
		Store:  store,
		Policy: policy,
		Logger: zap.L().Named("leave.service"),
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Entitlements = &EntitlementStore{Now: s.Now, NewID: s.NewID}
	s.Balances = NewBalanceCalculator(s.Entitlements)
	return s
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) audit(ctx context.Context, tx Tx, caller Caller, action generic.AuditAction, subjectID, userID string, payload map[string]any) error {
	return tx.AppendAudit(ctx, generic.AuditEntry{
		ID:        s.NewID(),
		Timestamp: s.Now().UTC(),
		ActorID:   caller.ID,
		Action:    action,
		SubjectID: subjectID,
		UserID:    userID,
		Payload:   payload,
	})
}

// logFailure logs client-visible rejections at Warn and everything else at
// Error.
func (s *Service) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err), zap.String("kind", string(generic.KindOf(err))))
	if generic.IsClientError(err) {
		s.Logger.Warn(op+" rejected", fields...)
		return
	}
	s.Logger.Error(op+" failed", fields...)
}

// currentYear is the year in the service clock's location.
func (s *Service) currentYear() int { return s.Now().Year() }
