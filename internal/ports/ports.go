package ports

import (
	"context"
	"time"

	"OpportunityScanner/internal/domain"
)

// Publisher posts approved drafts back to the source platform.
type Publisher interface {
	Authenticate(ctx context.Context, detectingContext string) (bool, error)
	Publish(ctx context.Context, detectingContext, text string) (domain.PublishReceipt, error)
}

// KeywordStore serves the interest keyword set for a detecting context.
// Implementations are expected to be wrapped in a TTL cache.
type KeywordStore interface {
	GetKeywords(ctx context.Context, detectingContext string) ([]string, error)
}

// DraftGenerator produces reply drafts for opportunities. Implementations
// never fail: when the backing service is unreachable they fall back to a
// deterministic template.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, opp domain.Opportunity, tone string) string
}

// DeliveryAction is a button attached to an outbound message.
type DeliveryAction struct {
	Label string
	Value string
}

// Deliverer pushes a rendered message to a user. Failures here are logged
// and never roll back committed workflow state.
type Deliverer interface {
	Send(ctx context.Context, userID, text string, actions []DeliveryAction) error
}

// OpportunityRepository persists scored opportunities with dedup and TTL.
type OpportunityRepository interface {
	// CreateIfAbsent inserts opp unless its natural key already exists, in
	// which case it returns domain.ErrDuplicate.
	CreateIfAbsent(ctx context.Context, opp domain.Opportunity) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// ApprovalFilter narrows approval listings.
type ApprovalFilter struct {
	Context  string
	Priority domain.Priority
	Status   domain.ApprovalStatus
	Limit    int
}

// ApprovalRepository persists approval items. Transition methods are
// conditional on status=pending so a losing concurrent caller detects the
// race instead of double-applying.
type ApprovalRepository interface {
	Create(ctx context.Context, item domain.ApprovalItem) error
	Get(ctx context.Context, id string) (domain.ApprovalItem, error)
	List(ctx context.Context, filter ApprovalFilter) ([]domain.ApprovalItem, error)

	// UpdateDraftIfPending replaces draft text; returns AlreadyResolvedError
	// when the item is no longer pending.
	UpdateDraftIfPending(ctx context.Context, id, text string) error

	// ResolveIfPending applies exactly one terminal transition. On a lost
	// race it returns AlreadyResolvedError carrying the winning status.
	ResolveIfPending(ctx context.Context, id string, to domain.ApprovalStatus, note, remoteID string, now time.Time) error

	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	StatusCounts(ctx context.Context) (map[domain.ApprovalStatus]int64, error)
}

// NotificationLog records sent notifications and answers cooldown queries.
type NotificationLog interface {
	Record(ctx context.Context, rec domain.NotificationRecord) error
	// LastSent returns the zero time when no record exists for the channel.
	LastSent(ctx context.Context, userID string, channel domain.NotificationChannel) (time.Time, error)
}

// JobRunner controls when recurring jobs execute.
type JobRunner interface {
	Add(name string, interval time.Duration, job func(context.Context))
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
