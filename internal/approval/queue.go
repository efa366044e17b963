package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
)

// Queue drives the approval workflow: items enter pending and leave through
// exactly one terminal transition. The storage layer's conditional updates
// are the final arbiter; the per-item mutex only keeps this process from
// racing its own publish effect.
type Queue struct {
	repo      ports.ApprovalRepository
	publisher ports.Publisher
	charLimit int
	ttl       time.Duration
	locks     *xsync.MapOf[string, *sync.Mutex]
	logger    *slog.Logger
	now       func() time.Time
}

// NewQueue wires the workflow service. Zero ttl defaults to 24h.
func NewQueue(repo ports.ApprovalRepository, publisher ports.Publisher, charLimit int, ttl time.Duration, logger *slog.Logger) *Queue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if charLimit <= 0 {
		charLimit = 280
	}
	return &Queue{
		repo:      repo,
		publisher: publisher,
		charLimit: charLimit,
		ttl:       ttl,
		locks:     xsync.NewMapOf[string, *sync.Mutex](),
		logger:    logger,
		now:       time.Now,
	}
}

// CreateFromOpportunity opens a pending item for a generated draft. Returns
// domain.ErrDuplicate when the natural key already has a live item.
func (q *Queue) CreateFromOpportunity(ctx context.Context, opp domain.Opportunity, draft string) (domain.ApprovalItem, error) {
	if utf8.RuneCountInString(draft) > q.charLimit {
		return domain.ApprovalItem{}, &domain.ValidationError{Field: "draft_text", Reason: fmt.Sprintf("exceeds %d characters", q.charLimit)}
	}

	now := q.now()
	item := domain.ApprovalItem{
		ID:        uuid.New(),
		Key:       opp.Key,
		DraftText: draft,
		Status:    domain.StatusPending,
		Priority:  opp.Priority,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}

	if err := q.repo.Create(ctx, item); err != nil {
		return domain.ApprovalItem{}, err
	}
	return item, nil
}

// Approve publishes the draft and marks the item approved. The publish
// effect runs at most once: expired items transition lazily to expired
// without touching the platform, non-pending items return
// AlreadyResolvedError, and a publish failure leaves the item pending and
// retryable.
func (q *Queue) Approve(ctx context.Context, id string) (domain.ApprovalItem, error) {
	unlock := q.lock(id)
	defer unlock()

	item, err := q.repo.Get(ctx, id)
	if err != nil {
		return domain.ApprovalItem{}, err
	}
	if item.Status != domain.StatusPending {
		return item, &domain.AlreadyResolvedError{Status: item.Status}
	}

	now := q.now()
	if item.Expired(now) {
		// lazy expiry; losing this race to a sweep changes nothing
		if err := q.repo.ResolveIfPending(ctx, id, domain.StatusExpired, "ttl elapsed before approval", "", now); err != nil && !domain.IsAlreadyResolved(err) {
			return item, err
		}
		item.Status = domain.StatusExpired
		return item, domain.ErrExpired
	}

	receipt, err := q.publisher.Publish(ctx, item.Key.Context, item.DraftText)
	if err != nil {
		return item, &domain.ExternalEffectError{Op: "publish", Err: err}
	}

	if err := q.repo.ResolveIfPending(ctx, id, domain.StatusApproved, "", receipt.RemoteID, now); err != nil {
		// the publish already happened; surface the conflict so the caller
		// knows another resolution won
		return item, err
	}

	item.Status = domain.StatusApproved
	item.ResolvedAt = &now
	item.RemoteID = receipt.RemoteID
	return item, nil
}

// Reject closes the item without any external effect.
func (q *Queue) Reject(ctx context.Context, id, reason string) (domain.ApprovalItem, error) {
	unlock := q.lock(id)
	defer unlock()

	item, err := q.repo.Get(ctx, id)
	if err != nil {
		return domain.ApprovalItem{}, err
	}
	if item.Status != domain.StatusPending {
		return item, &domain.AlreadyResolvedError{Status: item.Status}
	}

	now := q.now()
	if err := q.repo.ResolveIfPending(ctx, id, domain.StatusRejected, reason, "", now); err != nil {
		return item, err
	}

	item.Status = domain.StatusRejected
	item.ResolvedAt = &now
	item.ResolutionNote = reason
	return item, nil
}

// EditThenApprove replaces the draft text while the item is still pending,
// then runs the normal approve path.
func (q *Queue) EditThenApprove(ctx context.Context, id, text string) (domain.ApprovalItem, error) {
	if utf8.RuneCountInString(text) > q.charLimit {
		return domain.ApprovalItem{}, &domain.ValidationError{Field: "draft_text", Reason: fmt.Sprintf("exceeds %d characters", q.charLimit)}
	}

	if err := q.repo.UpdateDraftIfPending(ctx, id, text); err != nil {
		return domain.ApprovalItem{}, err
	}
	return q.Approve(ctx, id)
}

// ExpireSweep bulk-transitions timed-out pending items. Idempotent; safe
// to run concurrently with resolutions and other sweeps.
func (q *Queue) ExpireSweep(ctx context.Context) (int64, error) {
	count, err := q.repo.SweepExpired(ctx, q.now())
	if err != nil {
		return 0, err
	}
	if count > 0 && q.logger != nil {
		q.logger.Info("expired pending approvals", "count", count)
	}
	return count, nil
}

// Get returns a single item by id.
func (q *Queue) Get(ctx context.Context, id string) (domain.ApprovalItem, error) {
	return q.repo.Get(ctx, id)
}

// List returns items ordered by (priority desc, created_at desc).
func (q *Queue) List(ctx context.Context, filter ports.ApprovalFilter) ([]domain.ApprovalItem, error) {
	return q.repo.List(ctx, filter)
}

// StatusCounts summarizes the queue for the status command.
func (q *Queue) StatusCounts(ctx context.Context) (map[domain.ApprovalStatus]int64, error) {
	return q.repo.StatusCounts(ctx)
}

func (q *Queue) lock(id string) func() {
	mu, _ := q.locks.LoadOrStore(id, &sync.Mutex{})
	mu.Lock()
	return func() {
		mu.Unlock()
		q.locks.Delete(id)
	}
}
