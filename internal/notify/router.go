package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"OpportunityScanner/internal/activity"
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
	"OpportunityScanner/internal/scoring"
)

const realtimeEngagementThreshold = 0.8

// RouterConfig carries the routing thresholds.
type RouterConfig struct {
	RealtimeCooldown  time.Duration
	DigestMinInterval time.Duration
	DigestMinDwell    time.Duration
	DigestTopN        int
	UrgentKeywords    []string
}

func (c *RouterConfig) applyDefaults() {
	if c.RealtimeCooldown <= 0 {
		c.RealtimeCooldown = 15 * time.Minute
	}
	if c.DigestMinInterval <= 0 {
		c.DigestMinInterval = 3 * time.Hour
	}
	if c.DigestMinDwell <= 0 {
		c.DigestMinDwell = time.Hour
	}
	if c.DigestTopN <= 0 {
		c.DigestTopN = 5
	}
}

// Router decides, per user and per opportunity, between an immediate alert
// and the digest queue. Routing happens once at creation time; later
// activity changes never re-route an already-queued item.
type Router struct {
	cfg       RouterConfig
	tracker   *activity.Tracker
	deliverer ports.Deliverer
	records   ports.NotificationLog
	digests   *Accumulator
	urgent    map[string]struct{}
	logger    *slog.Logger
	now       func() time.Time
}

// NewRouter wires the router.
func NewRouter(cfg RouterConfig, tracker *activity.Tracker, deliverer ports.Deliverer, records ports.NotificationLog, logger *slog.Logger) *Router {
	cfg.applyDefaults()

	urgent := make(map[string]struct{}, len(cfg.UrgentKeywords))
	for _, kw := range cfg.UrgentKeywords {
		urgent[scoring.Normalize(kw)] = struct{}{}
	}

	return &Router{
		cfg:       cfg,
		tracker:   tracker,
		deliverer: deliverer,
		records:   records,
		digests:   NewAccumulator(),
		urgent:    urgent,
		logger:    logger,
		now:       time.Now,
	}
}

// Digests exposes the accumulator for status reporting and review acks.
func (r *Router) Digests() *Accumulator {
	return r.digests
}

// ShouldNotifyRealtime applies the eligibility rules: the user must be
// active, the opportunity must be hot enough, and the per-user cooldown
// window must have elapsed.
func (r *Router) ShouldNotifyRealtime(ctx context.Context, userID string, opp domain.Opportunity) bool {
	if !r.tracker.IsActive(userID) {
		return false
	}
	if !r.hot(opp) {
		return false
	}

	last, err := r.records.LastSent(ctx, userID, domain.ChannelRealtime)
	if err != nil {
		// cooldown state unavailable: suppress rather than risk spamming
		r.warn("cooldown lookup failed", "user", userID, "err", err)
		return false
	}
	if !last.IsZero() && r.now().Sub(last) < r.cfg.RealtimeCooldown {
		realtimeSuppressed.Inc()
		return false
	}
	return true
}

func (r *Router) hot(opp domain.Opportunity) bool {
	if opp.Priority == domain.PriorityHigh {
		return true
	}
	if opp.EngagementPotential >= realtimeEngagementThreshold {
		return true
	}
	if opp.Kind == domain.KindCrossAccount {
		return true
	}
	for _, kw := range opp.MatchedKeywords {
		if _, ok := r.urgent[scoring.Normalize(kw)]; ok {
			return true
		}
	}
	return false
}

// Route delivers the opportunity exactly once: realtime when eligible,
// otherwise into the digest queue. Suppressed or failed realtime sends fall
// back to the digest so nothing is silently dropped.
func (r *Router) Route(ctx context.Context, userID string, opp domain.Opportunity) domain.NotificationChannel {
	if r.ShouldNotifyRealtime(ctx, userID, opp) {
		err := r.sendRealtime(ctx, userID, opp)
		if err == nil {
			return domain.ChannelRealtime
		}
		r.warn("realtime delivery failed, falling back to digest", "user", userID, "key", opp.Key.String(), "err", err)
	}

	if r.digests.Enqueue(userID, opp) > 0 {
		digestEnqueued.Inc()
	}
	return domain.ChannelDigest
}

func (r *Router) sendRealtime(ctx context.Context, userID string, opp domain.Opportunity) error {
	text := RenderAlert(opp)
	actions := []ports.DeliveryAction{
		{Label: "Approve", Value: "approve:" + opp.Key.String()},
		{Label: "Reject", Value: "reject:" + opp.Key.String()},
	}
	if err := r.deliverer.Send(ctx, userID, text, actions); err != nil {
		return err
	}

	realtimeSent.Inc()
	rec := domain.NotificationRecord{
		UserID:     userID,
		Channel:    domain.ChannelRealtime,
		SentAt:     r.now(),
		PayloadRef: opp.Key.String(),
	}
	if err := r.records.Record(ctx, rec); err != nil {
		// the alert already went out; a lost audit row only weakens the
		// cooldown, so log and move on
		r.warn("notification record write failed", "user", userID, "err", err)
	}
	return nil
}

// ShouldFlushDigest gates digest delivery: the user must be away, the queue
// non-empty, the digest interval elapsed, and the oldest item dwelled long
// enough.
func (r *Router) ShouldFlushDigest(userID string) bool {
	if r.tracker.IsActive(userID) {
		return false
	}
	if r.digests.Size(userID) == 0 {
		return false
	}

	now := r.now()
	if last := r.digests.LastDigestAt(userID); !last.IsZero() && now.Sub(last) < r.cfg.DigestMinInterval {
		return false
	}
	oldest, ok := r.digests.OldestEnqueuedAt(userID)
	if !ok || now.Sub(oldest) < r.cfg.DigestMinDwell {
		return false
	}
	return true
}

// CompileDigest ranks the user's queue and stamps last_digest_sent_at. The
// queue itself is untouched until MarkReviewed, so repeated flush checks
// stay idempotent until the user acknowledges.
func (r *Router) CompileDigest(userID string) (Digest, bool) {
	d, ok := r.digests.compile(userID, r.cfg.DigestTopN)
	if ok {
		digestCompiled.Inc()
	}
	return d, ok
}

// FlushDigests walks all known users and delivers due digests.
func (r *Router) FlushDigests(ctx context.Context) {
	for _, userID := range r.digests.Users() {
		if !r.ShouldFlushDigest(userID) {
			continue
		}
		d, ok := r.CompileDigest(userID)
		if !ok {
			continue
		}

		actions := []ports.DeliveryAction{{Label: "Mark reviewed", Value: "reviewed:" + userID}}
		if err := r.deliverer.Send(ctx, userID, RenderDigest(d), actions); err != nil {
			r.warn("digest delivery failed", "user", userID, "err", err)
			continue
		}

		rec := domain.NotificationRecord{
			UserID:     userID,
			Channel:    domain.ChannelDigest,
			SentAt:     d.GeneratedAt,
			PayloadRef: fmt.Sprintf("digest:%d", d.Total),
		}
		if err := r.records.Record(ctx, rec); err != nil {
			r.warn("notification record write failed", "user", userID, "err", err)
		}
	}
}

// MarkReviewed clears a user's digest queue after explicit acknowledgment.
func (r *Router) MarkReviewed(userID string) int {
	return r.digests.MarkReviewed(userID)
}

// RenderAlert formats a single realtime notification.
func RenderAlert(opp domain.Opportunity) string {
	return fmt.Sprintf("[%s] %s opportunity in %s\n%s\nscore %.2f, engagement %.2f",
		opp.Priority,
		opp.Kind,
		opp.Key.Context,
		excerpt(opp.Text, 200),
		opp.MatchScore,
		opp.EngagementPotential)
}

func (r *Router) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
