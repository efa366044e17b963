package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"OpportunityScanner/internal/domain"
)

// QueuedItem is an opportunity waiting in a user's digest queue.
type QueuedItem struct {
	Opportunity domain.Opportunity
	EnqueuedAt  time.Time
}

type userQueue struct {
	mu           sync.Mutex
	items        []QueuedItem
	seen         map[domain.NaturalKey]struct{}
	lastDigestAt time.Time
}

// Accumulator holds per-user digest queues in memory. Queues survive digest
// compilation and are cleared only by an explicit MarkReviewed; restart loss
// is acceptable by design.
type Accumulator struct {
	queues *xsync.MapOf[string, *userQueue]
	now    func() time.Time
}

// NewAccumulator builds an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		queues: xsync.NewMapOf[string, *userQueue](),
		now:    time.Now,
	}
}

func (a *Accumulator) queue(userID string) *userQueue {
	q, _ := a.queues.LoadOrStore(userID, &userQueue{seen: map[domain.NaturalKey]struct{}{}})
	return q
}

// Enqueue appends opportunities to the user's queue, deduplicating by
// natural key. Returns how many were actually added.
func (a *Accumulator) Enqueue(userID string, opps ...domain.Opportunity) int {
	q := a.queue(userID)
	q.mu.Lock()
	defer q.mu.Unlock()

	added := 0
	for _, opp := range opps {
		if _, ok := q.seen[opp.Key]; ok {
			continue
		}
		q.seen[opp.Key] = struct{}{}
		q.items = append(q.items, QueuedItem{Opportunity: opp, EnqueuedAt: a.now()})
		added++
	}
	return added
}

// Size reports the number of queued items for a user.
func (a *Accumulator) Size(userID string) int {
	q, ok := a.queues.Load(userID)
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// OldestEnqueuedAt returns when the oldest queued item arrived.
func (a *Accumulator) OldestEnqueuedAt(userID string) (time.Time, bool) {
	q, ok := a.queues.Load(userID)
	if !ok {
		return time.Time{}, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].EnqueuedAt, true
}

// LastDigestAt returns when a digest was last compiled for the user; zero
// when never.
func (a *Accumulator) LastDigestAt(userID string) time.Time {
	q, ok := a.queues.Load(userID)
	if !ok {
		return time.Time{}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastDigestAt
}

// MarkReviewed clears the user's queue and returns how many items were
// dropped. This is the only way queued items leave the accumulator.
func (a *Accumulator) MarkReviewed(userID string) int {
	q, ok := a.queues.Load(userID)
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.items)
	q.items = nil
	q.seen = map[domain.NaturalKey]struct{}{}
	return dropped
}

// Users lists every user with a known queue, including empty ones.
func (a *Accumulator) Users() []string {
	var users []string
	a.queues.Range(func(userID string, _ *userQueue) bool {
		users = append(users, userID)
		return true
	})
	return users
}

// DigestGroup summarizes one detecting context inside a digest.
type DigestGroup struct {
	Context  string
	Count    int
	TopScore float64
}

// Digest is the compiled, ranked summary for one user.
type Digest struct {
	UserID            string
	Total             int
	Groups            []DigestGroup
	PriorityBreakdown map[domain.Priority]int
	Top               []domain.Opportunity
	GeneratedAt       time.Time
}

// compile ranks the queue without clearing it and stamps lastDigestAt.
func (a *Accumulator) compile(userID string, topN int) (Digest, bool) {
	q, ok := a.queues.Load(userID)
	if !ok {
		return Digest{}, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Digest{}, false
	}

	now := a.now()
	q.lastDigestAt = now

	byContext := map[string]*DigestGroup{}
	breakdown := map[domain.Priority]int{}
	ranked := make([]domain.Opportunity, 0, len(q.items))

	for _, item := range q.items {
		opp := item.Opportunity
		ranked = append(ranked, opp)
		breakdown[opp.Priority]++

		group, ok := byContext[opp.Key.Context]
		if !ok {
			group = &DigestGroup{Context: opp.Key.Context}
			byContext[opp.Key.Context] = group
		}
		group.Count++
		if opp.MatchScore > group.TopScore {
			group.TopScore = opp.MatchScore
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority.Weight() != ranked[j].Priority.Weight() {
			return ranked[i].Priority.Weight() > ranked[j].Priority.Weight()
		}
		if ranked[i].EngagementPotential != ranked[j].EngagementPotential {
			return ranked[i].EngagementPotential > ranked[j].EngagementPotential
		}
		return ranked[i].MatchScore > ranked[j].MatchScore
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	groups := make([]DigestGroup, 0, len(byContext))
	for _, g := range byContext {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Context < groups[j].Context })

	return Digest{
		UserID:            userID,
		Total:             len(q.items),
		Groups:            groups,
		PriorityBreakdown: breakdown,
		Top:               ranked,
		GeneratedAt:       now,
	}, true
}

// RenderDigest formats a digest for delivery.
func RenderDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opportunity digest: %d item(s)\n", d.Total)
	for _, g := range d.Groups {
		fmt.Fprintf(&b, "[%s] %d item(s), top score %.2f\n", g.Context, g.Count, g.TopScore)
	}
	for i, opp := range d.Top {
		fmt.Fprintf(&b, "%d. (%s) %s\n", i+1, opp.Priority, excerpt(opp.Text, 120))
	}
	return b.String()
}

func excerpt(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}
