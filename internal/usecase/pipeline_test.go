package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpportunityScanner/internal/activity"
	"OpportunityScanner/internal/approval"
	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/notify"
	"OpportunityScanner/internal/ports"
	"OpportunityScanner/internal/scanner"
	"OpportunityScanner/internal/scoring"
)

type memOppRepo struct {
	mu   sync.Mutex
	opps map[domain.NaturalKey]domain.Opportunity
}

func newMemOppRepo() *memOppRepo {
	return &memOppRepo{opps: map[domain.NaturalKey]domain.Opportunity{}}
}

func (r *memOppRepo) CreateIfAbsent(ctx context.Context, opp domain.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.opps[opp.Key]; ok {
		return domain.ErrDuplicate
	}
	r.opps[opp.Key] = opp
	return nil
}

func (r *memOppRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, opp := range r.opps {
		if !now.Before(opp.ExpiresAt) {
			delete(r.opps, key)
			count++
		}
	}
	return count, nil
}

func (r *memOppRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opps)
}

type memApprovalRepo struct {
	mu    sync.Mutex
	items map[string]domain.ApprovalItem
	keys  map[domain.NaturalKey]struct{}
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{items: map[string]domain.ApprovalItem{}, keys: map[domain.NaturalKey]struct{}{}}
}

func (r *memApprovalRepo) Create(ctx context.Context, item domain.ApprovalItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[item.Key]; ok {
		return domain.ErrDuplicate
	}
	r.keys[item.Key] = struct{}{}
	r.items[item.ID.String()] = item
	return nil
}

func (r *memApprovalRepo) Get(ctx context.Context, id string) (domain.ApprovalItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return domain.ApprovalItem{}, domain.ErrNotFound
	}
	return item, nil
}

func (r *memApprovalRepo) List(ctx context.Context, filter ports.ApprovalFilter) ([]domain.ApprovalItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ApprovalItem
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memApprovalRepo) UpdateDraftIfPending(ctx context.Context, id, text string) error {
	return nil
}

func (r *memApprovalRepo) ResolveIfPending(ctx context.Context, id string, to domain.ApprovalStatus, note, remoteID string, now time.Time) error {
	return nil
}

func (r *memApprovalRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *memApprovalRepo) StatusCounts(ctx context.Context) (map[domain.ApprovalStatus]int64, error) {
	return map[domain.ApprovalStatus]int64{}, nil
}

func (r *memApprovalRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type staticKeywords struct{ keywords []string }

func (s staticKeywords) GetKeywords(ctx context.Context, detectingContext string) ([]string, error) {
	return s.keywords, nil
}

type fakeCollector struct {
	name       string
	candidates []domain.Candidate
	err        error
}

func (c *fakeCollector) Name() string { return c.name }

func (c *fakeCollector) Collect(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.candidates, nil
}

type fakeDrafts struct{}

func (fakeDrafts) GenerateDraft(ctx context.Context, opp domain.Opportunity, tone string) string {
	return "draft for " + opp.Key.ExternalID
}

type nullDeliverer struct{}

func (nullDeliverer) Send(ctx context.Context, userID, text string, actions []ports.DeliveryAction) error {
	return nil
}

type nullLog struct{}

func (nullLog) Record(ctx context.Context, rec domain.NotificationRecord) error { return nil }

func (nullLog) LastSent(ctx context.Context, userID string, channel domain.NotificationChannel) (time.Time, error) {
	return time.Time{}, nil
}

type fakePublisher struct{}

func (fakePublisher) Authenticate(ctx context.Context, detectingContext string) (bool, error) {
	return true, nil
}

func (fakePublisher) Publish(ctx context.Context, detectingContext, text string) (domain.PublishReceipt, error) {
	return domain.PublishReceipt{RemoteID: "r1"}, nil
}

func candidateNamed(id, context string) domain.Candidate {
	return domain.Candidate{
		ExternalID: id,
		Context:    context,
		Text:       "Anyone have tips on golang connection pools?",
	}
}

func newTestPipeline(t *testing.T, registry *scanner.Registry, contexts []config.ContextConfig, oppRepo *memOppRepo, apprRepo *memApprovalRepo) (*Pipeline, *notify.Router) {
	t.Helper()

	tracker := activity.NewTracker(2 * time.Hour)
	router := notify.NewRouter(notify.RouterConfig{}, tracker, nullDeliverer{}, nullLog{}, nil)
	queue := approval.NewQueue(apprRepo, fakePublisher{}, 280, 24*time.Hour, nil)

	pipeline := NewPipeline(PipelineDeps{
		Registry:      registry,
		Contexts:      contexts,
		Keywords:      staticKeywords{keywords: []string{"golang"}},
		Scorer:        scoring.NewScorer(10, 0.02),
		Opportunities: oppRepo,
		Drafts:        fakeDrafts{},
		Approvals:     queue,
		Router:        router,
		Recipients:    []string{"u1"},
		Tone:          "helpful",
	})
	return pipeline, router
}

func TestScanDeduplicatesByNaturalKey(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	registry := scanner.NewRegistry()
	registry.Register(domain.SourceTimeline, &fakeCollector{
		name: "timeline",
		candidates: []domain.Candidate{
			candidateNamed("p1", "dev"),
			candidateNamed("p1", "dev"), // same natural key, racing scans
			candidateNamed("p2", "dev"),
			{ExternalID: "p3", Context: "dev", Text: "short"}, // below min length
		},
	})

	oppRepo := newMemOppRepo()
	apprRepo := newMemApprovalRepo()
	contexts := []config.ContextConfig{{Name: "dev", Source: domain.SourceTimeline}}
	pipeline, router := newTestPipeline(t, registry, contexts, oppRepo, apprRepo)

	require.NoError(t, pipeline.ScanAll(ctx))

	assert.Equal(2, oppRepo.size())
	assert.Equal(2, apprRepo.size())
	// inactive recipient: both went to the digest queue exactly once
	assert.Equal(2, router.Digests().Size("u1"))
}

func TestFailingContextDoesNotAbortOthers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	registry := scanner.NewRegistry()
	registry.Register(domain.SourceTimeline, &fakeCollector{name: "timeline", err: errors.New("fetch timed out")})
	registry.Register(domain.SourceSearch, &fakeCollector{
		name:       "search",
		candidates: []domain.Candidate{candidateNamed("s1", "trends")},
	})

	oppRepo := newMemOppRepo()
	apprRepo := newMemApprovalRepo()
	contexts := []config.ContextConfig{
		{Name: "dev", Source: domain.SourceTimeline},
		{Name: "trends", Source: domain.SourceSearch},
	}
	pipeline, _ := newTestPipeline(t, registry, contexts, oppRepo, apprRepo)

	require.NoError(t, pipeline.ScanAll(ctx))
	assert.Equal(1, oppRepo.size())
}

func TestRescanAfterSweepRecreates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	collector := &fakeCollector{
		name:       "timeline",
		candidates: []domain.Candidate{candidateNamed("p1", "dev")},
	}
	registry := scanner.NewRegistry()
	registry.Register(domain.SourceTimeline, collector)

	oppRepo := newMemOppRepo()
	apprRepo := newMemApprovalRepo()
	contexts := []config.ContextConfig{{Name: "dev", Source: domain.SourceTimeline}}
	pipeline, _ := newTestPipeline(t, registry, contexts, oppRepo, apprRepo)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pipeline.now = func() time.Time { return base }
	require.NoError(t, pipeline.ScanAll(ctx))
	assert.Equal(1, oppRepo.size())

	// second scan inside the TTL window is a no-op
	require.NoError(t, pipeline.ScanAll(ctx))
	assert.Equal(1, oppRepo.size())

	pipeline.now = func() time.Time { return base.Add(25 * time.Hour) }
	pipeline.Sweep(ctx)
	assert.Equal(0, oppRepo.size())

	// the key is free again after expiry
	require.NoError(t, pipeline.ScanAll(ctx))
	assert.Equal(1, oppRepo.size())
}
