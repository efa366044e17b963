package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"OpportunityScanner/internal/approval"
	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/notify"
	"OpportunityScanner/internal/ports"
	"OpportunityScanner/internal/scanner"
	"OpportunityScanner/internal/scoring"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry      *scanner.Registry
	Contexts      []config.ContextConfig
	Keywords      ports.KeywordStore
	Scorer        *scoring.Scorer
	Opportunities ports.OpportunityRepository
	Drafts        ports.DraftGenerator
	Approvals     *approval.Queue
	Router        *notify.Router
	Recipients    []string
	Tone          string
	Logger        *slog.Logger
}

// Pipeline implements the detection workflow: fetch candidates, score them,
// persist deduplicated opportunities, open approval items, and route
// notifications.
type Pipeline struct {
	registry      *scanner.Registry
	contexts      []config.ContextConfig
	keywords      ports.KeywordStore
	scorer        *scoring.Scorer
	opportunities ports.OpportunityRepository
	drafts        ports.DraftGenerator
	approvals     *approval.Queue
	router        *notify.Router
	recipients    []string
	tone          string
	logger        *slog.Logger
	now           func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		registry:      deps.Registry,
		contexts:      deps.Contexts,
		keywords:      deps.Keywords,
		scorer:        deps.Scorer,
		opportunities: deps.Opportunities,
		drafts:        deps.Drafts,
		approvals:     deps.Approvals,
		router:        deps.Router,
		recipients:    deps.Recipients,
		tone:          deps.Tone,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// ScanAll runs every configured context scan concurrently. A failing context
// is logged and skipped; it never aborts sibling scans, and no ordering
// across contexts is guaranteed.
func (p *Pipeline) ScanAll(ctx context.Context) error {
	if p.registry == nil {
		return fmt.Errorf("collector registry is not configured")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, cc := range p.contexts {
		cc := cc
		g.Go(func() error {
			if err := p.scanContext(ctx, cc); err != nil {
				scansFailed.Inc()
				p.error("context scan failed", "context", cc.Name, "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) scanContext(ctx context.Context, cc config.ContextConfig) error {
	collector, err := p.registry.Resolve(cc.Source)
	if err != nil {
		return err
	}

	keywords, err := p.keywords.GetKeywords(ctx, cc.Name)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}
	if len(keywords) == 0 {
		p.debug("no keywords configured, skipping", "context", cc.Name)
		return nil
	}

	now := p.now()
	candidates, err := collector.Collect(ctx, scanner.Request{
		Now:     now,
		Context: cc.Name,
		Query:   cc.Query,
		Options: cc.Options,
	})
	if err != nil {
		return fmt.Errorf("collect candidates: %w", err)
	}

	p.debug("context scan", "context", cc.Name, "candidates", len(candidates))

	// candidates are processed sequentially; each failure drops only the
	// current candidate
	for _, cand := range candidates {
		candidatesScanned.Inc()
		p.processCandidate(ctx, cc, cand, keywords)
	}
	return nil
}

func (p *Pipeline) processCandidate(ctx context.Context, cc config.ContextConfig, cand domain.Candidate, keywords []string) {
	opp, ok := p.scorer.Evaluate(cand, keywords, kindFor(cc), cc.Source, cc.TTL(), p.now())
	if !ok {
		candidatesDiscarded.Inc()
		return
	}

	if err := p.opportunities.CreateIfAbsent(ctx, opp); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			opportunitiesDuplicate.Inc()
			return
		}
		p.error("persist opportunity failed", "key", opp.Key.String(), "err", err)
		return
	}
	opportunitiesCreated.Inc()

	draft := p.drafts.GenerateDraft(ctx, opp, p.tone)

	item, err := p.approvals.CreateFromOpportunity(ctx, opp, draft)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return
		}
		p.error("open approval item failed", "key", opp.Key.String(), "err", err)
		return
	}

	p.debug("approval item opened", "id", item.ID, "key", opp.Key.String(), "priority", opp.Priority)

	for _, userID := range p.recipients {
		channel := p.router.Route(ctx, userID, opp)
		p.debug("opportunity routed", "user", userID, "channel", channel, "key", opp.Key.String())
	}
}

func kindFor(cc config.ContextConfig) domain.OpportunityKind {
	if cc.Options["crossAccount"] == "true" {
		return domain.KindCrossAccount
	}
	if cc.Source == domain.SourceSearch {
		return domain.KindKeyword
	}
	return domain.KindMention
}

// Sweep expires timed-out opportunities and pending approval items. Safe to
// run repeatedly and concurrently.
func (p *Pipeline) Sweep(ctx context.Context) {
	now := p.now()

	if count, err := p.opportunities.SweepExpired(ctx, now); err != nil {
		p.error("opportunity sweep failed", "err", err)
	} else if count > 0 {
		p.debug("opportunities expired", "count", count)
	}

	if _, err := p.approvals.ExpireSweep(ctx); err != nil {
		p.error("approval sweep failed", "err", err)
	}
}

// FlushDigests delivers due digests to inactive users.
func (p *Pipeline) FlushDigests(ctx context.Context) {
	p.router.FlushDigests(ctx)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
