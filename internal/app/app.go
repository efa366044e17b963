// Package app wires configuration to adapters, use cases, and lifecycle
// orchestration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"OpportunityScanner/internal/activity"
	"OpportunityScanner/internal/approval"
	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/infrastructure/draft"
	"OpportunityScanner/internal/infrastructure/keywords"
	"OpportunityScanner/internal/infrastructure/scheduler"
	"OpportunityScanner/internal/infrastructure/source"
	"OpportunityScanner/internal/infrastructure/storage"
	"OpportunityScanner/internal/infrastructure/telegram"
	"OpportunityScanner/internal/logging"
	"OpportunityScanner/internal/notify"
	"OpportunityScanner/internal/ports"
	"OpportunityScanner/internal/scanner"
	"OpportunityScanner/internal/scoring"
	"OpportunityScanner/internal/usecase"
)

// Application owns every wired component and the process lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	approvals *approval.Queue
	router    *notify.Router
	tracker   *activity.Tracker
	metrics   *http.Server
}

// New connects to storage, ensures the schema, and wires the full pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	oppRepo := storage.NewOpportunityRepository(db)
	approvalRepo := storage.NewApprovalRepository(db)
	notifLog := storage.NewNotificationLogRepository(db)

	throttle := source.NewThrottle(cfg.Platform.MinRequestInterval.Std(), cfg.Platform.DailyBudget)
	platform := source.NewPlatformClient(cfg.Platform, throttle)

	registry := scanner.NewRegistry()
	registry.Register(domain.SourceTimeline, source.NewTimelineCollector(platform))
	registry.Register(domain.SourceSearch, source.NewSearchCollector(platform))

	keywordStore := scoring.NewCachedKeywords(keywords.NewClient(cfg.Keywords), cfg.Keywords.CacheTTL.Std())
	scorer := scoring.NewScorer(cfg.Scoring.MinTextLength, cfg.Scoring.ScoreFloor)

	approvals := approval.NewQueue(
		approvalRepo,
		platform,
		cfg.Platform.CharLimit,
		cfg.Approval.TTL.Std(),
		baseLogger.With("component", "approval"),
	)

	tracker := activity.NewTracker(cfg.Activity.Timeout.Std())

	var deliverer ports.Deliverer
	if cfg.Notifications.Telegram.BotToken != "" {
		deliverer = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken)
	} else {
		deliverer = logDeliverer{logger: baseLogger.With("component", "deliverer")}
	}

	router := notify.NewRouter(notify.RouterConfig{
		RealtimeCooldown:  cfg.Notifications.RealtimeCooldown.Std(),
		DigestMinInterval: cfg.Notifications.DigestMinInterval.Std(),
		DigestMinDwell:    cfg.Notifications.DigestMinDwell.Std(),
		DigestTopN:        cfg.Notifications.DigestTopN,
		UrgentKeywords:    cfg.Notifications.UrgentKeywords,
	}, tracker, deliverer, notifLog, baseLogger.With("component", "router"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:      registry,
		Contexts:      cfg.Contexts,
		Keywords:      keywordStore,
		Scorer:        scorer,
		Opportunities: oppRepo,
		Drafts:        draft.NewGenerator(cfg.Draft, baseLogger.With("component", "draft")),
		Approvals:     approvals,
		Router:        router,
		Recipients:    cfg.Notifications.Recipients,
		Tone:          cfg.Draft.Tone,
		Logger:        baseLogger.With("component", "pipeline"),
	})

	runner := scheduler.NewTickerRunner(baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(runner, pipeline),
		approvals: approvals,
		router:    router,
		tracker:   tracker,
	}, nil
}

// Run starts the recurring jobs and the optional metrics listener, then
// blocks until the context is canceled.
func (a *Application) Run(ctx context.Context) error {
	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{Addr: addr, Handler: mux}

		go func() {
			a.logger.Info("metrics listener started", "addr", addr)
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics listener failed", "err", err)
			}
		}()
	}

	err := a.scheduler.Start(ctx, usecase.Intervals{
		Scan:   a.cfg.Scheduler.ScanInterval.Std(),
		Sweep:  a.cfg.Scheduler.SweepInterval.Std(),
		Digest: a.cfg.Scheduler.DigestInterval.Std(),
	})
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.Shutdown()
}

// ScanOnce executes a single scan cycle. Used by the CLI scan command.
func (a *Application) ScanOnce(ctx context.Context) error {
	return a.pipeline.ScanAll(ctx)
}

// Approvals exposes the approval workflow for the CLI commands.
func (a *Application) Approvals() *approval.Queue {
	return a.approvals
}

// Router exposes notification routing for the CLI commands.
func (a *Application) Router() *notify.Router {
	return a.router
}

// Tracker exposes the user activity tracker.
func (a *Application) Tracker() *activity.Tracker {
	return a.tracker
}

// Shutdown stops recurring jobs, the metrics listener, and storage.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// logDeliverer stands in when no Telegram token is configured so routing
// still works in development setups.
type logDeliverer struct {
	logger *slog.Logger
}

func (d logDeliverer) Send(_ context.Context, userID, text string, _ []ports.DeliveryAction) error {
	d.logger.Info("notification", "user", userID, "text", text)
	return nil
}
