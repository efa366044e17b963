package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"OpportunityScanner/internal/app"
	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/logging"
	"OpportunityScanner/internal/ports"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	cliApp := &cli.App{
		Name:  "oppscanner",
		Usage: "scan content streams for engagement opportunities and manage the approval queue",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the scanner daemon with recurring scan, sweep, and digest jobs",
				Action: func(c *cli.Context) error {
					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					application, err := app.New(ctx, cfg, logger)
					if err != nil {
						return err
					}
					return application.Run(ctx)
				},
			},
			{
				Name:  "scan",
				Usage: "execute one scan cycle and exit",
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					return a.ScanOnce(ctx)
				}),
			},
			{
				Name:  "pending",
				Usage: "list pending approval items",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "context", Usage: "filter by detecting context"},
					&cli.StringFlag{Name: "priority", Usage: "filter by priority (high, medium, low, minimal)"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum rows"},
				},
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					items, err := a.Approvals().List(ctx, ports.ApprovalFilter{
						Context:  c.String("context"),
						Priority: domain.Priority(c.String("priority")),
						Status:   domain.StatusPending,
						Limit:    c.Int("limit"),
					})
					if err != nil {
						return err
					}
					if len(items) == 0 {
						fmt.Fprintln(c.App.Writer, "no pending items")
						return nil
					}
					for _, item := range items {
						fmt.Fprintf(c.App.Writer, "%s  [%s]  %s  expires %s\n  %s\n",
							item.ID, item.Priority, item.Key.String(),
							item.ExpiresAt.Format("2006-01-02 15:04"),
							truncate(item.DraftText, 120))
					}
					return nil
				}),
			},
			{
				Name:      "approve",
				Usage:     "approve a pending item and publish its draft",
				ArgsUsage: "<id>",
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("usage: approve <id>")
					}
					a.Tracker().Track(operator(), "cli")

					item, err := a.Approvals().Approve(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "approved %s, published as %s\n", item.ID, item.RemoteID)
					return nil
				}),
			},
			{
				Name:      "reject",
				Usage:     "reject a pending item with a reason",
				ArgsUsage: "<id> <reason>",
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					id := c.Args().First()
					reason := strings.Join(c.Args().Tail(), " ")
					if id == "" || reason == "" {
						return fmt.Errorf("usage: reject <id> <reason>")
					}
					a.Tracker().Track(operator(), "cli")

					item, err := a.Approvals().Reject(ctx, id, reason)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "rejected %s\n", item.ID)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "replace a pending item's draft and approve the new text",
				ArgsUsage: "<id> <text>",
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					id := c.Args().First()
					text := strings.Join(c.Args().Tail(), " ")
					if id == "" || text == "" {
						return fmt.Errorf("usage: edit <id> <text>")
					}
					a.Tracker().Track(operator(), "cli")

					item, err := a.Approvals().EditThenApprove(ctx, id, text)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "approved %s with edited draft, published as %s\n", item.ID, item.RemoteID)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "show approval queue counts by status",
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					counts, err := a.Approvals().StatusCounts(ctx)
					if err != nil {
						return err
					}

					statuses := make([]string, 0, len(counts))
					for status := range counts {
						statuses = append(statuses, string(status))
					}
					sort.Strings(statuses)

					for _, status := range statuses {
						fmt.Fprintf(c.App.Writer, "%-10s %d\n", status, counts[domain.ApprovalStatus(status)])
					}
					return nil
				}),
			},
			{
				Name:      "ack",
				Usage:     "mark a user's digest queue as reviewed",
				ArgsUsage: "<user>",
				Action: withApp(cfg, logger, func(ctx context.Context, a *app.Application, c *cli.Context) error {
					userID := c.Args().First()
					if userID == "" {
						return fmt.Errorf("usage: ack <user>")
					}
					a.Tracker().Track(userID, "digest-review")

					cleared := a.Router().MarkReviewed(userID)
					fmt.Fprintf(c.App.Writer, "cleared %d queued items for %s\n", cleared, userID)
					return nil
				}),
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// withApp builds the application for one command invocation and tears it
// down afterwards.
func withApp(cfg config.Config, logger *slog.Logger, fn func(context.Context, *app.Application, *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := application.Shutdown(); err != nil {
				logger.Error("shutdown failed", "err", err)
			}
		}()

		return fn(ctx, application, c)
	}
}

// operator resolves the acting user for activity tracking.
func operator() string {
	if user := os.Getenv("OPP_SCANNER_USER"); user != "" {
		return user
	}
	return "operator"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
