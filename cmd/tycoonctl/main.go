// tycoonctl runs simulation jobs on demand, in process or against a
// running worker's admin service, and follows the event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/app"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/config"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/handlers"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type options struct {
	configPath string
	remote     string
	token      string
	timeout    time.Duration
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "tycoonctl",
		Short:        "Run Dev Tycoon simulation jobs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("TYCOON_CONFIG"), "config file (default "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&opts.remote, "remote", "", "gRPC address of a running worker; empty runs in process")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("TYCOON_TOKEN"), "bearer token for --remote")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "deadline for a run")

	for _, name := range jobs.Names {
		root.AddCommand(newJobCmd(opts, name))
	}
	root.AddCommand(
		newTickCmd(opts),
		newJobsCmd(opts),
		newMigrateCmd(opts),
		newWatchCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func newJobCmd(opts *options, name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: "Run the " + name + " job once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			if opts.remote != "" {
				return withClient(ctx, opts, func(ctx context.Context, c *handlers.JobClient) error {
					out, err := c.RunJob(ctx, name)
					if err != nil {
						return err
					}
					printResult(resultFromProto(out))
					return nil
				})
			}
			return withApp(ctx, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Scheduler.RunJob(ctx, name)
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func newTickCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run every job once, in tick order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			if opts.remote != "" {
				return withClient(ctx, opts, func(ctx context.Context, c *handlers.JobClient) error {
					out, err := c.Tick(ctx)
					if err != nil {
						return err
					}
					report := reportFromProto(out)
					printReport(report)
					if len(report.Failed) > 0 {
						return fmt.Errorf("%d job(s) failed", len(report.Failed))
					}
					return nil
				})
			}
			return withApp(ctx, opts, func(ctx context.Context, a *app.App) error {
				report, err := a.Scheduler.RunOnce(ctx)
				if report != nil {
					printReport(report)
				}
				return err
			})
		},
	}
}

func newJobsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List jobs and their tick cadence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.remote != "" {
				return withClient(cmd.Context(), opts, func(ctx context.Context, c *handlers.JobClient) error {
					out, err := c.ListJobs(ctx)
					if err != nil {
						return err
					}
					printCadence(cadenceFromProto(out))
					return nil
				})
			}
			return withApp(cmd.Context(), opts, func(_ context.Context, a *app.App) error {
				printCadence(a.Scheduler.Cadence())
				return nil
			})
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			repo, err := app.OpenRepository(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()
			printSuccess("schema up to date (" + cfg.Database.Driver + ")")
			return nil
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	var filter []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow published events from kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New("no kafka brokers configured")
			}

			allow := make(map[string]bool, len(filter))
			for _, n := range filter {
				allow[strings.TrimSpace(n)] = true
			}
			consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
			defer consumer.Close()
			consumer.RegisterHandler(func(_ context.Context, event events.Event) error {
				if len(allow) == 0 || allow[string(event.Name)] {
					printEvent(event)
				}
				return nil
			})

			accent.Printf("watching %s on %s\n", cfg.Kafka.Topic, strings.Join(cfg.Kafka.Brokers, ","))
			consumer.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&filter, "event", nil, "only show these event names")
	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an admin token with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, _, err := setup(opts)
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(subject, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "tycoonctl", "token subject")
	return cmd
}

func setup(opts *options) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg.Observability)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func withApp(ctx context.Context, opts *options, fn func(context.Context, *app.App) error) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func withClient(ctx context.Context, opts *options, fn func(context.Context, *handlers.JobClient) error) error {
	conn, err := grpc.NewClient(opts.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.remote, err)
	}
	defer func() { _ = conn.Close() }()

	if opts.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+opts.token)
	}
	return fn(ctx, handlers.NewJobClient(conn))
}
