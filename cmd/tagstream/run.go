package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/tagstream/pkg/cli"
	"mercator-hq/tagstream/pkg/enrichment"
	"mercator-hq/tagstream/pkg/lineproto"
	"mercator-hq/tagstream/pkg/server"
	"mercator-hq/tagstream/pkg/tagcache"
	"mercator-hq/tagstream/pkg/telemetry/health"
	"mercator-hq/tagstream/pkg/telemetry/tracing"
)

var runFlags struct {
	workers int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich metrics from stdin to stdout",
	Long: `Run the enrichment pipeline.

Line-protocol records are read from standard input until it is closed or the
process receives SIGINT or SIGTERM. Enriched records are written to standard
output. In-flight lookups get up to pipeline.shutdown_timeout to finish.

Credentials are loaded once at start-up; failing to load them is fatal.

Examples:
  # Enrich a file
  tagstream run < metrics.lp > enriched.lp

  # Use 20 lookup workers and debug logging
  tagstream run --workers 20 --log-level debug`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 0, "override the number of lookup workers")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := setup(ctx, "run")
	if err != nil {
		return err
	}
	if runFlags.workers > 0 {
		a.cfg.Pipeline.Workers = runFlags.workers
	}

	tracer, err := tracing.New(ctx, a.cfg.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", "failed to initialize tracing", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(sctx); err != nil {
			a.logger.Warn("failed to flush traces", "error", err)
		}
	}()

	if err := a.run(ctx, tracer, os.Stdin, os.Stdout); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// run drives the pipeline and its companions until the input is exhausted
// or ctx is cancelled.
func (a *app) run(ctx context.Context, tracer *tracing.Tracer, in io.Reader, out io.Writer) error {
	cfg := a.cfg
	var pipeline *enrichment.Pipeline

	if cfg.Cache.PurgeSchedule != "" {
		purger, err := tagcache.NewPurgeScheduler(a.cache, cfg.Cache.PurgeSchedule)
		if err != nil {
			return cli.NewConfigError("cache.purge_schedule", "invalid schedule", err)
		}
		if err := purger.Start(); err != nil {
			return err
		}
		defer purger.Stop()
		a.logger.Info("cache purge scheduled",
			"schedule", cfg.Cache.PurgeSchedule,
			"next_run", purger.NextRun(),
		)
	}

	var srv *server.Server
	if cfg.Telemetry.Metrics.Enabled {
		checker := health.New(cfg.Telemetry.Health.CheckTimeout)
		checker.Register("credentials", health.Condition(func() bool { return a.creds.Signer != nil }, "credentials not loaded"))
		checker.Register("pipeline", health.Condition(func() bool { return pipeline.Running() }, "pipeline is not running"))
		checker.Register("oci", a.provider.HealthCheck)

		srv = server.New(cfg.Telemetry, a.collector.Handler(), checker,
			health.NewVersionInfo(Version, GitCommit, BuildDate), a.logger)
		if err := srv.Listen(); err != nil {
			return err
		}
	}

	pipeline = enrichment.NewPipeline(enrichment.Config{
		Workers:         cfg.Pipeline.Workers,
		LookupTimeout:   cfg.Pipeline.LookupTimeout,
		MaxLineBytes:    cfg.Pipeline.MaxLineBytes,
		Precision:       lineproto.Precision(cfg.Pipeline.TimestampPrecision),
		ShutdownTimeout: cfg.Pipeline.ShutdownTimeout,
		Observer:        a.collector,
		Logger:          a.logger,
		Tracer:          tracer.Tracer(),
	}, a.registry, a.cache, out)

	// The companions stop when the pipeline does.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	// A blocked read does not observe cancellation; closing the input
	// releases it.
	if c, ok := in.(io.Closer); ok {
		stop := context.AfterFunc(gctx, func() { _ = c.Close() })
		defer stop()
	}

	g.Go(func() error {
		defer cancel()
		return pipeline.Run(gctx, in)
	})

	if srv != nil {
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	if w := a.watchCredentials(); w != nil {
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				a.logger.Error("credential watcher stopped, credentials will not be reloaded", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
