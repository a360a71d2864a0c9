package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sreehariX/redbus-scrapping/config"
	"github.com/sreehariX/redbus-scrapping/harvest"
	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/runner"
	"github.com/sreehariX/redbus-scrapping/surface"
	"github.com/sreehariX/redbus-scrapping/surface/chrome"
	"github.com/sreehariX/redbus-scrapping/surface/static"
)

type runOptions struct {
	output      string
	visible     bool
	retries     int
	concurrency int
	noSkip      bool
	metricsAddr string
	baseURL     string
	fromFile    string
	jobTimeout  time.Duration
	noProgress  int
	verbose     bool
}

func newRunCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	outputDefault := defaults.OutputDir
	if value, ok := config.EnvString("REDBUS_OUTPUT"); ok {
		outputDefault = value
	}
	concurrencyDefault := defaults.Concurrency
	if value, ok, err := config.EnvInt("REDBUS_CONCURRENCY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid REDBUS_CONCURRENCY: %v\n", err)
		os.Exit(1)
	} else if ok {
		concurrencyDefault = value
	}
	metricsDefault := defaults.MetricsAddr
	if value, ok := config.EnvString("REDBUS_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	visibleDefault := defaults.Visible
	if value, ok, err := config.EnvBool("REDBUS_VISIBLE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid REDBUS_VISIBLE: %v\n", err)
		os.Exit(1)
	} else if ok {
		visibleDefault = value
	}

	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Harvest every route in a plan file",
		Long: `Harvest bus listings for every route named in a YAML plan file.

Each route writes an append-only CSV under the output directory. Routes
whose file already carries a failure marker are skipped unless --no-skip
is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", outputDefault, "Output directory for per-route CSV files")
	cmd.Flags().BoolVar(&opts.visible, "visible", visibleDefault, "Run the browser with a visible window")
	cmd.Flags().IntVar(&opts.retries, "retries", defaults.MaxRetries, "Maximum retry attempts per route")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", concurrencyDefault, "Routes harvested in parallel")
	cmd.Flags().BoolVar(&opts.noSkip, "no-skip", false, "Re-run routes that previously failed")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", defaults.BaseURL, "Search site base URL")
	cmd.Flags().StringVar(&opts.fromFile, "from-file", "", "Harvest from a saved results page instead of a live browser")
	cmd.Flags().DurationVar(&opts.jobTimeout, "job-timeout", defaults.JobTimeout, "Hard deadline per route")
	cmd.Flags().IntVar(&opts.noProgress, "no-progress", defaults.NoProgressThreshold, "Unchanged scroll steps before the list counts as settled")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}

func runBatch(parentCtx context.Context, opts *runOptions, planPath string) error {
	logger, _ := newLogger(opts.verbose)
	slog.SetDefault(logger)

	cfg := buildConfig(opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	plan, err := config.LoadPlan(planPath)
	if err != nil {
		return err
	}
	queries := plan.Queries()

	slog.Info("starting batch",
		slog.String("plan", planPath),
		slog.Int("routes", len(queries)),
		slog.Int("concurrency", cfg.Concurrency),
		slog.String("travel_date", plan.Day+" "+plan.MonthYear),
	)

	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight routes to finish")
	}()

	metrics := harvest.NewMetrics()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	factory := surfaceFactory(cfg, opts.fromFile)
	harvester := harvest.New(cfg, metrics)
	jobs := runner.New(cfg, factory, harvester, metrics)
	coordinator := runner.NewCoordinator(cfg, jobs, metrics)

	start := time.Now()
	summary := coordinator.RunAll(ctx, queries)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, time.Since(start), cfg.OutputDir)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d routes failed", summary.Failed, len(queries))
	}
	return nil
}

func buildConfig(opts *runOptions) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = opts.baseURL
	cfg.OutputDir = opts.output
	cfg.Visible = opts.visible
	cfg.MaxRetries = opts.retries
	cfg.Concurrency = opts.concurrency
	cfg.SkipFailed = !opts.noSkip
	cfg.MetricsAddr = opts.metricsAddr
	cfg.JobTimeout = opts.jobTimeout
	cfg.NoProgressThreshold = opts.noProgress
	cfg.Verbose = opts.verbose
	return cfg
}

// surfaceFactory picks the live browser surface, or a static file surface
// when --from-file points at a saved results page.
func surfaceFactory(cfg *config.Config, fromFile string) surface.Factory {
	if fromFile != "" {
		return func(ctx context.Context) (surface.Surface, error) {
			return static.NewFromFile(fromFile)
		}
	}
	return chrome.Factory(chrome.Options{
		BaseURL:     cfg.BaseURL,
		UserAgent:   cfg.UserAgent,
		Visible:     cfg.Visible,
		MemorySaver: cfg.MemorySaver,
	})
}

func printSummary(summary models.BatchSummary, elapsed time.Duration, outputDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Batch complete")
	fmt.Printf("  Completed:  %d\n", summary.Completed)
	fmt.Printf("  Empty:      %d\n", summary.Empty)
	fmt.Printf("  Failed:     %d\n", summary.Failed)
	fmt.Printf("  Skipped:    %d\n", summary.Skipped)
	fmt.Printf("  Records:    %d\n", summary.Records)
	fmt.Printf("  Duration:   %v\n", elapsed.Round(time.Second))
	fmt.Printf("  Output dir: %s\n", outputDir)
	fmt.Println(separator)
}
