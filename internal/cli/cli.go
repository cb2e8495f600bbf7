package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/mellor-auctions/internal/config"
	"github.com/pfrederiksen/mellor-auctions/internal/listing"
	"github.com/pfrederiksen/mellor-auctions/internal/logger"
	"github.com/pfrederiksen/mellor-auctions/internal/scraper"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagFormat    string
	flagSort      string
	flagSearch    string
	flagURL       string
	flagFile      string
	flagSelectors string
	flagWorkers   int
	flagVerbose   bool
	flagCron      string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mellor-auctions",
		Short: "List the lots in the current Edward Mellor property auction",
		Long: `A CLI tool that finds the current auction on edwardmellor.co.uk and
lists its lots: address, rooms, guide price and status.

Each run fetches the auction index page, follows the first auction link and
extracts every listing row. Nothing is stored between runs.`,
		RunE:          runList,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Shared by list and watch
	pf := cmd.PersistentFlags()
	pf.StringVar(&flagFormat, "format", "text", "Output format: text, table, json or csv")
	pf.StringVar(&flagSort, "sort", "index", "Sort listings by: index, address, price, beds or status")
	pf.StringVar(&flagSearch, "search", "", "Only show listings whose address or status contains this text")
	pf.StringVar(&flagSelectors, "selectors", "", "YAML file overriding the default CSS selectors (or env: MELLOR_SELECTORS)")
	pf.IntVar(&flagWorkers, "workers", 0, "Extract listing rows on this many goroutines (or env: MELLOR_WORKERS)")
	pf.BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging and print run metrics")

	cmd.Flags().StringVar(&flagURL, "url", "", "Listing page URL; skips the auction index page")
	cmd.Flags().StringVar(&flagFile, "file", "", "Extract listings from a saved listing page instead of fetching")

	cmd.AddCommand(newListCmd(), newLocateCmd(), newWatchCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch and print the current auction's listings (default)",
		RunE:  runList,
	}
	cmd.Flags().StringVar(&flagURL, "url", "", "Listing page URL; skips the auction index page")
	cmd.Flags().StringVar(&flagFile, "file", "", "Extract listings from a saved listing page instead of fetching")
	return cmd
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the current auction's listing page URL",
		RunE:  runLocate,
	}
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the listing fetch on a cron schedule until interrupted",
		Long: `Runs the same cycle as list on a cron schedule. Every run is independent;
results are printed and nothing is compared with earlier runs.`,
		RunE: runWatch,
	}
	cmd.Flags().StringVar(&flagCron, "cron", "@hourly", "Cron schedule, e.g. \"*/30 * * * *\" or \"@every 1h\"")
	return cmd
}

// runEnv is everything a command needs, built from config and flags
type runEnv struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	format  OutputFormat
	view    ViewOptions
}

func setup(cmd *cobra.Command) (*runEnv, error) {
	cfg := config.Load()

	format, ok := ParseOutputFormat(flagFormat)
	if !ok {
		return nil, fmt.Errorf("invalid format: %s (must be 'text', 'table', 'json' or 'csv')", flagFormat)
	}
	order, ok := ParseSortOrder(flagSort)
	if !ok {
		return nil, fmt.Errorf("invalid sort order: %s (must be 'index', 'address', 'price', 'beds' or 'status')", flagSort)
	}

	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagSelectors != "" {
		cfg.SelectorsPath = flagSelectors
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	sel := scraper.DefaultSelectors()
	if cfg.SelectorsPath != "" {
		sel, err = scraper.LoadSelectors(cfg.SelectorsPath)
		if err != nil {
			return nil, fmt.Errorf("loading selectors: %w", err)
		}
		logger.Debug("Loaded selector overrides", logger.Fields{"path": cfg.SelectorsPath})
	}

	sc := scraper.New(
		scraper.NewHTTPFetcher(cfg.Timeout, cfg.UserAgent),
		scraper.WithIndexURL(cfg.IndexURL()),
		scraper.WithSelectors(sel),
		scraper.WithWorkers(cfg.Workers),
		scraper.WithLogger(log),
	)

	return &runEnv{
		cfg:     cfg,
		scraper: sc,
		format:  format,
		view:    ViewOptions{BaseURL: cfg.BaseURL, Sort: order, Search: flagSearch},
	}, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.NewWithFormat(level, format, w), nil
}

// runList is the main command logic
func runList(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}

	batch, err := fetchBatch(cmd.Context(), env)
	if err != nil {
		return err
	}

	result := NewOutputResult(batch, env.view)
	if result.ListingCount == 0 && result.TotalCount > 0 {
		logger.Warn("No listings match search", logger.Fields{
			"search": result.Search,
			"total":  result.TotalCount,
		})
	}
	if err := WriteOutput(cmd.OutOrStdout(), result, env.format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagVerbose {
		writeMetrics(cmd.ErrOrStderr(), logger.GetMetricsSnapshot())
	}
	return nil
}

func fetchBatch(ctx context.Context, env *runEnv) (*listing.Batch, error) {
	switch {
	case flagFile != "":
		data, err := os.ReadFile(flagFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", flagFile, err)
		}
		listings, err := env.scraper.Extract(string(data))
		if err != nil {
			return nil, err
		}
		return &listing.Batch{
			RunID:     uuid.NewString(),
			Auction:   listing.DateReference{URL: flagFile, Label: flagFile},
			Listings:  listings,
			FetchedAt: time.Now().UTC(),
		}, nil
	case flagURL != "":
		return env.scraper.Listings(ctx, flagURL)
	default:
		return env.scraper.Run(ctx)
	}
}

func runLocate(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}

	ref, err := env.scraper.Locate(cmd.Context())
	if err != nil {
		return err
	}

	pageURL, err := env.scraper.PageURL(ref)
	if err != nil {
		return err
	}
	return writeLocate(cmd.OutOrStdout(), ref, pageURL, env.format)
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c := cron.New()
	_, err = c.AddFunc(flagCron, func() {
		watchRun(ctx, env, cmd.OutOrStdout(), cmd.ErrOrStderr())
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	logger.Info("Watching auction", logger.Fields{
		"cron":      flagCron,
		"index_url": env.cfg.IndexURL(),
	})
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Stopped watching", nil)
	return nil
}

// watchRun is one scheduled cycle. Metrics are reset first so each run
// reports only its own numbers.
func watchRun(ctx context.Context, env *runEnv, out, errOut io.Writer) {
	logger.ResetMetrics()

	batch, err := env.scraper.Run(ctx)
	if err != nil {
		logger.Error("Scheduled run failed", logger.Fields{"cron": flagCron}, err)
		return
	}
	if err := WriteOutput(out, NewOutputResult(batch, env.view), env.format, flagVerbose); err != nil {
		logger.Error("Writing output failed", nil, err)
		return
	}
	if flagVerbose {
		writeMetrics(errOut, logger.GetMetricsSnapshot())
	}
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
