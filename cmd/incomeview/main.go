// incomeview: filterable, sortable table of a company's annual income
// statements from Financial Modeling Prep.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/incomeview/internal/config"
	"github.com/seenimoa/incomeview/internal/providers/fmp"
	"github.com/seenimoa/incomeview/internal/report"
	"github.com/seenimoa/incomeview/internal/state"
	"github.com/seenimoa/incomeview/internal/statement"
	"github.com/seenimoa/incomeview/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFetchFailed) {
			fmt.Fprintln(os.Stderr, report.ErrorMessage(err.Error()))
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "incomeview",
	Short: "Annual income statements as a filterable, sortable table",
	Long: `incomeview fetches a company's annual income statements from
Financial Modeling Prep and shows them as a table that can be filtered by
date, revenue and net income ranges and sorted by any of those columns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if sym, _ := cmd.Flags().GetString("symbol"); sym != "" {
			cfg.FMP.Symbol = sym
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		setupLogging(cfg.Logging, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading config")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("symbol", "", "ticker symbol override (default from config: AAPL)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging routes the standard logger through slog so the configured
// level and format apply to every package's log.Printf.
func setupLogging(lc config.LoggingConfig, w io.Writer) {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	log.SetFlags(0)
}

// newSource builds the FMP client for cfg and adapts it to state.Source.
func newSource(cfg *config.Config) (state.Source, *fmp.Client, error) {
	period, err := fmp.ParsePeriod(cfg.FMP.Period)
	if err != nil {
		return nil, nil, err
	}
	client, err := fmp.New(cfg.FMP.APIKey,
		fmp.WithBaseURL(cfg.FMP.BaseURL),
		fmp.WithTimeout(time.Duration(cfg.FMP.TimeoutSec)*time.Second),
		fmp.WithDebug(cfg.Debug()),
	)
	if err != nil {
		return nil, nil, err
	}
	src := state.SourceFunc(func(ctx context.Context, symbol string) ([]models.FinancialRecord, error) {
		return client.IncomeStatements(ctx, symbol, period)
	})
	return src, client, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("incomeview %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Show Command ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch income statements and print the table",
	Long: `Fetch the configured symbol's income statements and print them
filtered and sorted.

Examples:
  incomeview show --sort revenue --order desc
  incomeview show --start-date 2020-01-01 --min-net-income 50,000,000,000
  incomeview show --symbol MSFT --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		formatFlag, _ := cmd.Flags().GetString("format")
		if formatFlag == "" {
			formatFlag = cfg.View.Format
		}
		format, err := report.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		src, _, err := newSource(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runShow(ctx, cmd.OutOrStdout(), cfg, src, q, format)
	},
}

func init() {
	f := showCmd.Flags()
	f.String("start-date", "", "earliest statement date, YYYY-MM-DD (inclusive)")
	f.String("end-date", "", "latest statement date, YYYY-MM-DD (inclusive)")
	f.String("min-revenue", "", "minimum revenue (inclusive)")
	f.String("max-revenue", "", "maximum revenue (inclusive)")
	f.String("min-net-income", "", "minimum net income (inclusive)")
	f.String("max-net-income", "", "maximum net income (inclusive)")
	f.String("sort", "", "sort field: date, revenue, netIncome or none (default from config)")
	f.String("order", "", "sort order: asc or desc (default from config)")
	f.String("format", "", "output format: term, markdown, json or html (default from config)")
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the table as a local web page",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _, err := newSource(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, src)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ping, _ := cmd.Flags().GetBool("ping")
		return runStatus(cmd.Context(), cmd.OutOrStdout(), cfg, ping)
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "request one record to verify connectivity and the API key")
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (API key masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// errFetchFailed marks a fetch failure that has already been reported.
var errFetchFailed = errors.New("fetch failed")

// queryFromFlags reads the show flags, falling back to the configured
// view defaults for sort and order when the flags are not given.
func queryFromFlags(cmd *cobra.Command) (statement.Query, error) {
	f := cmd.Flags()
	get := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	q := statement.Query{
		FilterInput: statement.FilterInput{
			StartDate:    get("start-date"),
			EndDate:      get("end-date"),
			MinRevenue:   get("min-revenue"),
			MaxRevenue:   get("max-revenue"),
			MinNetIncome: get("min-net-income"),
			MaxNetIncome: get("max-net-income"),
		},
		Sort:  cfg.View.SortField,
		Order: cfg.View.SortOrder,
	}
	if f.Changed("sort") {
		q.Sort = get("sort")
	}
	if f.Changed("order") {
		q.Order = get("order")
	}
	if _, _, err := q.Parse(); err != nil {
		return statement.Query{}, err
	}
	return q, nil
}
