package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/incomeview/api"
	"github.com/seenimoa/incomeview/internal/config"
	"github.com/seenimoa/incomeview/internal/report"
	"github.com/seenimoa/incomeview/internal/state"
	"github.com/seenimoa/incomeview/internal/statement"
)

// runShow performs one fetch and writes the filtered, sorted table to out.
// On fetch failure only the error message is written and errFetchFailed
// is returned.
func runShow(ctx context.Context, out io.Writer, cfg *config.Config, src state.Source, q statement.Query, format report.Format) error {
	filter, sort, err := q.Parse()
	if err != nil {
		return err
	}

	st := state.New(cfg.FMP.Symbol)
	if err := st.Refresh(ctx, src); err != nil {
		fmt.Fprintln(out, report.ErrorMessage(st.Err()))
		return errFetchFailed
	}

	snap := st.Snapshot()
	records := st.View(filter, sort)

	switch format {
	case report.FormatMarkdown:
		_, err = io.WriteString(out, report.Markdown(records))
	case report.FormatJSON:
		err = report.JSON(out, report.Document{
			Symbol:    snap.Symbol,
			FetchedAt: snap.FetchedAt,
			Records:   records,
		})
	case report.FormatHTML:
		page := report.NewPage(snap.Symbol, q, records)
		page.FetchedAt = snap.FetchedAt.Format(time.RFC1123)
		err = report.HTML(out, page)
	default:
		var s string
		title := fmt.Sprintf("%s income statements (%d of %d)", snap.Symbol, len(records), len(snap.Records))
		s, err = report.Terminal(title, records, report.TermOptions{Width: cfg.View.Width, Style: cfg.View.Style})
		if err == nil {
			_, err = io.WriteString(out, s)
		}
	}
	return err
}

// runServe serves the HTML view until ctx is cancelled. The first fetch
// runs alongside server startup; a failure is kept in state and shown on
// the page rather than stopping the server.
func runServe(ctx context.Context, cfg *config.Config, src state.Source) error {
	api.Version = version
	st := state.New(cfg.FMP.Symbol)
	srv := api.NewServer(cfg, st, src)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Addr())
	})
	g.Go(func() error {
		if err := st.Refresh(gctx, src); err != nil {
			log.Printf("serve: initial fetch failed, page will show the error: %v", err)
		}
		return nil
	})
	return g.Wait()
}

// runStatus prints the configuration summary and key status. With ping it
// also requests a single record from FMP.
func runStatus(ctx context.Context, out io.Writer, cfg *config.Config, ping bool) error {
	fmt.Fprintln(out, "═══════════════════════════════════════")
	fmt.Fprintln(out, "  incomeview status")
	fmt.Fprintln(out, "═══════════════════════════════════════")
	fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
	fmt.Fprintln(out)

	// Config summary
	fmt.Fprintln(out, "  Configuration:")
	fmt.Fprintf(out, "    FMP Base URL:  %s\n", cfg.FMP.BaseURL)
	fmt.Fprintf(out, "    Symbol:        %s (%s)\n", cfg.FMP.Symbol, cfg.FMP.Period)
	fmt.Fprintf(out, "    Default Sort:  %s %s\n", cfg.View.SortField, cfg.View.SortOrder)
	fmt.Fprintf(out, "    View Server:   %s\n", cfg.Addr())
	fmt.Fprintln(out)

	// API keys status
	fmt.Fprintln(out, "  API Keys:")
	for _, k := range config.CheckAPIKeys(cfg) {
		status := "not set"
		if k.IsSet {
			status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			if k.EnvVar != "" {
				status = fmt.Sprintf("set (%s %s: %s)", k.Source, k.EnvVar, k.Masked)
			}
		}
		fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
	}

	var pingErr error
	if ping {
		fmt.Fprintln(out)
		pingErr = pingFMP(ctx, cfg)
		if pingErr != nil {
			fmt.Fprintf(out, "  Connectivity:  FAILED (%v)\n", pingErr)
		} else {
			fmt.Fprintln(out, "  Connectivity:  ok")
		}
	}

	fmt.Fprintln(out, "═══════════════════════════════════════")
	return pingErr
}

func pingFMP(ctx context.Context, cfg *config.Config) error {
	_, client, err := newSource(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return client.Ping(ctx)
}
