package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"molgraph/internal/core/app"
	"molgraph/internal/core/config"
	"molgraph/internal/shared/logger"
	"molgraph/internal/shared/observability"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newProcessCommand(root *rootOptions) *cobra.Command {
	var (
		configPath string
		workers    int
		noCombine  bool
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Build and write the graphs of every query in a job file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logger.Init(root.level(cfg.Logging.Level)); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts := app.RunOptions{Workers: workers}
			if noCombine {
				off := false
				opts.Combine = &off
			}
			return runProcess(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "molgraph.toml", "Path to the job file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of workers (default from config)")
	cmd.Flags().BoolVar(&noCombine, "no-combine", false, "Keep one output file per worker")
	return cmd
}

func runProcess(ctx context.Context, cfg *config.Config, opts app.RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// a batch is not interrupted mid-way; the signal only stops the metrics server early
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
		Insecure:    cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", logger.Err(err))
		}
	}()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := observability.NewServer(addr, app.NewHealthService(a).Check)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(sctx)
		}()
	}

	report, err := a.Run(ctx, opts)
	if report != nil && report.Result != nil {
		printReport(report)
	}
	return err
}

func printReport(report *app.Report) {
	res := report.Result
	pterm.DefaultSection.Println("Run " + report.RunID)

	data := pterm.TableData{{"Output", "Entries"}}
	counts := map[string]int{}
	for _, o := range res.Outcomes {
		if o.Succeeded() {
			counts[o.Output]++
		}
	}
	for _, p := range res.Paths {
		data = append(data, []string{p, fmt.Sprintf("%d", counts[p])})
	}
	if len(res.Paths) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	failed := res.Failed()
	if len(failed) > 0 {
		rows := pterm.TableData{{"Query", "Worker", "Error"}}
		byKey := map[string]string{}
		workers := map[string]int{}
		for _, o := range res.Outcomes {
			if !o.Succeeded() {
				byKey[o.Key] = o.ErrorCode()
				workers[o.Key] = o.Worker
			}
		}
		sort.Strings(failed)
		for _, k := range failed {
			rows = append(rows, []string{k, fmt.Sprintf("%d", workers[k]), byKey[k]})
		}
		pterm.Warning.Printf("%d of %d queries skipped\n", len(failed), report.Queries)
		_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	}

	pterm.Success.Printf("%d graphs written by %d workers in %s\n",
		len(res.Succeeded()), res.Workers, res.Elapsed.Round(time.Millisecond))
	if report.Manifest != "" {
		pterm.Info.Printf("Manifest: %s\n", report.Manifest)
	}
}
