// Package app wires a job configuration to the processing pipeline.
package app

import (
	"context"
	"strings"
	"sync"

	"molgraph/internal/core/config"
	"molgraph/internal/core/errors"
	"molgraph/internal/core/pipeline"
	"molgraph/internal/data/manifest"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/query"
	"molgraph/internal/shared/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config

	manifest *manifest.Store
	// newEnv overrides the per-worker environment; tests use it to avoid disk.
	newEnv func(worker int) query.Env

	mu         sync.Mutex
	collection *pipeline.Collection
	last       *Report
}

// New prepares an App. The manifest store is opened when configured.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	a := &App{Config: cfg}
	if p := strings.TrimSpace(cfg.Manifest.Path); p != "" {
		store, err := manifest.Open(cfg.Resolve(p))
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeSerialization, "open manifest"), errors.CtxPath, p)
		}
		a.manifest = store
	}
	return a, nil
}

func (a *App) Close() error {
	if a == nil || a.manifest == nil {
		return nil
	}
	return a.manifest.Close()
}

// RunOptions override the configuration for one run.
type RunOptions struct {
	Workers int
	Combine *bool
}

// Report is the outcome of Run.
type Report struct {
	RunID    string
	Queries  int
	Modules  []string
	Result   *pipeline.Result
	Manifest string
}

// Run builds the configured queries and writes their graphs.
func (a *App) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	cfg := a.Config
	queries, err := BuildQueries(cfg)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, errors.New(errors.CodeValidationError, "config defines no queries")
	}

	modules := features.All()
	if len(cfg.Features.Modules) > 0 {
		if modules, err = features.Lookup(cfg.Features.Modules); err != nil {
			return nil, err
		}
	}

	workers := cfg.Processing.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	combine := cfg.CombineOutput()
	if opts.Combine != nil {
		combine = *opts.Combine
	}

	collection := pipeline.NewCollection(pipeline.Config{
		Prefix:            cfg.Resolve(cfg.Output.Prefix),
		BatchSize:         cfg.Processing.BatchSize,
		FlushInterval:     cfg.Processing.FlushInterval,
		StructureCache:    cfg.Processing.StructureCache,
		MaxLoadsPerSecond: cfg.Processing.MaxLoadsPerSecond,
		LoadBurst:         cfg.Processing.LoadBurst,
		IncludeHetero:     cfg.Processing.IncludeHetero,
		NewEnv:            a.newEnv,
	})
	for _, q := range queries {
		if _, err := collection.Add(q); err != nil {
			return nil, err
		}
	}

	report := &Report{RunID: uuid.NewString(), Queries: len(queries)}
	for _, m := range modules {
		report.Modules = append(report.Modules, m.Name)
	}
	a.mu.Lock()
	a.collection = collection
	a.mu.Unlock()

	log := logger.L().With(zap.String(logger.FieldRunID, report.RunID))
	log.Info("run started", zap.Int(logger.FieldCount, len(queries)), zap.Strings("modules", report.Modules))

	if a.manifest != nil {
		report.Manifest = a.manifest.Path()
		if _, err := a.manifest.BeginRun(manifest.Run{
			ID:         report.RunID,
			Prefix:     cfg.Output.Prefix,
			Workers:    workers,
			Combine:    combine,
			QueryCount: len(queries),
		}); err != nil {
			return nil, errors.Wrap(err, errors.CodeSerialization, "record run start")
		}
	}

	res, procErr := collection.Process(ctx, modules, workers, combine)
	report.Result = res
	if res != nil && a.manifest != nil {
		if err := a.recordOutcomes(report.RunID, res); err != nil {
			log.Error("manifest update failed", logger.Path(a.manifest.Path()), logger.Err(err))
			if procErr == nil {
				procErr = err
			}
		}
	}

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()
	if procErr != nil {
		return report, procErr
	}
	log.Info("run finished", zap.Strings("outputs", res.Paths), zap.Int("failed", len(res.Failed())))
	return report, nil
}

func (a *App) recordOutcomes(runID string, res *pipeline.Result) error {
	outcomes := make([]manifest.Outcome, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		rec := manifest.Outcome{
			QueryID:  o.Key,
			Kind:     o.Kind,
			Status:   manifest.StatusSucceeded,
			Worker:   o.Worker,
			Duration: o.Duration,
			Output:   o.Output,
		}
		if o.Err != nil {
			rec.Status = manifest.StatusFailed
			rec.ErrorCode = o.ErrorCode()
			rec.Message = o.Err.Error()
		}
		outcomes = append(outcomes, rec)
	}
	if err := a.manifest.Record(runID, outcomes...); err != nil {
		return err
	}
	return a.manifest.FinishRun(runID, res.Paths)
}
