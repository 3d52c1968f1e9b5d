package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/data/graphstore"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/query"
	"molgraph/internal/shared/logger"
	"molgraph/internal/shared/observability"
	"molgraph/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ShardPath is the final file of worker i.
func ShardPath(prefix string, worker int) string {
	return fmt.Sprintf("%s-%d.db", prefix, worker)
}

// CombinedPath is the merged output file.
func CombinedPath(prefix string) string {
	return prefix + ".db"
}

const tmpSuffix = ".tmp"

// Process builds every query and writes the graphs. The queries are split
// into cpuCount contiguous chunks (fewer when there are fewer queries) and
// each chunk is handled by its own worker in order. A failing query is logged
// and skipped; it never stops its worker. With combine set the worker files
// are merged into one file and removed.
//
// Outputs left under the prefix by an earlier run are removed first.
// Cancelling ctx does not interrupt a running batch.
func (c *Collection) Process(ctx context.Context, modules []features.Module, cpuCount int, combine bool) (*Result, error) {
	c.mu.Lock()
	switch c.state {
	case StateEmpty:
		c.mu.Unlock()
		return nil, errors.New(errors.CodeInvalidState, "collection has no queries")
	case StatePopulated:
	default:
		state := c.state
		c.mu.Unlock()
		return nil, errors.Newf(errors.CodeInvalidState, "collection already %s", state)
	}
	if c.cfg.Prefix == "" {
		c.mu.Unlock()
		return nil, errors.New(errors.CodeValidationError, "output prefix is required")
	}
	c.state = StateProcessing
	items := append([]item(nil), c.items...)
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.Tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.Int("queries", len(items)),
		attribute.Bool("combine", combine),
	))
	defer span.End()

	start := time.Now()
	if cpuCount <= 0 {
		cpuCount = util.DefaultWorkers()
	}
	chunks := partition(len(items), cpuCount)
	if err := util.EnsureParentDir(c.cfg.Prefix); err != nil {
		c.setState(StateFailed)
		return nil, errors.Wrap(err, errors.CodeSerialization, "create output directory")
	}
	if err := removeStaleOutputs(c.cfg.Prefix); err != nil {
		c.setState(StateFailed)
		return nil, err
	}
	logger.Info("processing queries",
		zap.Int(logger.FieldCount, len(items)),
		zap.Int("workers", len(chunks)),
		zap.Bool("combine", combine),
	)

	res := &Result{Outcomes: make([]Outcome, len(items)), Workers: len(chunks)}
	shards := make([]string, len(chunks))
	var wg sync.WaitGroup
	for w, ch := range chunks {
		wg.Add(1)
		go func(w int, ch chunk) {
			defer wg.Done()
			shards[w] = c.runWorker(ctx, w, items[ch.start:ch.end], res.Outcomes[ch.start:ch.end], modules)
		}(w, ch)
	}
	wg.Wait()

	for _, p := range shards {
		if p != "" {
			res.Paths = append(res.Paths, p)
		}
	}
	for _, o := range res.Outcomes {
		status := "succeeded"
		if !o.Succeeded() {
			status = "failed"
		}
		observability.QueriesTotal.WithLabelValues(status).Inc()
	}

	if len(res.Paths) == 0 {
		logger.Warn("no query produced a graph", zap.Int(logger.FieldCount, len(items)))
		res.Elapsed = time.Since(start)
		c.setState(StateDone)
		return res, nil
	}

	if combine {
		if err := c.combine(ctx, res); err != nil {
			res.Elapsed = time.Since(start)
			c.setState(StateFailed)
			return res, err
		}
	}

	res.Elapsed = time.Since(start)
	c.setState(StateDone)
	logger.Info("processing finished",
		zap.Int("succeeded", len(res.Succeeded())),
		zap.Int("failed", len(res.Failed())),
		zap.Strings("outputs", res.Paths),
		logger.Duration(res.Elapsed),
	)
	return res, nil
}

// removeStaleOutputs deletes the combined file and every worker file (and
// their temporaries) left under prefix by an earlier run, so a finished run
// leaves only its own outputs.
func removeStaleOutputs(prefix string) error {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeSerialization, "scan output directory"), errors.CtxPath, dir)
	}
	for _, e := range entries {
		if e.IsDir() || !isOutputName(base, e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := util.RemoveIfExists(p); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeSerialization, "remove stale output"), errors.CtxPath, p)
		}
		logger.Debug("removed stale output", logger.Path(p))
	}
	return nil
}

// OwnsPath reports whether path is an output file name reserved by prefix:
// the combined file or a worker file, with or without the temporary suffix.
func OwnsPath(prefix, path string) bool {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(filepath.Dir(prefix)) {
		return false
	}
	return isOutputName(filepath.Base(prefix), filepath.Base(path))
}

// isOutputName matches <base>.db and <base>-<n>.db, with or without the
// temporary suffix.
func isOutputName(base, name string) bool {
	name = strings.TrimSuffix(name, tmpSuffix)
	if !strings.HasSuffix(name, ".db") {
		return false
	}
	name = strings.TrimSuffix(name, ".db")
	if name == base {
		return true
	}
	n, ok := strings.CutPrefix(name, base+"-")
	if !ok || n == "" {
		return false
	}
	_, err := strconv.ParseUint(n, 10, 32)
	return err == nil
}

type chunk struct{ start, end int }

// partition splits n items into min(k, n) contiguous chunks whose sizes
// differ by at most one, larger chunks first.
func partition(n, k int) []chunk {
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	out := make([]chunk, k)
	size, extra := n/k, n%k
	start := 0
	for i := range out {
		end := start + size
		if i < extra {
			end++
		}
		out[i] = chunk{start, end}
		start = end
	}
	return out
}

// runWorker builds its queries in order into a private shard and returns the
// shard path, or "" when nothing was written.
func (c *Collection) runWorker(ctx context.Context, w int, items []item, outcomes []Outcome, modules []features.Module) string {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.worker", trace.WithAttributes(
		attribute.Int("worker", w),
		attribute.Int("queries", len(items)),
	))
	defer span.End()

	final := ShardPath(c.cfg.Prefix, w)
	tmp := final + tmpSuffix
	for i, it := range items {
		outcomes[i] = Outcome{Key: it.key, Kind: string(it.q.Kind()), Worker: w}
	}

	store, err := graphstore.Create(tmp)
	if err != nil {
		err = errors.AddContext(err, errors.CtxWorker, w)
		logger.Error("cannot open worker shard", logger.Worker(w), logger.Path(tmp), logger.Err(err))
		for i := range outcomes {
			outcomes[i].Err = err
		}
		return ""
	}
	writer := graphstore.NewBatchWriter(store, graphstore.BatchWriterConfig{
		BatchSize:     c.cfg.BatchSize,
		FlushInterval: c.cfg.FlushInterval,
	})

	env := c.cfg.envFor(w)
	for i, it := range items {
		began := time.Now()
		n, e, err := buildOne(ctx, env, it, modules, writer)
		outcomes[i].Duration = time.Since(began)
		if err != nil {
			outcomes[i].Err = err
			logger.Warn("query skipped",
				logger.QueryID(it.key),
				logger.Worker(w),
				zap.String(logger.FieldErrorCode, outcomes[i].ErrorCode()),
				logger.Err(err),
			)
			continue
		}
		outcomes[i].Nodes, outcomes[i].Edges = n, e
	}

	writeErr := writer.Close()
	written := writer.Written()
	if err := store.Close(); err != nil && writeErr == nil {
		writeErr = errors.Wrap(err, errors.CodeSerialization, "close worker shard")
	}
	if writeErr != nil {
		// the shard is incomplete; none of its entries can be trusted
		writeErr = errors.AddContext(writeErr, errors.CtxWorker, w)
		logger.Error("worker shard lost", logger.Worker(w), logger.Path(tmp), logger.Err(writeErr))
		_ = util.RemoveIfExists(tmp)
		for i := range outcomes {
			if outcomes[i].Err == nil {
				outcomes[i].Err = writeErr
			}
		}
		return ""
	}
	if written == 0 {
		_ = util.RemoveIfExists(tmp)
		return ""
	}
	if err := os.Rename(tmp, final); err != nil {
		err = errors.AddContext(errors.Wrap(err, errors.CodeSerialization, "commit worker shard"), errors.CtxPath, final)
		err = errors.AddContext(err, errors.CtxWorker, w)
		logger.Error("worker shard lost", logger.Worker(w), logger.Err(err))
		_ = util.RemoveIfExists(tmp)
		for i := range outcomes {
			if outcomes[i].Err == nil {
				outcomes[i].Err = err
			}
		}
		return ""
	}
	observability.ShardsWrittenTotal.Inc()
	for i := range outcomes {
		if outcomes[i].Err == nil {
			outcomes[i].Output = final
		}
	}
	logger.Debug("worker shard written", logger.Worker(w), logger.Path(final), zap.Int(logger.FieldCount, written))
	return final
}

// buildOne builds, flattens and enqueues one graph. A panic inside the query
// is turned into an error so the rest of the chunk still runs.
func buildOne(ctx context.Context, env query.Env, it item, modules []features.Module, w *graphstore.BatchWriter) (nodes, edges int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.AddContext(
				errors.Newf(errors.CodeInternal, "query panicked: %v", r),
				errors.CtxQuery, it.key)
			logger.Debug("query panic stack", logger.QueryID(it.key), zap.ByteString("stack", debug.Stack()))
		}
	}()

	g, err := it.q.BuildGraph(ctx, env, modules)
	if err != nil {
		return 0, 0, err
	}
	g.Name = it.key
	entry, err := graphstore.FromGraph(g)
	if err != nil {
		return 0, 0, errors.AddContext(err, errors.CtxQuery, it.key)
	}
	if err := w.Submit(ctx, entry); err != nil {
		return 0, 0, err
	}
	return g.NumNodes(), g.NumEdges(), nil
}

// combine merges the worker shards into the combined file and removes them.
// On failure the shards are left in place and stay in res.Paths.
func (c *Collection) combine(ctx context.Context, res *Result) error {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.merge", trace.WithAttributes(
		attribute.Int("shards", len(res.Paths)),
	))
	defer span.End()

	dst := CombinedPath(c.cfg.Prefix)
	tmp := dst + tmpSuffix
	report, err := graphstore.Merge(ctx, tmp, res.Paths)
	if err == nil {
		err = os.Rename(tmp, dst)
		if err != nil {
			err = errors.AddContext(errors.Wrap(err, errors.CodeSerialization, "commit combined file"), errors.CtxPath, dst)
		}
	}
	if err != nil {
		span.RecordError(err)
		_ = util.RemoveIfExists(tmp)
		logger.Error("merge failed; worker files kept", zap.Strings("outputs", res.Paths), logger.Err(err))
		return err
	}

	for _, p := range res.Paths {
		if err := util.RemoveIfExists(p); err != nil {
			logger.Warn("cannot remove worker file", logger.Path(p), logger.Err(err))
		}
	}
	for i := range res.Outcomes {
		if res.Outcomes[i].Succeeded() {
			res.Outcomes[i].Output = dst
		}
	}
	res.Merge = &report
	res.Paths = []string{dst}
	return nil
}
