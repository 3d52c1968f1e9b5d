package graphstore

import (
	"context"

	"molgraph/internal/core/errors"
	"molgraph/internal/shared/logger"
	"molgraph/internal/shared/observability"

	"go.uber.org/zap"
)

// MergeReport summarizes a Merge.
type MergeReport struct {
	Entries    int
	Collisions []string
}

// Merge copies every entry of srcs, in order, into a new container at dst.
// A key present in more than one source is kept from the later source and
// recorded as a collision. The sources are left untouched.
func Merge(ctx context.Context, dst string, srcs []string) (MergeReport, error) {
	var report MergeReport
	out, err := Create(dst)
	if err != nil {
		return report, err
	}

	seen := make(map[string]string)
	for _, src := range srcs {
		if err := mergeOne(ctx, out, src, seen, &report); err != nil {
			_ = out.Close()
			return report, errors.AddContext(err, errors.CtxPath, src)
		}
	}
	if err := out.Close(); err != nil {
		return report, errors.Wrapf(err, errors.CodeSerialization, "close merged store %q", dst)
	}
	report.Entries = len(seen)
	return report, nil
}

func mergeOne(ctx context.Context, out *Store, src string, seen map[string]string, report *MergeReport) error {
	in, err := Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	keys, err := in.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		e, err := in.Get(ctx, key)
		if err != nil {
			return err
		}
		if _, err := out.Put(ctx, e); err != nil {
			return err
		}
		if prev, ok := seen[key]; ok {
			report.Collisions = append(report.Collisions, key)
			observability.MergeCollisionsTotal.Inc()
			logger.Warn("duplicate graph key while merging; later entry wins",
				logger.QueryID(key), zap.String("first", prev), logger.Path(src))
		}
		seen[key] = src
	}
	return nil
}
