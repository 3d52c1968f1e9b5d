package query

import (
	"context"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
	"molgraph/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type selectFunc func(s *structure.Structure) (*graph.Graph, error)

// build runs the steps every query shares: load the structure, attach
// profiles, select and build the graph, attach targets and metadata, run the
// feature modules and validate the result.
func build(ctx context.Context, q interface {
	Query
	ProfilePaths() map[string]string
}, env Env, modules []features.Module, sel selectFunc) (g *graph.Graph, err error) {
	ctx, span := observability.Tracer.Start(ctx, "query.BuildGraph", trace.WithAttributes(
		attribute.String("query.id", q.ID()),
		attribute.String("query.kind", string(q.Kind())),
	))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			err = errors.AddContext(err, errors.CtxQuery, q.ID())
		} else {
			observability.QueryBuildDuration.WithLabelValues(string(q.Kind())).Observe(time.Since(start).Seconds())
			observability.GraphNodes.Observe(float64(g.NumNodes()))
			observability.GraphEdges.Observe(float64(g.NumEdges()))
		}
		span.End()
	}()

	if env.Structures == nil {
		return nil, errors.New(errors.CodeInternal, "no structure loader configured")
	}
	s, err := env.Structures.Load(ctx, q.StructurePath())
	if err != nil {
		if !errors.IsCode(err, errors.CodeStructure) {
			err = errors.Wrap(err, errors.CodeStructure, "load structure")
		}
		return nil, err
	}

	paths := q.ProfilePaths()
	s.ResetProfiles()
	if len(paths) > 0 {
		if env.Profiles == nil {
			return nil, errors.New(errors.CodeInternal, "profile paths given but no profile provider configured")
		}
		if err := env.Profiles.Attach(ctx, s, paths); err != nil {
			return nil, err
		}
	}

	g, err = sel(s)
	if err != nil {
		return nil, err
	}
	if g.NumNodes() == 0 {
		return nil, errors.Newf(errors.CodeDegenerateGraph, "query %s selected no nodes", q.ID())
	}

	for k, v := range q.Targets() {
		g.Targets[k] = v
	}
	g.Metadata[MetaStructure] = q.StructurePath()
	g.Metadata[MetaKind] = string(q.Kind())
	g.Metadata[MetaFingerprint] = q.Fingerprint()
	for chain, path := range paths {
		g.Metadata[MetaProfilePath+chain] = path
	}

	if err := features.Apply(ctx, q.StructurePath(), g, g.Variant, modules); err != nil {
		return nil, err
	}
	if _, _, err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func buildGranular(name string, granularity graph.Granularity, residues []*structure.Residue, cutoff float64) (*graph.Graph, error) {
	if granularity == graph.Atomic {
		var atoms []*structure.Atom
		for _, r := range residues {
			atoms = append(atoms, r.Atoms()...)
		}
		return graph.BuildAtomic(name, atoms, cutoff)
	}
	return graph.BuildResidue(name, residues, cutoff)
}
