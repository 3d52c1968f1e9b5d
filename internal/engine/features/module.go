// Package features holds the feature modules that annotate graph nodes and
// edges.
//
// A module receives the structure path, the graph and the optional variant,
// and writes named features in place. Modules never add or remove nodes or
// edges, always write the same vector width for a granularity, and overwrite
// rather than accumulate, so running one twice yields the same graph.
package features

import (
	"context"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/structure"
	"molgraph/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AddFunc computes features for g in place.
type AddFunc func(structurePath string, g *graph.Graph, v *structure.Variant) error

// Module is a named feature computation.
type Module struct {
	Name string
	Add  AddFunc
}

var builtin = []Module{
	{Name: "components", Add: addComponents},
	{Name: "conservation", Add: addConservation},
	{Name: "contact", Add: addContacts},
	{Name: "surfacearea", Add: addSurfaceArea},
	{Name: "exposure", Add: addExposure},
}

// All returns the built-in modules in their canonical order.
func All() []Module {
	return append([]Module(nil), builtin...)
}

// Lookup resolves module names, preserving the requested order.
func Lookup(names []string) ([]Module, error) {
	out := make([]Module, 0, len(names))
	for _, name := range names {
		found := false
		for _, m := range builtin {
			if m.Name == name {
				out = append(out, m)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.AddContext(errors.Newf(errors.CodeValidationError, "unknown feature module %q", name), errors.CtxFeature, name)
		}
	}
	return out, nil
}

// Names lists the built-in module names.
func Names() []string {
	names := make([]string, len(builtin))
	for i, m := range builtin {
		names[i] = m.Name
	}
	return names
}

// Apply runs modules in order. The first failing module fails the whole
// graph; a module that changes the node or edge count is reported as a
// defect.
func Apply(ctx context.Context, structurePath string, g *graph.Graph, v *structure.Variant, modules []Module) error {
	for _, m := range modules {
		if err := applyOne(ctx, structurePath, g, v, m); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, structurePath string, g *graph.Graph, v *structure.Variant, m Module) error {
	_, span := observability.Tracer.Start(ctx, "features."+m.Name, trace.WithAttributes(
		attribute.String("graph", g.Name),
		attribute.Int("nodes", g.NumNodes()),
	))
	defer span.End()

	start := time.Now()
	nodes, edges := g.NumNodes(), g.NumEdges()
	err := m.Add(structurePath, g, v)
	observability.FeatureDuration.WithLabelValues(m.Name).Observe(time.Since(start).Seconds())

	if err == nil && (g.NumNodes() != nodes || g.NumEdges() != edges) {
		err = errors.Newf(errors.CodeGraphDefect, "module %s changed the graph shape", m.Name)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.IsCode(err, errors.CodeGraphDefect) && !errors.IsCode(err, errors.CodeFeature) {
			err = errors.Wrapf(err, errors.CodeFeature, "feature module %s", m.Name)
		}
		return errors.AddContext(err, errors.CtxFeature, m.Name)
	}
	return nil
}
