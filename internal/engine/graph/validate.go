package graph

import (
	"molgraph/internal/core/errors"
)

// Schema records the width of each feature (0 for scalars).
type Schema map[string]int

// Validate checks the invariants a graph must satisfy before it is written:
// edges reference distinct existing nodes, every node (and every edge) carries
// the same feature names with the same widths, and no value is NaN or ±Inf.
// It returns the node and edge schemas on success.
func (g *Graph) Validate() (nodeSchema, edgeSchema Schema, err error) {
	for _, e := range g.edges {
		if e.I == e.J {
			return nil, nil, errors.Newf(errors.CodeGraphDefect, "%s: self-loop on node %d", g.Name, e.I)
		}
		if e.I < 0 || e.J >= len(g.nodes) || e.I > e.J {
			return nil, nil, errors.Newf(errors.CodeGraphDefect, "%s: malformed edge (%d,%d)", g.Name, e.I, e.J)
		}
	}

	maps := make([]FeatureMap, len(g.nodes))
	for i, n := range g.nodes {
		maps[i] = n.Features
	}
	if nodeSchema, err = consistentSchema(g.Name, "node", maps); err != nil {
		return nil, nil, err
	}

	maps = make([]FeatureMap, len(g.edges))
	for i, e := range g.edges {
		maps[i] = e.Features
	}
	if edgeSchema, err = consistentSchema(g.Name, "edge", maps); err != nil {
		return nil, nil, err
	}
	return nodeSchema, edgeSchema, nil
}

func consistentSchema(graphName, kind string, maps []FeatureMap) (Schema, error) {
	schema := Schema{}
	if len(maps) == 0 {
		return schema, nil
	}
	for name, f := range maps[0] {
		schema[name] = f.Width()
	}
	for i, m := range maps {
		if len(m) != len(schema) {
			return nil, errors.Newf(errors.CodeGraphDefect, "%s: %s %d has %d features, expected %d", graphName, kind, i, len(m), len(schema))
		}
		for name, f := range m {
			w, ok := schema[name]
			if !ok {
				return nil, errors.AddContext(
					errors.Newf(errors.CodeGraphDefect, "%s: %s %d has unexpected feature", graphName, kind, i),
					errors.CtxFeature, name)
			}
			if f.Width() != w || (!f.Vector && len(f.Values) != 1) {
				return nil, errors.AddContext(
					errors.Newf(errors.CodeGraphDefect, "%s: %s %d feature width %d, expected %d", graphName, kind, i, f.Width(), w),
					errors.CtxFeature, name)
			}
		}
		if name, bad := m.hasNaN(); bad {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeGraphDefect, "%s: %s %d has a non-finite value", graphName, kind, i),
				errors.CtxFeature, name)
		}
	}
	return schema, nil
}
