package query

import (
	"context"
	"fmt"
	"strings"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/neighbor"
	"molgraph/internal/engine/structure"
)

// InterfaceOptions configures a protein-protein interface query.
// SurroundingRadius is optional; zero leaves the interface unexpanded.
type InterfaceOptions struct {
	StructurePath     string
	ModelID           string
	ChainID1          string
	ChainID2          string
	InterfaceCutoff   float64
	EdgeCutoff        float64
	SurroundingRadius float64
	ProfilePaths      map[string]string
	Targets           map[string]float64
}

// ProteinProteinInterfaceQuery builds the graph of residues (or their atoms)
// lying at the interface of two chains.
type ProteinProteinInterfaceQuery struct {
	common
	chainID1          string
	chainID2          string
	interfaceCutoff   float64
	edgeCutoff        float64
	surroundingRadius float64
}

func NewInterfaceResidueQuery(opts InterfaceOptions) (*ProteinProteinInterfaceQuery, error) {
	return newInterfaceQuery(opts, graph.Residue)
}

func NewInterfaceAtomicQuery(opts InterfaceOptions) (*ProteinProteinInterfaceQuery, error) {
	return newInterfaceQuery(opts, graph.Atomic)
}

func newInterfaceQuery(opts InterfaceOptions, granularity graph.Granularity) (*ProteinProteinInterfaceQuery, error) {
	c, err := newCommon(opts.StructurePath, opts.ModelID, granularity, opts.ProfilePaths, opts.Targets)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.ChainID1) == "" || strings.TrimSpace(opts.ChainID2) == "" {
		return nil, errors.New(errors.CodeValidationError, "interface query requires two chain ids")
	}
	if opts.ChainID1 == opts.ChainID2 {
		return nil, errors.Newf(errors.CodeValidationError, "interface query needs two distinct chains, got %s twice", opts.ChainID1)
	}
	if err := requirePositive("interface cutoff", opts.InterfaceCutoff); err != nil {
		return nil, err
	}
	if err := requirePositive("edge cutoff", opts.EdgeCutoff); err != nil {
		return nil, err
	}
	if opts.SurroundingRadius != 0 {
		if err := requirePositive("surrounding radius", opts.SurroundingRadius); err != nil {
			return nil, err
		}
	}
	return &ProteinProteinInterfaceQuery{
		common:            c,
		chainID1:          opts.ChainID1,
		chainID2:          opts.ChainID2,
		interfaceCutoff:   opts.InterfaceCutoff,
		edgeCutoff:        opts.EdgeCutoff,
		surroundingRadius: opts.SurroundingRadius,
	}, nil
}

func (q *ProteinProteinInterfaceQuery) Kind() Kind {
	if q.granularity == graph.Atomic {
		return KindInterfaceAtomic
	}
	return KindInterfaceResidue
}

// ID is e.g. "residue-ppi-3C8P:A-B".
func (q *ProteinProteinInterfaceQuery) ID() string {
	return fmt.Sprintf("%s-ppi-%s:%s-%s", q.granularityPrefix(), q.modelID, q.chainID1, q.chainID2)
}

func (q *ProteinProteinInterfaceQuery) Fingerprint() string {
	return fingerprint(fmt.Sprintf("%s;kind=%s;chains=%s-%s;interface=%g;edge=%g;surrounding=%g",
		q.canonical(), q.Kind(), q.chainID1, q.chainID2, q.interfaceCutoff, q.edgeCutoff, q.surroundingRadius))
}

func (q *ProteinProteinInterfaceQuery) BuildGraph(ctx context.Context, env Env, modules []features.Module) (*graph.Graph, error) {
	return build(ctx, q, env, modules, func(s *structure.Structure) (*graph.Graph, error) {
		residues, err := neighbor.InterfaceResidues(s, q.chainID1, q.chainID2, q.interfaceCutoff)
		if err != nil {
			return nil, err
		}
		if q.surroundingRadius > 0 && len(residues) > 0 {
			residues = neighbor.ForStructure(s).ResiduesNear(residues, q.surroundingRadius, true)
		}
		neighbor.SortResidues(residues)

		g, err := buildGranular(q.ID(), q.granularity, residues, q.edgeCutoff)
		if err != nil {
			return nil, err
		}
		g.Metadata[MetaChains] = q.chainID1 + "," + q.chainID2
		return g, nil
	})
}
