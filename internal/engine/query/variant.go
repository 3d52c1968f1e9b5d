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
	"molgraph/internal/shared/logger"

	"go.uber.org/zap"
)

// VariantOptions configures a single-residue variant query. Radius and
// EdgeCutoff must be positive.
type VariantOptions struct {
	StructurePath string
	ModelID       string
	ChainID       string
	ResidueNumber int
	InsertionCode string
	WildType      string
	Variant       string
	Radius        float64
	EdgeCutoff    float64
	ProfilePaths  map[string]string
	Targets       map[string]float64
}

// SingleResidueVariantQuery builds the neighbourhood graph of one residue and
// records the substitution on it.
type SingleResidueVariantQuery struct {
	common
	chainID       string
	residueNumber int
	insertionCode string
	wildType      *structure.AminoAcid
	variant       *structure.AminoAcid
	radius        float64
	edgeCutoff    float64
}

func NewVariantResidueQuery(opts VariantOptions) (*SingleResidueVariantQuery, error) {
	return newVariantQuery(opts, graph.Residue)
}

func NewVariantAtomicQuery(opts VariantOptions) (*SingleResidueVariantQuery, error) {
	return newVariantQuery(opts, graph.Atomic)
}

func newVariantQuery(opts VariantOptions, granularity graph.Granularity) (*SingleResidueVariantQuery, error) {
	c, err := newCommon(opts.StructurePath, opts.ModelID, granularity, opts.ProfilePaths, opts.Targets)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.ChainID) == "" {
		return nil, errors.New(errors.CodeValidationError, "variant query requires a chain id")
	}
	if err := requirePositive("radius", opts.Radius); err != nil {
		return nil, err
	}
	if err := requirePositive("edge cutoff", opts.EdgeCutoff); err != nil {
		return nil, err
	}
	wt, ok := structure.LookupAminoAcid(opts.WildType)
	if !ok {
		return nil, errors.Newf(errors.CodeValidationError, "unknown wild-type amino acid %q", opts.WildType)
	}
	mut, ok := structure.LookupAminoAcid(opts.Variant)
	if !ok {
		return nil, errors.Newf(errors.CodeValidationError, "unknown variant amino acid %q", opts.Variant)
	}
	return &SingleResidueVariantQuery{
		common:        c,
		chainID:       opts.ChainID,
		residueNumber: opts.ResidueNumber,
		insertionCode: opts.InsertionCode,
		wildType:      wt,
		variant:       mut,
		radius:        opts.Radius,
		edgeCutoff:    opts.EdgeCutoff,
	}, nil
}

func (q *SingleResidueVariantQuery) Kind() Kind {
	if q.granularity == graph.Atomic {
		return KindVariantAtomic
	}
	return KindVariantResidue
}

func (q *SingleResidueVariantQuery) residueLabel() string {
	return fmt.Sprintf("%d%s", q.residueNumber, q.insertionCode)
}

// ID is e.g. "residue-graph-101M:A:25:glycine->alanine".
func (q *SingleResidueVariantQuery) ID() string {
	return fmt.Sprintf("%s-graph-%s:%s:%s:%s->%s", q.granularityPrefix(), q.modelID, q.chainID,
		q.residueLabel(), q.wildType.Name, q.variant.Name)
}

func (q *SingleResidueVariantQuery) Fingerprint() string {
	return fingerprint(fmt.Sprintf("%s;kind=%s;chain=%s;residue=%s;wt=%s;var=%s;radius=%g;edge=%g",
		q.canonical(), q.Kind(), q.chainID, q.residueLabel(), q.wildType.ThreeLetter, q.variant.ThreeLetter, q.radius, q.edgeCutoff))
}

func (q *SingleResidueVariantQuery) BuildGraph(ctx context.Context, env Env, modules []features.Module) (*graph.Graph, error) {
	return build(ctx, q, env, modules, func(s *structure.Structure) (*graph.Graph, error) {
		chain, ok := s.Chain(q.chainID)
		if !ok {
			return nil, errors.AddContext(errors.Newf(errors.CodeStructure, "chain %s not in structure %s", q.chainID, s.ID), errors.CtxChain, q.chainID)
		}
		residue, ok := chain.Residue(q.residueNumber, q.insertionCode)
		if !ok {
			return nil, errors.AddContext(errors.Newf(errors.CodeStructure, "residue %s not in chain %s", q.residueLabel(), q.chainID), errors.CtxResidue, q.residueLabel())
		}
		if residue.AminoAcid != q.wildType {
			logger.Warn("wild type differs from structure",
				logger.QueryID(q.ID()),
				zap.String("structure_residue", residue.AminoAcid.ThreeLetter),
				zap.String("wild_type", q.wildType.ThreeLetter))
		}

		residues := neighbor.SurroundingResidues(s, residue, q.radius)
		neighbor.SortResidues(residues)
		g, err := buildGranular(q.ID(), q.granularity, residues, q.edgeCutoff)
		if err != nil {
			return nil, err
		}
		v, err := structure.NewVariant(residue, q.wildType, q.variant)
		if err != nil {
			return nil, err
		}
		g.Variant = v
		g.Metadata[MetaVariant] = v.String()
		return g, nil
	})
}
