// Package query describes the graphs to build: single-residue variants and
// protein-protein interfaces, each at atomic or residue granularity.
//
// Queries are validated when constructed, are immutable afterwards, and are
// consumed once by BuildGraph.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/profile"
	"molgraph/internal/engine/structure"
	"molgraph/internal/engine/structure/pdb"

	"github.com/google/uuid"
)

// Kind identifies the query variant and its granularity.
type Kind string

const (
	KindVariantResidue   Kind = "variant-residue"
	KindVariantAtomic    Kind = "variant-atomic"
	KindInterfaceResidue Kind = "interface-residue"
	KindInterfaceAtomic  Kind = "interface-atomic"
)

// Defaults used by configuration when a value is not given.
const (
	DefaultRadius                 = 10.0
	DefaultEdgeCutoff             = 4.5
	DefaultInterfaceCutoffResidue = 8.5
	DefaultInterfaceCutoffAtomic  = 5.5
)

// Metadata keys written on every graph.
const (
	MetaStructure   = "structure_path"
	MetaKind        = "query_kind"
	MetaFingerprint = "fingerprint"
	MetaProfilePath = "profile_path."
	MetaChains      = "chains"
	MetaVariant     = "variant"
)

// Query is the common surface of all query kinds.
type Query interface {
	ID() string
	Kind() Kind
	StructurePath() string
	Targets() map[string]float64
	// Fingerprint is a name-based UUID over every parameter that affects the
	// built graph, so entries built with different settings are told apart.
	Fingerprint() string
	BuildGraph(ctx context.Context, env Env, modules []features.Module) (*graph.Graph, error)
}

// Env supplies the collaborators a query needs to build its graph.
type Env struct {
	Structures structure.Loader
	Profiles   profile.Provider
}

// DefaultEnv reads PDB and PSSM files from disk.
func DefaultEnv() Env {
	return Env{Structures: pdb.NewLoader(pdb.Options{}), Profiles: profile.FileProvider{}}
}

var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("molgraph/query"))

type common struct {
	structurePath string
	modelID       string
	granularity   graph.Granularity
	profilePaths  map[string]string
	targets       map[string]float64
}

func newCommon(path, modelID string, granularity graph.Granularity, profiles map[string]string, targets map[string]float64) (common, error) {
	if strings.TrimSpace(path) == "" {
		return common{}, errors.New(errors.CodeValidationError, "structure path is required")
	}
	if modelID == "" {
		modelID = pdb.StructureID(path)
	}
	c := common{
		structurePath: path,
		modelID:       modelID,
		granularity:   granularity,
		profilePaths:  make(map[string]string, len(profiles)),
		targets:       make(map[string]float64, len(targets)),
	}
	for k, v := range profiles {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return common{}, errors.New(errors.CodeValidationError, "profile paths need a chain id and a path")
		}
		c.profilePaths[k] = v
	}
	for k, v := range targets {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return common{}, errors.Newf(errors.CodeValidationError, "target %s is not finite", k)
		}
		c.targets[k] = v
	}
	return c, nil
}

func (c common) StructurePath() string { return c.structurePath }

// Targets returns a copy of the scalar training targets.
func (c common) Targets() map[string]float64 {
	out := make(map[string]float64, len(c.targets))
	for k, v := range c.targets {
		out[k] = v
	}
	return out
}

// ProfilePaths returns a copy of the per-chain profile paths.
func (c common) ProfilePaths() map[string]string {
	out := make(map[string]string, len(c.profilePaths))
	for k, v := range c.profilePaths {
		out[k] = v
	}
	return out
}

func (c common) granularityPrefix() string {
	if c.granularity == graph.Atomic {
		return "atom"
	}
	return "residue"
}

// canonical renders the shared parameters in a stable order for fingerprints.
func (c common) canonical() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path=%s;model=%s;granularity=%s", c.structurePath, c.modelID, c.granularity)
	keys := make([]string, 0, len(c.profilePaths))
	for k := range c.profilePaths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";profile.%s=%s", k, c.profilePaths[k])
	}
	return b.String()
}

func requirePositive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return errors.AddContext(errors.Newf(errors.CodeValidationError, "%s must be a positive number, got %v", name, v), errors.CtxOperation, "construct query")
	}
	return nil
}

func fingerprint(canonical string) string {
	return uuid.NewSHA1(fingerprintNamespace, []byte(canonical)).String()
}
