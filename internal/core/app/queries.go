package app

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"molgraph/internal/core/config"
	"molgraph/internal/core/errors"
	"molgraph/internal/engine/query"
	"molgraph/internal/engine/structure/pdb"

	"github.com/gobwas/glob"
)

// idPlaceholder in a profile path is replaced by the structure id, so one
// pattern job can point every matched structure at its own profiles.
const idPlaceholder = "{id}"

// BuildQueries turns the jobs of cfg into queries, in file order. Interface
// jobs with a pattern expand into one query per matching file, sorted by path.
func BuildQueries(cfg *config.Config) ([]query.Query, error) {
	var out []query.Query
	for i, job := range cfg.Variants {
		q, err := variantQuery(cfg, job)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxOperation, fmt.Sprintf("variants[%d]", i))
		}
		out = append(out, q)
	}
	for i, job := range cfg.Interfaces {
		ref := fmt.Sprintf("interfaces[%d]", i)
		paths := []string{cfg.Resolve(job.Structure)}
		if job.Pattern != "" {
			var err error
			if paths, err = Discover(cfg.Dir(), job.Pattern); err != nil {
				return nil, errors.AddContext(err, errors.CtxOperation, ref)
			}
		}
		for _, path := range paths {
			q, err := interfaceQuery(cfg, job, path)
			if err != nil {
				return nil, errors.AddContext(err, errors.CtxOperation, ref)
			}
			out = append(out, q)
		}
	}
	return out, nil
}

func variantQuery(cfg *config.Config, job config.VariantJob) (query.Query, error) {
	path := cfg.Resolve(job.Structure)
	opts := query.VariantOptions{
		StructurePath: path,
		ModelID:       job.Model,
		ChainID:       job.Chain,
		ResidueNumber: job.Residue,
		InsertionCode: job.InsertionCode,
		WildType:      job.WildType,
		Variant:       job.Variant,
		Radius:        job.Radius,
		EdgeCutoff:    job.EdgeCutoff,
		ProfilePaths:  profilePaths(cfg, job.Profiles, path),
		Targets:       job.Targets,
	}
	if job.Granularity == config.GranularityAtomic {
		return query.NewVariantAtomicQuery(opts)
	}
	return query.NewVariantResidueQuery(opts)
}

func interfaceQuery(cfg *config.Config, job config.InterfaceJob, path string) (query.Query, error) {
	opts := query.InterfaceOptions{
		StructurePath:     path,
		ModelID:           job.Model,
		ChainID1:          job.Chain1,
		ChainID2:          job.Chain2,
		InterfaceCutoff:   job.InterfaceCutoff,
		EdgeCutoff:        job.EdgeCutoff,
		SurroundingRadius: job.SurroundingRadius,
		ProfilePaths:      profilePaths(cfg, job.Profiles, path),
		Targets:           job.Targets,
	}
	if job.Granularity == config.GranularityAtomic {
		return query.NewInterfaceAtomicQuery(opts)
	}
	return query.NewInterfaceResidueQuery(opts)
}

func profilePaths(cfg *config.Config, raw map[string]string, structurePath string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	id := pdb.StructureID(structurePath)
	out := make(map[string]string, len(raw))
	for chain, p := range raw {
		out[chain] = cfg.Resolve(strings.ReplaceAll(p, idPlaceholder, id))
	}
	return out
}

// Discover lists the regular files under base whose slash-separated path
// relative to base matches pattern.
func Discover(base, pattern string) ([]string, error) {
	pattern = filepath.ToSlash(strings.TrimSpace(pattern))
	if strings.HasPrefix(pattern, "/") {
		base, pattern = "/", strings.TrimLeft(pattern, "/")
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeValidationError, "invalid pattern %q", pattern)
	}

	root := filepath.Join(base, filepath.FromSlash(staticPrefix(pattern)))
	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if g.Match(filepath.ToSlash(rel)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "scan for structures"), errors.CtxPath, root)
	}
	if len(matches) == 0 {
		return nil, errors.AddContext(errors.Newf(errors.CodeNotFound, "pattern %q matched no files", pattern), errors.CtxPath, base)
	}
	sort.Strings(matches)
	return matches, nil
}

// staticPrefix is the directory part of pattern before its first wildcard.
func staticPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[{")
	if i < 0 {
		return filepath.ToSlash(filepath.Dir(pattern))
	}
	j := strings.LastIndex(pattern[:i], "/")
	if j < 0 {
		return "."
	}
	return pattern[:j]
}
