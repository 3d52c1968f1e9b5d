package config

import (
	"fmt"
	"net"
	"strings"

	"molgraph/internal/core/config/helpers"
	"molgraph/internal/core/errors"
	"molgraph/internal/core/pipeline"
	"molgraph/internal/engine/features"
	"molgraph/internal/engine/structure"

	"go.uber.org/zap/zapcore"
)

// Validate returns every problem found in cfg. Defaults must already be applied.
func Validate(cfg *Config) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Version != 1 {
		add("unsupported config version %d; supported version is 1", cfg.Version)
	}
	if strings.TrimSpace(cfg.Output.Prefix) == "" {
		add("output.prefix must not be empty")
	}
	if strings.HasSuffix(cfg.Output.Prefix, "/") {
		add("output.prefix %q must name a file prefix, not a directory", cfg.Output.Prefix)
	}

	p := cfg.Processing
	if p.Workers <= 0 {
		add("processing.workers must be > 0, got %d", p.Workers)
	}
	if p.BatchSize <= 0 {
		add("processing.batch_size must be > 0, got %d", p.BatchSize)
	}
	if p.StructureCache <= 0 {
		add("processing.structure_cache must be > 0, got %d", p.StructureCache)
	}
	if p.MaxLoadsPerSecond < 0 {
		add("processing.max_loads_per_second must be >= 0, got %v", p.MaxLoadsPerSecond)
	}

	d := cfg.Defaults
	for name, v := range map[string]float64{
		"defaults.radius":                   d.Radius,
		"defaults.edge_cutoff":              d.EdgeCutoff,
		"defaults.interface_cutoff_residue": d.InterfaceCutoffResidue,
		"defaults.interface_cutoff_atomic":  d.InterfaceCutoffAtomic,
	} {
		if !(v > 0) {
			add("%s must be > 0, got %v", name, v)
		}
	}

	if _, err := features.Lookup(cfg.Features.Modules); err != nil {
		errs = append(errs, err)
	}

	if m := strings.TrimSpace(cfg.Manifest.Path); m != "" {
		collided := false
		for _, out := range []string{cfg.Output.Prefix + ".db", cfg.Output.Prefix} {
			if helpers.IsPathOverlap(cfg.Resolve(m), cfg.Resolve(out)) {
				add("manifest.path %q collides with output %q", m, out)
				collided = true
			}
		}
		if !collided && pipeline.OwnsPath(cfg.Resolve(cfg.Output.Prefix), cfg.Resolve(m)) {
			add("manifest.path %q is reserved for output files of prefix %q", m, cfg.Output.Prefix)
		}
	}

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			add("observability.metrics_addr %q is not host:port: %v", addr, err)
		}
	}
	if _, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Logging.Level))); err != nil {
		add("logging.level %q is not a valid level", cfg.Logging.Level)
	}

	for i, job := range cfg.Variants {
		errs = append(errs, validateVariant(fmt.Sprintf("variants[%d]", i), job)...)
	}
	for i, job := range cfg.Interfaces {
		errs = append(errs, validateInterface(fmt.Sprintf("interfaces[%d]", i), job)...)
	}
	return errs
}

func validateVariant(ref string, job VariantJob) []error {
	var errs []error
	if job.Structure == "" {
		errs = append(errs, fmt.Errorf("%s.structure must not be empty", ref))
	}
	if job.Chain == "" {
		errs = append(errs, fmt.Errorf("%s.chain must not be empty", ref))
	}
	if _, ok := structure.LookupAminoAcid(job.WildType); !ok {
		errs = append(errs, fmt.Errorf("%s.wild_type %q is not an amino acid", ref, job.WildType))
	}
	if _, ok := structure.LookupAminoAcid(job.Variant); !ok {
		errs = append(errs, fmt.Errorf("%s.variant %q is not an amino acid", ref, job.Variant))
	}
	if err := validateGranularity(ref, job.Granularity); err != nil {
		errs = append(errs, err)
	}
	if !(job.Radius > 0) {
		errs = append(errs, fmt.Errorf("%s.radius must be > 0, got %v", ref, job.Radius))
	}
	if !(job.EdgeCutoff > 0) {
		errs = append(errs, fmt.Errorf("%s.edge_cutoff must be > 0, got %v", ref, job.EdgeCutoff))
	}
	return errs
}

func validateInterface(ref string, job InterfaceJob) []error {
	var errs []error
	switch {
	case job.Structure == "" && job.Pattern == "":
		errs = append(errs, fmt.Errorf("%s needs structure or pattern", ref))
	case job.Structure != "" && job.Pattern != "":
		errs = append(errs, fmt.Errorf("%s sets both structure and pattern", ref))
	case job.Pattern != "" && !helpers.HasWildcard(job.Pattern):
		errs = append(errs, fmt.Errorf("%s.pattern %q has no wildcard; use structure", ref, job.Pattern))
	}
	if job.Pattern != "" && job.Model != "" {
		errs = append(errs, fmt.Errorf("%s.model cannot be combined with pattern", ref))
	}
	if job.Chain1 == "" || job.Chain2 == "" {
		errs = append(errs, fmt.Errorf("%s needs chain1 and chain2", ref))
	} else if job.Chain1 == job.Chain2 {
		errs = append(errs, fmt.Errorf("%s.chain1 and chain2 must differ, both %q", ref, job.Chain1))
	}
	if err := validateGranularity(ref, job.Granularity); err != nil {
		errs = append(errs, err)
	}
	if !(job.InterfaceCutoff > 0) {
		errs = append(errs, fmt.Errorf("%s.interface_cutoff must be > 0, got %v", ref, job.InterfaceCutoff))
	}
	if !(job.EdgeCutoff > 0) {
		errs = append(errs, fmt.Errorf("%s.edge_cutoff must be > 0, got %v", ref, job.EdgeCutoff))
	}
	if job.SurroundingRadius < 0 {
		errs = append(errs, fmt.Errorf("%s.surrounding_radius must be >= 0, got %v", ref, job.SurroundingRadius))
	}
	return errs
}

func validateGranularity(ref, g string) error {
	if g != GranularityResidue && g != GranularityAtomic {
		return fmt.Errorf("%s.granularity must be one of: residue, atomic; got %q", ref, g)
	}
	return nil
}

func joinErrors(errs []error) error {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return errors.Newf(errors.CodeValidationError, "invalid config: %s", strings.Join(msgs, "; "))
}
