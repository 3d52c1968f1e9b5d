package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/query"
	"molgraph/internal/shared/util"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultPrefix         = "graphs"
	DefaultBatchSize      = 16
	DefaultFlushInterval  = time.Second
	DefaultStructureCache = 8
	DefaultServiceName    = "molgraph"
	DefaultLogLevel       = "info"
)

// Load reads path, applies defaults and environment overrides, and validates
// the result. A .env file next to path is loaded first when present; variables
// already set in the environment win.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read config"), errors.CtxPath, path)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if util.FileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "load .env"), errors.CtxPath, envFile)
		}
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	cfg.dir = filepath.Dir(path)

	ApplyEnvOverrides(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.AddContext(joinErrors(errs), errors.CtxPath, path)
	}
	return cfg, nil
}

// Parse decodes TOML text and applies defaults. It does not validate.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Newf(errors.CodeValidationError, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	applyDefaults(&cfg)
	normalizeJobs(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Output.Prefix) == "" {
		cfg.Output.Prefix = DefaultPrefix
	}
	if cfg.Output.Combine == nil {
		enabled := true
		cfg.Output.Combine = &enabled
	}

	if cfg.Processing.Workers <= 0 {
		cfg.Processing.Workers = util.DefaultWorkers()
	}
	if cfg.Processing.BatchSize <= 0 {
		cfg.Processing.BatchSize = DefaultBatchSize
	}
	if cfg.Processing.FlushInterval <= 0 {
		cfg.Processing.FlushInterval = DefaultFlushInterval
	}
	if cfg.Processing.StructureCache <= 0 {
		cfg.Processing.StructureCache = DefaultStructureCache
	}
	if cfg.Processing.LoadBurst <= 0 {
		cfg.Processing.LoadBurst = 1
	}

	if cfg.Defaults.Radius == 0 {
		cfg.Defaults.Radius = query.DefaultRadius
	}
	if cfg.Defaults.EdgeCutoff == 0 {
		cfg.Defaults.EdgeCutoff = query.DefaultEdgeCutoff
	}
	if cfg.Defaults.InterfaceCutoffResidue == 0 {
		cfg.Defaults.InterfaceCutoffResidue = query.DefaultInterfaceCutoffResidue
	}
	if cfg.Defaults.InterfaceCutoffAtomic == 0 {
		cfg.Defaults.InterfaceCutoffAtomic = query.DefaultInterfaceCutoffAtomic
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = DefaultServiceName
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
}

// normalizeJobs trims job fields and fills per-job values from [defaults].
func normalizeJobs(cfg *Config) {
	for i := range cfg.Variants {
		job := &cfg.Variants[i]
		job.Structure = strings.TrimSpace(job.Structure)
		job.Chain = strings.TrimSpace(job.Chain)
		job.Granularity = normalizeGranularity(job.Granularity)
		if job.Radius == 0 {
			job.Radius = cfg.Defaults.Radius
		}
		if job.EdgeCutoff == 0 {
			job.EdgeCutoff = cfg.Defaults.EdgeCutoff
		}
	}
	for i := range cfg.Interfaces {
		job := &cfg.Interfaces[i]
		job.Structure = strings.TrimSpace(job.Structure)
		job.Pattern = strings.TrimSpace(job.Pattern)
		job.Chain1 = strings.TrimSpace(job.Chain1)
		job.Chain2 = strings.TrimSpace(job.Chain2)
		job.Granularity = normalizeGranularity(job.Granularity)
		if job.InterfaceCutoff == 0 {
			if job.Granularity == GranularityAtomic {
				job.InterfaceCutoff = cfg.Defaults.InterfaceCutoffAtomic
			} else {
				job.InterfaceCutoff = cfg.Defaults.InterfaceCutoffResidue
			}
		}
		if job.EdgeCutoff == 0 {
			job.EdgeCutoff = cfg.Defaults.EdgeCutoff
		}
	}
}

func normalizeGranularity(raw string) string {
	switch g := strings.ToLower(strings.TrimSpace(raw)); g {
	case "":
		return GranularityResidue
	case "atom":
		return GranularityAtomic
	default:
		return g
	}
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
