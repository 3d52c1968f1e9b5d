package config

import (
	"time"
)

// Config is one processing job read from a TOML file.
type Config struct {
	Version       int           `toml:"version"`
	Output        Output        `toml:"output"`
	Processing    Processing    `toml:"processing"`
	Defaults      Defaults      `toml:"defaults"`
	Features      Features      `toml:"features"`
	Manifest      Manifest      `toml:"manifest"`
	Observability Observability `toml:"observability"`
	Logging       Logging       `toml:"logging"`
	Variants      []VariantJob  `toml:"variants"`
	Interfaces    []InterfaceJob `toml:"interfaces"`

	// dir is the directory relative paths are resolved against.
	dir string
}

type Output struct {
	// Prefix names the output files: <prefix>.db or <prefix>-<worker>.db.
	Prefix  string `toml:"prefix"`
	Combine *bool  `toml:"combine"`
}

type Processing struct {
	// Workers defaults to the number of physical cores.
	Workers        int           `toml:"workers"`
	BatchSize      int           `toml:"batch_size"`
	FlushInterval  time.Duration `toml:"flush_interval"`
	StructureCache int           `toml:"structure_cache"`
	// MaxLoadsPerSecond throttles structure loads per worker; 0 disables it.
	MaxLoadsPerSecond float64 `toml:"max_loads_per_second"`
	LoadBurst         int     `toml:"load_burst"`
	IncludeHetero     bool    `toml:"include_hetero"`
}

type Defaults struct {
	Radius                 float64 `toml:"radius"`
	EdgeCutoff             float64 `toml:"edge_cutoff"`
	InterfaceCutoffResidue float64 `toml:"interface_cutoff_residue"`
	InterfaceCutoffAtomic  float64 `toml:"interface_cutoff_atomic"`
}

type Features struct {
	// Modules lists feature modules by name; empty selects all of them.
	Modules []string `toml:"modules"`
}

type Manifest struct {
	Path string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
	ServiceName  string `toml:"service_name"`
}

type Logging struct {
	Level string `toml:"level"`
}

// VariantJob describes one single-residue variant query.
type VariantJob struct {
	Structure     string             `toml:"structure"`
	Model         string             `toml:"model"`
	Chain         string             `toml:"chain"`
	Residue       int                `toml:"residue"`
	InsertionCode string             `toml:"insertion_code"`
	WildType      string             `toml:"wild_type"`
	Variant       string             `toml:"variant"`
	Granularity   string             `toml:"granularity"`
	Radius        float64            `toml:"radius"`
	EdgeCutoff    float64            `toml:"edge_cutoff"`
	Profiles      map[string]string  `toml:"profiles"`
	Targets       map[string]float64 `toml:"targets"`
}

// InterfaceJob describes protein-protein interface queries. Pattern, when
// set, is a glob that expands into one query per matching structure file.
type InterfaceJob struct {
	Structure         string             `toml:"structure"`
	Pattern           string             `toml:"pattern"`
	Model             string             `toml:"model"`
	Chain1            string             `toml:"chain1"`
	Chain2            string             `toml:"chain2"`
	Granularity       string             `toml:"granularity"`
	InterfaceCutoff   float64            `toml:"interface_cutoff"`
	EdgeCutoff        float64            `toml:"edge_cutoff"`
	SurroundingRadius float64            `toml:"surrounding_radius"`
	Profiles          map[string]string  `toml:"profiles"`
	Targets           map[string]float64 `toml:"targets"`
}

const (
	GranularityResidue = "residue"
	GranularityAtomic  = "atomic"
)

// CombineOutput reports whether worker shards are merged into one file.
func (c *Config) CombineOutput() bool {
	return c.Output.Combine == nil || *c.Output.Combine
}

// Dir is the directory of the loaded file, or "." for in-memory configs.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// Resolve makes p absolute against Dir unless it already is.
func (c *Config) Resolve(p string) string {
	return ResolveRelative(c.Dir(), p)
}
