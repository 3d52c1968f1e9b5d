package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"molgraph/internal/core/config"
	"molgraph/internal/core/errors"
	"molgraph/internal/core/pipeline"
	"molgraph/internal/data/graphstore"
	"molgraph/internal/data/manifest"
	"molgraph/internal/engine/profile"
	"molgraph/internal/engine/structure/pdb"
	"molgraph/internal/engine/structure/structuretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDataset writes dimer PDB files plus a profile per chain.
func writeDataset(t *testing.T, dir string, ids ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pdb", "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pssm"), 0o755))
	for _, id := range ids {
		s := structuretest.Dimer(id)
		f, err := os.Create(filepath.Join(dir, "pdb", id+".pdb"))
		require.NoError(t, err)
		require.NoError(t, pdb.Write(f, s))
		require.NoError(t, f.Close())

		structuretest.AttachProfiles(s)
		for _, c := range s.Chains() {
			p, err := profile.FromChain(c)
			require.NoError(t, err)
			pf, err := os.Create(filepath.Join(dir, "pssm", id+"."+c.ID+".pssm"))
			require.NoError(t, err)
			require.NoError(t, profile.Write(pf, p))
			require.NoError(t, pf.Close())
		}
	}
	// not matched by a non-recursive pattern
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdb", "nested", "skip.pdb"), nil, 0o644))
}

func loadConfig(t *testing.T, dir, body string) *config.Config {
	t.Helper()
	path := filepath.Join(dir, "molgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "2bbb", "1aaa")

	got, err := Discover(dir, "pdb/*.pdb")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "pdb", "1aaa.pdb"),
		filepath.Join(dir, "pdb", "2bbb.pdb"),
	}, got)

	got, err = Discover(dir, "pdb/**.pdb")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = Discover(dir, "pdb/*.cif")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestStaticPrefix(t *testing.T) {
	assert.Equal(t, "pdb", staticPrefix("pdb/*.pdb"))
	assert.Equal(t, ".", staticPrefix("*.pdb"))
	assert.Equal(t, "a/b", staticPrefix("a/b/c?.pdb"))
	assert.Equal(t, "a", staticPrefix("a/x.pdb"))
}

func TestBuildQueries(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "1aaa", "2bbb")
	cfg := loadConfig(t, dir, `
[[variants]]
structure = "pdb/1aaa.pdb"
chain = "A"
residue = 4
wild_type = "A"
variant = "F"
granularity = "atomic"

[[interfaces]]
pattern = "pdb/*.pdb"
chain1 = "A"
chain2 = "B"
profiles = { A = "pssm/{id}.A.pssm" }
`)
	qs, err := BuildQueries(cfg)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "atom-graph-1aaa:A:4:alanine->phenylalanine", qs[0].ID())
	assert.Equal(t, "residue-ppi-1aaa:A-B", qs[1].ID())
	assert.Equal(t, "residue-ppi-2bbb:A-B", qs[2].ID())
	assert.Equal(t, filepath.Join(dir, "pdb", "2bbb.pdb"), qs[2].StructurePath())
}

const runConfig = `
[output]
prefix = "out/graphs"

[processing]
workers = 2

[features]
modules = ["components", "conservation", "contact", "exposure"]

[manifest]
path = "out/manifest.db"

[[variants]]
structure = "pdb/1aaa.pdb"
chain = "A"
residue = 4
wild_type = "ALA"
variant = "PHE"
profiles = { A = "pssm/1aaa.A.pssm", B = "pssm/1aaa.B.pssm" }
targets = { bin_class = 1.0 }

[[variants]]
structure = "pdb/1aaa.pdb"
chain = "A"
residue = 404
wild_type = "ALA"
variant = "PHE"

[[interfaces]]
pattern = "pdb/*.pdb"
chain1 = "A"
chain2 = "B"
profiles = { A = "pssm/{id}.A.pssm", B = "pssm/{id}.B.pssm" }
`

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "1aaa", "2bbb", "3ccc")
	cfg := loadConfig(t, dir, runConfig)

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Queries)
	assert.Equal(t, []string{"components", "conservation", "contact", "exposure"}, report.Modules)

	res := report.Result
	combined := pipeline.CombinedPath(filepath.Join(dir, "out", "graphs"))
	require.Equal(t, []string{combined}, res.Paths)
	assert.Len(t, res.Succeeded(), 4)
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "residue-graph-1aaa:A:404:alanine->phenylalanine", res.Failed()[0])

	s, err := graphstore.Open(combined)
	require.NoError(t, err)
	defer s.Close()
	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, res.Succeeded(), keys)

	e, err := s.Get(context.Background(), "residue-graph-1aaa:A:4:alanine->phenylalanine")
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Targets["bin_class"])
	for _, name := range []string{"res_type", "pssm", "hse", "pos"} {
		_, ok := e.NodeColumn(name)
		assert.True(t, ok, "node column %s", name)
	}
	_, ok := e.EdgeColumn("electrostatic")
	assert.True(t, ok)

	m, err := manifest.Open(filepath.Join(dir, "out", "manifest.db"))
	require.NoError(t, err)
	defer m.Close()
	run, err := m.LoadRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{combined}, run.Outputs)
	failed, err := m.Outcomes(report.RunID, manifest.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, string(errors.CodeStructure), failed[0].ErrorCode)

	health := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "up", health.Status)
	assert.Contains(t, health.Components["pipeline"], "done")
	assert.Equal(t, "ok", health.Components["manifest"])
}

func TestRunOverridesCombine(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "1aaa", "2bbb")
	cfg := loadConfig(t, dir, `
[output]
prefix = "graphs"

[features]
modules = ["components"]

[[interfaces]]
pattern = "pdb/*.pdb"
chain1 = "A"
chain2 = "B"
`)
	a, err := New(cfg)
	require.NoError(t, err)

	off := false
	report, err := a.Run(context.Background(), RunOptions{Workers: 2, Combine: &off})
	require.NoError(t, err)
	assert.Equal(t, []string{
		pipeline.ShardPath(filepath.Join(dir, "graphs"), 0),
		pipeline.ShardPath(filepath.Join(dir, "graphs"), 1),
	}, report.Result.Paths)
	assert.Empty(t, report.Manifest)
}

func TestRunWithoutQueries(t *testing.T) {
	a, err := New(loadConfig(t, t.TempDir(), ""))
	require.NoError(t, err)
	_, err = a.Run(context.Background(), RunOptions{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	health := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "idle", health.Components["pipeline"])
}
