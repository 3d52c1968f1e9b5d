package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"molgraph/internal/core/errors"
	"molgraph/internal/data/graphstore"
	"molgraph/internal/data/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"process", "inspect", "runs", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	process, _, err := root.Find([]string{"process"})
	require.NoError(t, err)
	for _, flag := range []string{"config", "workers", "no-combine"} {
		assert.NotNil(t, process.Flags().Lookup(flag), "process --%s", flag)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "molgraph v"+Version+"\n", out.String())
}

func TestInspectTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graphs.db")
	s, err := graphstore.Create(path)
	require.NoError(t, err)
	_, err = s.Put(ctx, &graphstore.Entry{
		Name:      "q1",
		Kind:      "interface-residue",
		NumNodes:  2,
		NodeData:  []graphstore.Column{{Name: "pos", Rows: 2, Width: 3, Data: make([]float64, 6)}},
		EdgeData:  []graphstore.Column{{Name: "distance", Rows: 1, Data: []float64{3.8}}},
		EdgeIndex: [][2]int64{{0, 1}},
		Targets:   map[string]float64{"bin_class": 1},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	entries, err := entryTable(ctx, path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"q1", "interface-residue", "2", "1", "[bin_class=1]"}, entries[1])

	cols, err := columnTable(ctx, path, "q1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Group", "Table", "Shape"},
		{graphstore.GroupNode, "pos", "(2, 3)"},
		{graphstore.GroupEdge, "distance", "(1,)"},
		{"", "edge_index", "(1, 2)"},
		{"directed", "edge_index", "(2, 2)"},
		{"directed", "x", "(2, 3)"},
		{"directed", "edge_attr", "(2, 1)"},
	}, [][]string(cols))

	_, err = columnTable(ctx, path, "missing")
	assert.Error(t, err)
}

func TestRunsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	store, err := manifest.Open(path)
	require.NoError(t, err)
	run, err := store.BeginRun(manifest.Run{Prefix: "graphs", Workers: 2, QueryCount: 2})
	require.NoError(t, err)
	require.NoError(t, store.Record(run.ID,
		manifest.Outcome{QueryID: "a", Kind: "variant-residue", Status: manifest.StatusSucceeded, Output: "graphs.db"},
		manifest.Outcome{QueryID: "b", Kind: "variant-residue", Status: manifest.StatusFailed, ErrorCode: "STRUCTURE_ERROR", Worker: 1},
	))
	require.NoError(t, store.FinishRun(run.ID, []string{"graphs.db"}))
	require.NoError(t, store.Close())

	got, data, err := outcomeTable(path, run.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"graphs.db"}, got.Outputs)
	require.Len(t, data, 3)
	assert.Equal(t, []string{"a", "succeeded", "0", "", "graphs.db"}, data[1])

	_, data, err = outcomeTable(path, run.ID, true)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, []string{"b", "failed", "1", "STRUCTURE_ERROR", ""}, data[1])

	_, _, err = outcomeTable(path, "nope", false)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, _, err = outcomeTable(filepath.Join(t.TempDir(), "absent.db"), run.ID, false)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
