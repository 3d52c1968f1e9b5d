package graphstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/graph"
	"molgraph/internal/engine/query"
	"molgraph/internal/engine/structure/structuretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func residueGraph(t *testing.T, name string) *graph.Graph {
	t.Helper()
	s := structuretest.SingleChain("1abc")
	g, err := graph.BuildResidue(name, s.Residues()[:6], 4.5)
	require.NoError(t, err)
	for i, n := range g.Nodes() {
		n.Features.SetScalar("bsa", float64(i)/2)
		n.Features.SetVector("res_type", []float64{float64(i % 2), float64((i + 1) % 2)})
	}
	for _, e := range g.Edges() {
		e.Features.SetScalar("same_chain", 1)
	}
	g.Targets = map[string]float64{"bin_class": 1}
	g.Metadata = map[string]string{query.MetaKind: string(query.KindVariantResidue), query.MetaFingerprint: "fp-" + name}
	return g
}

func entryFor(t *testing.T, name string) *Entry {
	t.Helper()
	e, err := FromGraph(residueGraph(t, name))
	require.NoError(t, err)
	return e
}

func TestFromGraphColumns(t *testing.T) {
	g := residueGraph(t, "q1")
	e, err := FromGraph(g)
	require.NoError(t, err)

	assert.Equal(t, string(query.KindVariantResidue), e.Kind)
	assert.Equal(t, "fp-q1", e.Fingerprint)
	assert.Equal(t, g.NumNodes(), e.NumNodes)
	assert.Equal(t, g.NumEdges(), e.NumEdges())

	names := make([]string, len(e.NodeData))
	for i, c := range e.NodeData {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"bsa", graph.FeaturePosition, "res_type"}, names)

	pos, ok := e.NodeColumn(graph.FeaturePosition)
	require.True(t, ok)
	assert.Equal(t, 3, pos.Width)
	assert.Equal(t, g.Node(2).Position.Slice(), pos.Row(2))

	bsa, ok := e.NodeColumn("bsa")
	require.True(t, ok)
	assert.Equal(t, 0, bsa.Width)
	assert.Equal(t, []float64{1}, bsa.Row(2))

	for i, p := range e.EdgeIndex {
		edge := g.Edges()[i]
		assert.Equal(t, [2]int64{int64(edge.I), int64(edge.J)}, p)
	}
}

func TestFromGraphRejectsInconsistentFeatures(t *testing.T) {
	g := residueGraph(t, "bad")
	g.Node(0).Features.SetScalar("extra", 1)
	_, err := FromGraph(g)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeGraphDefect))
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "graphs.db")
	s, err := Create(path)
	require.NoError(t, err)

	want := []*Entry{entryFor(t, "q-b"), entryFor(t, "q-a"), entryFor(t, "q-c")}
	for _, e := range want {
		replaced, err := s.Put(ctx, e)
		require.NoError(t, err)
		assert.False(t, replaced)
	}
	require.NoError(t, s.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"q-b", "q-a", "q-c"}, keys, "keys keep write order")

	got, err := r.Get(ctx, "q-a")
	require.NoError(t, err)
	assert.Equal(t, want[1].NodeData, got.NodeData)
	assert.Equal(t, want[1].EdgeData, got.EdgeData)
	assert.Equal(t, want[1].EdgeIndex, got.EdgeIndex)
	assert.Equal(t, want[1].Targets, got.Targets)
	assert.Equal(t, want[1].Metadata, got.Metadata)
	assert.Equal(t, got.NumEdges(), len(got.EdgeIndex))

	_, err = r.Get(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := Create(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Put(ctx, entryFor(t, "a"))
	require.NoError(t, err)
	_, err = s.Put(ctx, entryFor(t, "b"))
	require.NoError(t, err)

	again := entryFor(t, "a")
	again.Targets["bin_class"] = 0
	replaced, err := s.Put(ctx, again)
	require.NoError(t, err)
	assert.True(t, replaced)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Targets["bin_class"])
}

func TestCreateReplacesExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graphs.db")
	s, err := Create(path)
	require.NoError(t, err)
	_, err = s.Put(ctx, entryFor(t, "old"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Create(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPutRejectsBadEdgeIndex(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	defer s.Close()

	e := entryFor(t, "bad")
	e.EdgeIndex[0] = [2]int64{0, int64(e.NumNodes)}
	_, err = s.Put(context.Background(), e)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSerialization))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestBatchWriterKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s, err := Create(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	defer s.Close()

	w := NewBatchWriter(s, BatchWriterConfig{BatchSize: 3, FlushInterval: time.Hour})
	var want []string
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("q%02d", i)
		want = append(want, name)
		require.NoError(t, w.Submit(ctx, entryFor(t, name)))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 8, w.Written())

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, keys)

	err = w.Submit(ctx, entryFor(t, "late"))
	assert.True(t, errors.IsCode(err, errors.CodeInvalidState))
}

func TestBatchWriterLatchesError(t *testing.T) {
	ctx := context.Background()
	s, err := Create(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	defer s.Close()

	w := NewBatchWriter(s, BatchWriterConfig{BatchSize: 1})
	bad := entryFor(t, "bad")
	bad.EdgeIndex[0] = [2]int64{1, 1}
	require.NoError(t, w.Submit(ctx, bad))
	err = w.Flush()
	require.Error(t, err)
	assert.Error(t, w.Submit(ctx, entryFor(t, "next")))
	assert.Error(t, w.Close())
}

func TestBatchWriterCloseDuringSubmit(t *testing.T) {
	ctx := context.Background()
	s, err := Create(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	defer s.Close()

	entries := make([]*Entry, 40)
	for i := range entries {
		entries[i] = entryFor(t, fmt.Sprintf("q%02d", i))
	}

	w := NewBatchWriter(s, BatchWriterConfig{BatchSize: 4, FlushInterval: time.Hour})
	var accepted atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := g; i < len(entries); i += 4 {
				err := w.Submit(ctx, entries[i])
				if err != nil {
					assert.True(t, errors.IsCode(err, errors.CodeInvalidState))
					continue
				}
				accepted.Add(1)
			}
		}(g)
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, w.Close())
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int(accepted.Load()), n, "every accepted entry is committed")
	assert.Equal(t, n, w.Written())
}

func writeShard(t *testing.T, path string, names ...string) {
	t.Helper()
	s, err := Create(path)
	require.NoError(t, err)
	for _, n := range names {
		_, err := s.Put(context.Background(), entryFor(t, n))
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := filepath.Join(dir, "p-0.db")
	b := filepath.Join(dir, "p-1.db")
	writeShard(t, a, "x1", "x2")
	writeShard(t, b, "y1", "y2", "y3")

	dst := filepath.Join(dir, "p.db")
	report, err := Merge(ctx, dst, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Entries)
	assert.Empty(t, report.Collisions)

	s, err := Open(dst)
	require.NoError(t, err)
	defer s.Close()
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2", "y1", "y2", "y3"}, keys)

	// sources stay in place
	for _, p := range []string{a, b} {
		src, err := Open(p)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}
}

func TestMergeCollisionLaterWins(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := filepath.Join(dir, "p-0.db")
	b := filepath.Join(dir, "p-1.db")
	writeShard(t, a, "dup", "x")

	s, err := Create(b)
	require.NoError(t, err)
	later := entryFor(t, "dup")
	later.Targets["bin_class"] = 7
	_, err = s.Put(ctx, later)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	dst := filepath.Join(dir, "p.db")
	report, err := Merge(ctx, dst, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"dup"}, report.Collisions)
	assert.Equal(t, 2, report.Entries)

	out, err := Open(dst)
	require.NoError(t, err)
	defer out.Close()
	got, err := out.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Targets["bin_class"])
}
