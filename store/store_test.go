package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/diagram"
)

func sample() *diagram.CanvasData {
	child := &diagram.Node{GUID: "c", Text: "child", X: 20, Y: 52, Width: 160, Height: 64}
	root := &diagram.Node{GUID: "r", Text: "root", Width: 200, Height: 136,
		Collapsed: true, Children: []*diagram.Node{child}}
	other := &diagram.Node{GUID: "o", X: 300, Width: 160, Height: 64}
	edges := []*diagram.Edge{{ID: "e1", From: "c", To: "o", Type: "CALLS"}}
	return &diagram.CanvasData{
		Nodes:         []*diagram.Node{root, other},
		Edges:         diagram.CloneEdges(edges),
		OriginalEdges: edges,
		Camera:        diagram.Camera{X: 10, Y: -4, Zoom: 1.5},
	}
}

func openMemory(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.Save(ctx, "main", "tree", sample()))
	got, err := s.Load(ctx, "main")
	require.NoError(t, err)

	assert.Equal(t, 3, got.NodeCount())
	assert.Equal(t, diagram.Camera{X: 10, Y: -4, Zoom: 1.5}, got.Camera)
	require.Len(t, got.Nodes, 2)
	assert.True(t, got.Nodes[0].Collapsed)
	require.Len(t, got.Nodes[0].Children, 1)
	assert.Equal(t, "child", got.Nodes[0].Children[0].Text)
	require.Len(t, got.OriginalEdges, 1)
	assert.Equal(t, "CALLS", got.OriginalEdges[0].Type)
}

func TestLoadMissing(t *testing.T) {
	_, err := openMemory(t).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsEmptyName(t *testing.T) {
	assert.Error(t, openMemory(t).Save(context.Background(), "  ", "", sample()))
}

func TestSaveReplacesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	t0 := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return t0 }
	require.NoError(t, s.Save(ctx, "main", "tree", sample()))

	s.now = func() time.Time { return t0.Add(time.Minute) }
	smaller := sample()
	smaller.Nodes = smaller.Nodes[1:]
	require.NoError(t, s.Save(ctx, "main", "flat", smaller))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "flat", e.Engine)
	assert.Equal(t, 1, e.Nodes)
	assert.Equal(t, 1, e.Edges)
	assert.True(t, e.CreatedAt.Equal(t0))
	assert.True(t, e.UpdatedAt.Equal(t0.Add(time.Minute)))
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	base := time.UnixMilli(1_700_000_000_000)
	for i, name := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		require.NoError(t, s.Save(ctx, name, "", sample()))
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"c", "b", "a"}, names)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.Save(ctx, "main", "", sample()))

	require.NoError(t, s.Delete(ctx, "main"))
	_, err := s.Load(ctx, "main")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "main"), ErrNotFound)
}

func TestFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "canvas.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "main", "tree", sample()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	got, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 3, got.NodeCount())
}
