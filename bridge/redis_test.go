package bridge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/diagram"
	"hcanvas/engine"
	"hcanvas/events"
	"hcanvas/geometry"
)

// setupTestBridge creates a miniredis instance and returns a connected bridge.
func setupTestBridge(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	r, err := NewRedis(Options{
		URL:   fmt.Sprintf("redis://%s", mr.Addr()),
		Block: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func receive(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func cameraEvent(x float64) events.Event {
	ev := events.New(events.KindCamera)
	ev.Origin = "peer"
	ev.Camera = &diagram.Camera{X: x, Zoom: 2}
	return ev
}

func TestNewRedis(t *testing.T) {
	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedis(Options{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedis(Options{URL: "redis://localhost:99999", ConnectTimeout: 100 * time.Millisecond})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestPublishWritesPayload(t *testing.T) {
	r, mr := setupTestBridge(t)
	ctx := context.Background()

	id, err := r.Publish(ctx, cameraEvent(5))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := mr.Stream(DefaultEventStream)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, []string{"payload"}, entries[0].Values[:1])

	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values[1]), &got))
	assert.Equal(t, events.KindCamera, got.Kind)
	require.NotNil(t, got.Camera)
	assert.Equal(t, 5.0, got.Camera.X)
}

func TestPublishDelta(t *testing.T) {
	r, mr := setupTestBridge(t)
	d := events.NewGraphDelta("view-1")
	d.NodesDeleted = []string{"g1"}
	_, err := r.PublishDelta(context.Background(), d)
	require.NoError(t, err)

	entries, err := mr.Stream(DeltaStream)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values[1], `"viewNodeId":"view-1"`)
}

func TestSubscribeStartsAtTail(t *testing.T) {
	r, _ := setupTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := r.Publish(ctx, cameraEvent(1))
	require.NoError(t, err)

	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	_, err = r.Publish(ctx, cameraEvent(2))
	require.NoError(t, err)

	ev := receive(t, ch)
	require.NotNil(t, ev.Camera)
	assert.Equal(t, 2.0, ev.Camera.X, "entries older than the subscription are not replayed")
}

func TestSubscribeDeliversDeltas(t *testing.T) {
	r, _ := setupTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	d := events.NewGraphDelta("view-1")
	d.NodesCreated = []events.NodeDTO{{GUID: "n1", Labels: []string{"Host"}}}
	_, err = r.PublishDelta(ctx, d)
	require.NoError(t, err)

	ev := receive(t, ch)
	assert.Equal(t, events.KindDelta, ev.Kind)
	require.NotNil(t, ev.Delta)
	require.Len(t, ev.Delta.NodesCreated, 1)
	assert.Equal(t, "n1", ev.Delta.NodesCreated[0].GUID)
}

func TestSubscribeSkipsMalformedEntries(t *testing.T) {
	r, mr := setupTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	_, err = mr.XAdd(DefaultEventStream, "*", []string{"other", "x"})
	require.NoError(t, err)
	_, err = mr.XAdd(DefaultEventStream, "*", []string{"payload", "{not json"})
	require.NoError(t, err)
	_, err = r.Publish(ctx, cameraEvent(3))
	require.NoError(t, err)

	ev := receive(t, ch)
	require.NotNil(t, ev.Camera)
	assert.Equal(t, 3.0, ev.Camera.X)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	r, _ := setupTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestAttachPublishesLocalChanges(t *testing.T) {
	r, mr := setupTestBridge(t)
	e, err := engine.New(engine.WithOrigin("local"))
	require.NoError(t, err)
	defer e.Destroy()

	// Committed before attaching; the replayed change must not be sent.
	e.SetCamera(diagram.Camera{X: 1, Zoom: 1})

	detach := r.Attach(e)
	e.Pan(geometry.Pt(10, 0))
	e.ClearSelection()
	require.NoError(t, e.ApplyRemote(cameraEvent(7)))

	entries, err := mr.Stream(DefaultEventStream)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the local pan is published")

	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values[1]), &got))
	assert.Equal(t, events.KindCamera, got.Kind)
	assert.Equal(t, "local", got.Origin)

	detach()
	e.Pan(geometry.Pt(10, 0))
	entries, err = mr.Stream(DefaultEventStream)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTwoCanvasesShareCamera(t *testing.T) {
	r, _ := setupTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := engine.New(engine.WithOrigin("a"))
	require.NoError(t, err)
	defer a.Destroy()
	b, err := engine.New(engine.WithOrigin("b"))
	require.NoError(t, err)
	defer b.Destroy()

	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)
	defer r.Attach(a)()

	a.SetCamera(diagram.Camera{X: 40, Y: 8, Zoom: 3})

	ev := receive(t, ch)
	require.NoError(t, b.ApplyRemote(ev))
	assert.Equal(t, a.Camera(), b.Camera())

	// a ignores its own event coming back.
	require.NoError(t, a.ApplyRemote(ev))
	_, total := a.History()
	assert.Equal(t, 1, total)
}

func TestPumpAppliesUntilClosed(t *testing.T) {
	e, err := engine.New(engine.WithOrigin("local"))
	require.NoError(t, err)
	defer e.Destroy()

	ch := make(chan events.Event, 3)
	ch <- cameraEvent(11)
	ch <- events.Event{Kind: events.KindMove, Origin: "peer"} // rejected, logged
	ch <- cameraEvent(12)
	close(ch)

	Pump(context.Background(), e, ch, nil)
	assert.Equal(t, 12.0, e.Camera().X)
}
