package cmd

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/config"
	"hcanvas/diagram"
	"hcanvas/engine"
	"hcanvas/events"
	"hcanvas/render"
)

const flatDoc = `{"entities": [
  {"id": "a", "guid": "ga", "name": "Alpha"},
  {"id": "b", "guid": "gb", "name": "Beta"}
], "relationships": [{"type": "LINKS", "from": "a", "to": "b"}]}`

const nestedDoc = `{"entities": [
  {"id": "sys", "guid": "gsys", "name": "System"},
  {"id": "api", "guid": "gapi", "parent": "sys"},
  {"id": "db", "guid": "gdb", "parent": "sys"}
], "relationships": [{"type": "CALLS", "from": "api", "to": "db"}]}`

func newTestViewer(t *testing.T, doc string) (*viewer, tcell.SimulationScreen) {
	t.Helper()
	cfg = config.Default()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(100, 30)

	e, err := newEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	require.NoError(t, populate(e, input{path: "doc.json", collapse: -1}, doc))

	return newViewer(screen, e, render.ForceASCII()), screen
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

// cellOf returns the screen cell at the centre of a top-level node.
func cellOf(t *testing.T, e *engine.Engine, guid string) (int, int) {
	t.Helper()
	view := e.View()
	n := diagram.IndexByGUID(view.Nodes)[guid]
	require.NotNil(t, n)
	r := view.Camera.WorldRectToScreen(n.LocalBounds())
	c := r.Center()
	return int(math.Floor(c.X / render.CellWidth)), int(math.Floor(c.Y / render.CellHeight))
}

func TestViewerKeys(t *testing.T) {
	v, _ := newTestViewer(t, flatDoc)
	e := v.eng
	fitted := e.Camera()

	v.handle(key('-'))
	assert.Less(t, e.Camera().Zoom, fitted.Zoom)

	v.handle(key('f'))
	assert.Equal(t, fitted, e.Camera())

	v.handle(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	assert.Greater(t, e.Camera().X, fitted.X, "right arrow moves the view right")

	v.handle(key('u'))
	assert.Equal(t, fitted, e.Camera())
	v.handle(key('r'))
	assert.Greater(t, e.Camera().X, fitted.X)

	assert.False(t, v.quit)
	v.handle(key('q'))
	assert.True(t, v.quit)
}

func TestViewerCollapse(t *testing.T) {
	v, _ := newTestViewer(t, nestedDoc)
	e := v.eng

	v.handle(key('0'))
	sys := diagram.IndexByGUID(e.View().Nodes)["gsys"]
	require.NotNil(t, sys)
	assert.True(t, sys.Collapsed)

	v.handle(key(' '))
	assert.Equal(t, "select a container first", v.status)

	e.Select("gsys", false)
	v.handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	assert.False(t, diagram.IndexByGUID(e.View().Nodes)["gsys"].Collapsed)
}

func TestViewerCyclesEngines(t *testing.T) {
	v, _ := newTestViewer(t, flatDoc)
	before := v.eng.ActiveEngine()

	v.handle(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	assert.NotEqual(t, before, v.eng.ActiveEngine())
	assert.Equal(t, "layout: "+v.eng.ActiveEngine(), v.status)
}

func TestViewerMouseDrag(t *testing.T) {
	v, _ := newTestViewer(t, flatDoc)
	e := v.eng
	before := *diagram.IndexByGUID(e.View().Nodes)["gb"]

	x, y := cellOf(t, e, "gb")
	v.handle(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
	require.True(t, v.dragging)
	assert.Equal(t, []string{"gb"}, e.Selection())

	v.handle(tcell.NewEventMouse(x+4, y, tcell.Button1, tcell.ModNone))
	v.handle(tcell.NewEventMouse(x+4, y, tcell.ButtonNone, tcell.ModNone))
	assert.False(t, v.dragging)

	after := diagram.IndexByGUID(e.View().Nodes)["gb"]
	assert.Greater(t, after.X, before.X)
	assert.Equal(t, before.Y, after.Y)
}

func TestViewerEscapeCancelsDrag(t *testing.T) {
	v, _ := newTestViewer(t, flatDoc)
	e := v.eng
	before := *diagram.IndexByGUID(e.View().Nodes)["ga"]

	x, y := cellOf(t, e, "ga")
	v.handle(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
	v.handle(tcell.NewEventMouse(x+3, y+1, tcell.Button1, tcell.ModNone))
	v.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))

	assert.False(t, v.quit, "escape ends the drag first")
	assert.False(t, v.dragging)
	after := diagram.IndexByGUID(e.View().Nodes)["ga"]
	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.Y, after.Y)
}

func TestViewerDrawsStatusLine(t *testing.T) {
	v, screen := newTestViewer(t, flatDoc)
	v.status = "hello"
	v.draw()

	cells, w, h := screen.GetContents()
	var line []rune
	for x := range w {
		line = append(line, cells[(h-1)*w+x].Runes...)
	}
	assert.Contains(t, string(line), v.eng.ActiveEngine())
	assert.Contains(t, string(line), "hello")
	assert.Empty(t, v.status, "status is shown once")
}

func TestViewerAppliesRemoteEvents(t *testing.T) {
	v, _ := newTestViewer(t, flatDoc)

	remote := make(chan events.Event, 1)
	ev := events.New(events.KindCamera)
	ev.Origin = "peer"
	ev.Camera = &diagram.Camera{X: 42, Y: 7, Zoom: 0.5}
	remote <- ev
	close(remote)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, v.run(ctx, remote))

	assert.Equal(t, diagram.Camera{X: 42, Y: 7, Zoom: 0.5}, v.eng.Camera())
}

func TestViewerQuitsOnKey(t *testing.T) {
	v, screen := newTestViewer(t, flatDoc)

	done := make(chan error, 1)
	go func() { done <- v.run(context.Background(), nil) }()
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("viewer did not quit")
	}
}
