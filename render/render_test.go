package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

type call struct {
	op   string
	rect geometry.Rect
	pts  []geometry.Point
	pen  Pen
	text string
}

// recorder is a Surface that records every call.
type recorder struct {
	size  geometry.Size
	calls []call
}

func (r *recorder) Size() geometry.Size { return r.size }
func (r *recorder) Rect(rect geometry.Rect, _ float64, pen Pen) {
	r.calls = append(r.calls, call{op: "rect", rect: rect, pen: pen})
}
func (r *recorder) Ellipse(rect geometry.Rect, pen Pen) {
	r.calls = append(r.calls, call{op: "ellipse", rect: rect, pen: pen})
}
func (r *recorder) Polyline(pts []geometry.Point, pen Pen) {
	r.calls = append(r.calls, call{op: "polyline", pts: pts, pen: pen})
}
func (r *recorder) Polygon(pts []geometry.Point, pen Pen) {
	r.calls = append(r.calls, call{op: "polygon", pts: pts, pen: pen})
}
func (r *recorder) Text(at geometry.Point, s string, _ Font, _ TextAlign) {
	r.calls = append(r.calls, call{op: "text", pts: []geometry.Point{at}, text: s})
}

func (r *recorder) ops(op string) []call {
	var out []call
	for _, c := range r.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) texts() []string {
	var out []string
	for _, c := range r.ops("text") {
		out = append(out, c.text)
	}
	return out
}

// testView: container a holding b, and a separate leaf c to the right.
func testView() *diagram.CanvasData {
	b := &diagram.Node{GUID: "b", Text: "B", X: 20, Y: 40, Width: 160, Height: 64}
	a := &diagram.Node{GUID: "a", Text: "A", Width: 320, Height: 200, Children: []*diagram.Node{b}}
	c := &diagram.Node{GUID: "c", Text: "C", X: 400, Width: 160, Height: 64}
	return &diagram.CanvasData{
		Nodes:  []*diagram.Node{a, c},
		Edges:  []*diagram.Edge{{ID: "e1", From: "b", To: "c"}},
		Camera: diagram.DefaultCamera(),
	}
}

func TestPaintDrawsParentsBeforeChildren(t *testing.T) {
	rec := &recorder{size: geometry.Size{Width: 1000, Height: 600}}
	stats := Paint(rec, testView(), DefaultOptions())

	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)

	rects := rec.ops("rect")
	require.Len(t, rects, 4)
	assert.Equal(t, "#ffffff", rects[0].pen.Fill, "background first")
	assert.Equal(t, geometry.Rect{Width: 320, Height: 200}, rects[1].rect)
	assert.Equal(t, geometry.Rect{X: 20, Y: 40, Width: 160, Height: 64}, rects[2].rect)
	assert.Equal(t, geometry.Rect{X: 400, Width: 160, Height: 64}, rects[3].rect)
	assert.Equal(t, []string{"A", "B", "C"}, rec.texts())
}

func TestPaintAppliesCamera(t *testing.T) {
	view := testView()
	view.Camera = diagram.Camera{X: 10, Y: 20, Zoom: 2}
	rec := &recorder{size: geometry.Size{Width: 2000, Height: 1000}}
	Paint(rec, view, DefaultOptions())

	rects := rec.ops("rect")
	require.GreaterOrEqual(t, len(rects), 3)
	assert.Equal(t, geometry.Rect{X: 20, Y: 40, Width: 320, Height: 128}, rects[2].rect)
}

func TestPaintCullsOffscreen(t *testing.T) {
	rec := &recorder{size: geometry.Size{Width: 300, Height: 300}}
	stats := Paint(rec, testView(), DefaultOptions())

	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Culled)
	assert.NotContains(t, rec.texts(), "C")

	opts := DefaultOptions()
	opts.Cull = false
	rec = &recorder{size: geometry.Size{Width: 300, Height: 300}}
	stats = Paint(rec, testView(), opts)
	assert.Equal(t, 3, stats.Nodes)
}

func TestPaintCollapsedShowsBadge(t *testing.T) {
	view := testView()
	view.Nodes[0].Collapsed = true
	view.Edges = nil
	rec := &recorder{size: geometry.Size{Width: 1000, Height: 600}}
	opts := DefaultOptions()
	stats := Paint(rec, view, opts)

	assert.Equal(t, 2, stats.Nodes)
	assert.NotContains(t, rec.texts(), "B")
	assert.Contains(t, rec.texts(), "1")

	rects := rec.ops("rect")
	// Shrink mode draws the collapsed frame, not the stored size.
	assert.Equal(t, geometry.Rect{Width: 160, Height: 48}, rects[1].rect)
	var badge bool
	for _, r := range rects {
		badge = badge || r.pen.Fill == opts.BadgeFill
	}
	assert.True(t, badge)
}

func TestPaintSkipsHidden(t *testing.T) {
	view := testView()
	view.Nodes[1].Hidden = true
	rec := &recorder{size: geometry.Size{Width: 1000, Height: 600}}
	stats := Paint(rec, view, DefaultOptions())

	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 0, stats.Edges, "edge to a hidden node has nothing to attach to")
}

func TestPaintStraightEdgeFallback(t *testing.T) {
	rec := &recorder{size: geometry.Size{Width: 1000, Height: 600}}
	Paint(rec, testView(), DefaultOptions())

	lines := rec.ops("polyline")
	require.Len(t, lines, 1)
	pts := lines[0].pts
	require.Len(t, pts, 2)
	assert.InDelta(t, 180, pts[0].X, 1e-6, "leaves b through its right border")
	assert.InDelta(t, 400, pts[1].X, 1e-6, "enters c through its left border")

	heads := rec.ops("polygon")
	require.Len(t, heads, 1)
	assert.Equal(t, pts[1], heads[0].pts[0], "arrow tip sits on the target border")
}

func TestPaintUsesWaypoints(t *testing.T) {
	view := testView()
	view.Edges[0].Waypoints = []geometry.Point{{X: 180, Y: 72}, {X: 300, Y: 72}, {X: 300, Y: 32}, {X: 400, Y: 32}}
	view.Edges[0].Label = "calls"
	rec := &recorder{size: geometry.Size{Width: 1000, Height: 600}}
	Paint(rec, view, DefaultOptions())

	lines := rec.ops("polyline")
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].pts, 4)
	assert.Contains(t, rec.texts(), "calls")
}

func TestPaintNilView(t *testing.T) {
	rec := &recorder{size: geometry.Size{Width: 10, Height: 10}}
	assert.Equal(t, Stats{}, Paint(rec, nil, DefaultOptions()))
	assert.Empty(t, rec.calls)
}

func TestArrowhead(t *testing.T) {
	head := Arrowhead(geometry.Pt(0, 0), geometry.Pt(10, 0), 4)
	require.Len(t, head, 3)
	assert.Equal(t, geometry.Pt(10, 0), head[0])
	assert.InDelta(t, 6, head[1].X, 1e-9)
	assert.InDelta(t, 2, head[1].Y, 1e-9)
	assert.InDelta(t, -2, head[2].Y, 1e-9)

	assert.Nil(t, Arrowhead(geometry.Pt(1, 1), geometry.Pt(1, 1), 4))
}

func TestDrawLabelTruncates(t *testing.T) {
	rec := &recorder{}
	DrawLabel(rec, geometry.Rect{Width: 42, Height: 20}, "abcdefghij", "#000", 1, false)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "abcd…", rec.calls[0].text)

	rec = &recorder{}
	DrawLabel(rec, geometry.Rect{Width: 100, Height: 20}, "x", "#000", 0.1, false)
	assert.Empty(t, rec.calls, "too small to read")
}

func TestShapeRadius(t *testing.T) {
	r := geometry.Rect{Width: 100, Height: 40}
	assert.Equal(t, 20.0, ShapeRadius(diagram.Style{Shape: diagram.ShapePill}, r, 1))
	assert.Equal(t, 0.0, ShapeRadius(diagram.Style{Shape: diagram.ShapeRect, CornerRadius: 9}, r, 1))
	assert.Equal(t, 12.0, ShapeRadius(diagram.Style{Shape: diagram.ShapeRounded, CornerRadius: 6}, r, 2))
}

func TestSVGSurface(t *testing.T) {
	var buf bytes.Buffer
	s := NewSVGSurface(&buf, geometry.Size{Width: 800, Height: 400}, "scene")
	view := testView()
	view.Nodes[1].Style = diagram.Style{Shape: diagram.ShapeEllipse, Fill: "#abcdef"}
	Paint(s, view, DefaultOptions())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "<title>scene</title>")
	assert.Contains(t, out, "<ellipse")
	assert.Contains(t, out, "fill:#abcdef")
	assert.Contains(t, out, "<polyline")
	assert.Contains(t, out, ">A</text>")
	assert.Equal(t, 1, strings.Count(out, "</svg>"))
}

func TestRasterSurface(t *testing.T) {
	s := NewRasterSurface(200, 100)
	view := &diagram.CanvasData{
		Nodes:  []*diagram.Node{{GUID: "n", X: 20, Y: 20, Width: 100, Height: 50, Style: diagram.Style{Fill: "#ff0000", Stroke: "#ff0000"}}},
		Camera: diagram.DefaultCamera(),
	}
	Paint(s, view, DefaultOptions())

	r, g, b, _ := s.Image().At(70, 45).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Less(t, g>>8, uint32(15))
	assert.Less(t, b>>8, uint32(15))

	r, g, b, _ = s.Image().At(5, 5).RGBA()
	assert.Equal(t, []uint32{255, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8})

	var buf bytes.Buffer
	require.NoError(t, s.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestTextSurfaceBox(t *testing.T) {
	s := NewTextSurface(20, 6, ForceUnicode())
	s.Rect(geometry.Rect{Width: 80, Height: 48}, 4, Pen{Stroke: "#000000"})
	s.Text(geometry.Pt(40, 24), "hi", Font{}, AlignCenter)

	assert.Equal(t, strings.Join([]string{
		"╭────────╮",
		"│   hi   │",
		"╰────────╯",
	}, "\n"), s.String())

	ascii := NewTextSurface(20, 6, ForceASCII())
	ascii.Rect(geometry.Rect{Width: 80, Height: 48}, 4, Pen{Stroke: "#000000"})
	assert.True(t, strings.HasPrefix(ascii.String(), "+--------+"))
}

func TestTextSurfaceBend(t *testing.T) {
	s := NewTextSurface(10, 4, ForceUnicode())
	s.Polyline([]geometry.Point{{X: 4, Y: 8}, {X: 60, Y: 8}, {X: 60, Y: 40}}, Pen{Stroke: "#000000"})

	assert.Equal(t, strings.Join([]string{
		"───────╮",
		"       │",
		"       │",
	}, "\n"), s.String())
}

func TestTextSurfaceJunctions(t *testing.T) {
	s := NewTextSurface(10, 5, ForceUnicode())
	s.Polyline([]geometry.Point{{X: 4, Y: 40}, {X: 76, Y: 40}}, Pen{Stroke: "#000000"})
	s.Polyline([]geometry.Point{{X: 36, Y: 8}, {X: 36, Y: 72}}, Pen{Stroke: "#000000"})
	c, _ := s.Cell(4, 2)
	assert.Equal(t, '┼', c.Rune)

	// A run ending on a box border makes a tee.
	box := NewTextSurface(10, 5, ForceUnicode())
	box.Rect(geometry.Rect{X: 40, Width: 40, Height: 80}, 0, Pen{Stroke: "#000000"})
	box.Polyline([]geometry.Point{{X: 4, Y: 40}, {X: 44, Y: 40}}, Pen{Stroke: "#000000"})
	c, _ = box.Cell(5, 2)
	assert.Equal(t, '┤', c.Rune)

	ascii := NewTextSurface(10, 5, ForceASCII())
	ascii.Polyline([]geometry.Point{{X: 4, Y: 40}, {X: 76, Y: 40}}, Pen{Stroke: "#000000"})
	ascii.Polyline([]geometry.Point{{X: 36, Y: 8}, {X: 36, Y: 72}}, Pen{Stroke: "#000000"})
	c, _ = ascii.Cell(4, 2)
	assert.Equal(t, '+', c.Rune)

	// Arrows survive later lines.
	arrow := NewTextSurface(10, 2, ForceUnicode())
	arrow.Polygon(Arrowhead(geometry.Pt(0, 8), geometry.Pt(40, 8), 8), Pen{Fill: "#000000"})
	arrow.Polyline([]geometry.Point{{X: 4, Y: 8}, {X: 76, Y: 8}}, Pen{Stroke: "#000000"})
	c, _ = arrow.Cell(4, 0)
	assert.Equal(t, '▶', c.Rune)
}

func TestTextSurfaceArrowAndWideText(t *testing.T) {
	s := NewTextSurface(10, 2, ForceUnicode())
	s.Polygon(Arrowhead(geometry.Pt(0, 8), geometry.Pt(40, 8), 8), Pen{Fill: "#000000"})
	c, ok := s.Cell(4, 0)
	require.True(t, ok)
	assert.Equal(t, '▶', c.Rune)

	s.Text(geometry.Pt(0, 24), "日本", Font{}, AlignLeft)
	assert.Equal(t, "日本", strings.Split(s.String(), "\n")[1])
	c, _ = s.Cell(1, 1)
	assert.Equal(t, rune(0), c.Rune)
}

func TestPaintToTerminal(t *testing.T) {
	view := &diagram.CanvasData{
		Nodes: []*diagram.Node{{
			GUID: "n", Text: "api", Width: 160, Height: 64,
			Style: diagram.Style{Shape: diagram.ShapeRounded, CornerRadius: 8, Stroke: "#336699"},
		}},
		Camera: diagram.DefaultCamera(),
	}
	s := NewTextSurface(40, 10, ForceUnicode())
	Paint(s, view, DefaultOptions())

	out := s.String()
	assert.Contains(t, out, "api")
	assert.True(t, strings.HasPrefix(out, "╭"))

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(40, 10)
	s.Flush(screen)

	r, _, style, _ := screen.GetContent(0, 0)
	assert.Equal(t, '╭', r)
	fg, _, _ := style.Decompose()
	assert.Equal(t, tcell.GetColor("#336699"), fg)
}

func TestDetectCapabilities(t *testing.T) {
	env := func(kv ...string) func(string) string {
		m := map[string]string{}
		for i := 0; i+1 < len(kv); i += 2 {
			m[kv[i]] = kv[i+1]
		}
		return func(k string) string { return m[k] }
	}

	tests := []struct {
		name    string
		getenv  func(string) string
		unicode UnicodeLevel
		depth   int
	}{
		{"xterm", env("TERM", "xterm-256color", "LANG", "en_US.UTF-8"), UnicodeExtended, 256},
		{"truecolor", env("TERM", "xterm-256color", "COLORTERM", "truecolor", "LANG", "C.UTF-8"), UnicodeExtended, 24},
		{"no color", env("TERM", "xterm-256color", "LANG", "en_US.UTF-8", "NO_COLOR", "1"), UnicodeExtended, 0},
		{"dumb", env("TERM", "dumb", "LANG", "C"), UnicodeNone, 0},
		{"windows terminal", env("WT_SESSION", "x", "LANG", "en_US.utf8"), UnicodeFull, 24},
		{"forced ascii", env("HCANVAS_TERMINAL_MODE", "ascii", "TERM", "xterm-kitty", "LANG", "en_US.UTF-8"), UnicodeNone, 0},
		{"forced unicode", env("HCANVAS_TERMINAL_MODE", "unicode"), UnicodeFull, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := detectCapabilities(tt.getenv)
			assert.Equal(t, tt.unicode, caps.UnicodeLevel)
			assert.Equal(t, tt.depth, caps.ColorDepth)
		})
	}
}
