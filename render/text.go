package render

import (
	"math"
	"slices"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"hcanvas/geometry"
)

// Screen pixels covered by one terminal cell.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Cell is one character position. Rune 0 marks the second half of a wide
// character.
type Cell struct {
	Rune rune
	FG   string
	BG   string
}

// TextSurface rasterizes drawing calls onto a character grid. Its pixel
// space is CellWidth x CellHeight per cell, so the painter's coordinates
// carry over unchanged.
type TextSurface struct {
	cols, rows int
	cells      []Cell
	caps       TerminalCapabilities
	box        BoxStyle
	sharp      BoxStyle
	arrows     ArrowStyle
}

// NewTextSurface returns a blank grid of cols x rows cells.
func NewTextSurface(cols, rows int, caps TerminalCapabilities) *TextSurface {
	cols, rows = max(cols, 0), max(rows, 0)
	s := &TextSurface{
		cols:   cols,
		rows:   rows,
		cells:  make([]Cell, cols*rows),
		caps:   caps,
		box:    GetBoxStyle("rounded", caps),
		sharp:  GetBoxStyle("sharp", caps),
		arrows: GetArrowStyle(caps),
	}
	for i := range s.cells {
		s.cells[i].Rune = ' '
	}
	return s
}

func (s *TextSurface) Size() geometry.Size {
	return geometry.Size{Width: float64(s.cols) * CellWidth, Height: float64(s.rows) * CellHeight}
}

// Cell returns the cell at column x, row y.
func (s *TextSurface) Cell(x, y int) (Cell, bool) {
	if !s.inside(x, y) {
		return Cell{}, false
	}
	return s.cells[y*s.cols+x], true
}

func (s *TextSurface) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.cols && y < s.rows
}

func (s *TextSurface) set(x, y int, r rune, fg string) {
	if !s.inside(x, y) {
		return
	}
	c := &s.cells[y*s.cols+x]
	c.Rune = r
	if fg != "" {
		c.FG = fg
	}
}

func (s *TextSurface) fill(x, y int, bg string) {
	if !s.inside(x, y) {
		return
	}
	c := &s.cells[y*s.cols+x]
	c.Rune, c.FG, c.BG = ' ', "", bg
}

func cellOf(p geometry.Point) (int, int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

// cellRect converts r to an inclusive cell span of at least one cell.
func cellRect(r geometry.Rect) (x0, y0, x1, y1 int) {
	x0, y0 = cellOf(r.Min())
	x1 = int(math.Ceil(r.Right()/CellWidth)) - 1
	y1 = int(math.Ceil(r.Bottom()/CellHeight)) - 1
	return x0, y0, max(x1, x0), max(y1, y0)
}

func (s *TextSurface) Rect(r geometry.Rect, radius float64, pen Pen) {
	if !r.IsFinite() {
		return
	}
	x0, y0, x1, y1 := cellRect(r)
	if pen.Fill != "" {
		for y := max(y0, 0); y <= min(y1, s.rows-1); y++ {
			for x := max(x0, 0); x <= min(x1, s.cols-1); x++ {
				s.fill(x, y, pen.Fill)
			}
		}
	}
	if pen.Stroke == "" || x1 == x0 || y1 == y0 {
		return
	}
	box := s.sharp
	if radius > 0 {
		box = s.box
	}
	for x := x0 + 1; x < x1; x++ {
		s.set(x, y0, box.Horizontal, pen.Stroke)
		s.set(x, y1, box.Horizontal, pen.Stroke)
	}
	for y := y0 + 1; y < y1; y++ {
		s.set(x0, y, box.Vertical, pen.Stroke)
		s.set(x1, y, box.Vertical, pen.Stroke)
	}
	s.set(x0, y0, box.TopLeft, pen.Stroke)
	s.set(x1, y0, box.TopRight, pen.Stroke)
	s.set(x0, y1, box.BottomLeft, pen.Stroke)
	s.set(x1, y1, box.BottomRight, pen.Stroke)
}

func (s *TextSurface) Ellipse(r geometry.Rect, pen Pen) {
	s.Rect(r, math.Min(r.Width, r.Height)/2, pen)
}

// Polyline draws orthogonal runs with box characters. Each cell gets the
// arms of every run through it, so bends become corners and crossings with
// lines already on the grid become junctions.
func (s *TextSurface) Polyline(pts []geometry.Point, pen Pen) {
	if pen.Stroke == "" || len(pts) < 2 {
		return
	}
	cells := make([][2]int, len(pts))
	for i, p := range pts {
		x, y := cellOf(p)
		cells[i] = [2]int{x, y}
	}

	own := make(map[[2]int]arms)
	var order [][2]int
	mark := func(c [2]int, a arms) {
		if _, seen := own[c]; !seen {
			order = append(order, c)
		}
		own[c] |= a
	}
	for i := 1; i < len(cells); i++ {
		a, b := cells[i-1], cells[i]
		dx, dy := b[0]-a[0], b[1]-a[1]
		switch {
		case dx == 0 && dy == 0:
		case dy == 0:
			fwd, back := armRight, armLeft
			if dx < 0 {
				fwd, back = back, fwd
			}
			step := sign(dx)
			for x := a[0]; ; x += step {
				var m arms
				if x != a[0] {
					m |= back
				}
				if x != b[0] {
					m |= fwd
				}
				mark([2]int{x, a[1]}, m)
				if x == b[0] {
					break
				}
			}
		case dx == 0:
			fwd, back := armDown, armUp
			if dy < 0 {
				fwd, back = back, fwd
			}
			step := sign(dy)
			for y := a[1]; ; y += step {
				var m arms
				if y != a[1] {
					m |= back
				}
				if y != b[1] {
					m |= fwd
				}
				mark([2]int{a[0], y}, m)
				if y == b[1] {
					break
				}
			}
		default:
			s.diagonal(a, b, pen.Stroke)
		}
	}
	for _, c := range order {
		s.join(c[0], c[1], own[c], pen.Stroke)
	}
}

func (s *TextSurface) diagonal(a, b [2]int, fg string) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	diag := '/'
	if (dx > 0) == (dy > 0) {
		diag = '\\'
	}
	steps := max(abs(dx), abs(dy))
	for i := 0; i <= steps; i++ {
		x := a[0] + int(math.Round(float64(dx*i)/float64(steps)))
		y := a[1] + int(math.Round(float64(dy*i)/float64(steps)))
		s.set(x, y, diag, fg)
	}
}

// Polygon draws small polygons as an arrow glyph at their first point and
// larger ones as a closed outline.
func (s *TextSurface) Polygon(pts []geometry.Point, pen Pen) {
	if len(pts) < 3 {
		return
	}
	b := polylineBounds(pts)
	color := pen.Stroke
	if color == "" {
		color = pen.Fill
	}
	if b.Width <= 2*CellWidth && b.Height <= 2*CellHeight {
		base := pts[1].Add(pts[2]).Scale(0.5)
		d := pts[0].Sub(base)
		var r rune
		switch {
		case math.Abs(d.X) >= math.Abs(d.Y) && d.X >= 0:
			r = s.arrows.Right
		case math.Abs(d.X) >= math.Abs(d.Y):
			r = s.arrows.Left
		case d.Y > 0:
			r = s.arrows.Down
		default:
			r = s.arrows.Up
		}
		x, y := cellOf(pts[0].Sub(d.Scale(0.01)))
		s.set(x, y, r, color)
		return
	}
	pen.Stroke = color
	s.Polyline(append(slices.Clone(pts), pts[0]), pen)
}

func (s *TextSurface) Text(at geometry.Point, text string, font Font, align TextAlign) {
	x, y := cellOf(at)
	w := runewidth.StringWidth(text)
	switch align {
	case AlignCenter:
		x -= w / 2
	case AlignRight:
		x -= w
	}
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		s.set(x, y, r, font.Color)
		if rw == 2 {
			s.set(x+1, y, 0, font.Color)
		}
		x += rw
	}
}

// String returns the grid as lines with trailing blanks removed.
func (s *TextSurface) String() string {
	lines := make([]string, s.rows)
	var b strings.Builder
	for y := 0; y < s.rows; y++ {
		b.Reset()
		for x := 0; x < s.cols; x++ {
			if r := s.cells[y*s.cols+x].Rune; r != 0 {
				b.WriteRune(r)
			}
		}
		lines[y] = strings.TrimRight(b.String(), " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Flush copies the grid onto a tcell screen and shows it. Colours are only
// set when the capabilities allow them.
func (s *TextSurface) Flush(screen tcell.Screen) {
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.cols; x++ {
			c := s.cells[y*s.cols+x]
			if c.Rune == 0 {
				continue
			}
			screen.SetContent(x, y, c.Rune, nil, s.style(c))
		}
	}
	screen.Show()
}

func (s *TextSurface) style(c Cell) tcell.Style {
	st := tcell.StyleDefault
	if !s.caps.SupportsColor() {
		return st
	}
	if c.FG != "" {
		st = st.Foreground(tcell.GetColor(c.FG))
	}
	if c.BG != "" {
		st = st.Background(tcell.GetColor(c.BG))
	}
	return st
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
