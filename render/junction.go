package render

// arms is the set of directions a line character connects to.
type arms uint8

const (
	armUp arms = 1 << iota
	armRight
	armDown
	armLeft

	armsAll = armUp | armRight | armDown | armLeft
)

// armsOf reports which directions r connects to. Characters that are not
// lines have no arms.
func armsOf(r rune) arms {
	switch r {
	case '─', '-':
		return armLeft | armRight
	case '│', '|':
		return armUp | armDown
	case '┌', '╭':
		return armRight | armDown
	case '┐', '╮':
		return armLeft | armDown
	case '└', '╰':
		return armUp | armRight
	case '┘', '╯':
		return armUp | armLeft
	case '├':
		return armsAll &^ armLeft
	case '┤':
		return armsAll &^ armRight
	case '┬':
		return armsAll &^ armUp
	case '┴':
		return armsAll &^ armDown
	case '┼', '+':
		return armsAll
	}
	return 0
}

func (s *TextSurface) isArrow(r rune) bool {
	a := s.arrows
	return r == a.Right || r == a.Left || r == a.Up || r == a.Down
}

// lineRune picks the character for a set of arms. A single arm is drawn as
// the full line along its axis.
func (s *TextSurface) lineRune(a arms) rune {
	box := s.box
	switch a {
	case armLeft, armRight, armLeft | armRight:
		return box.Horizontal
	case armUp, armDown, armUp | armDown:
		return box.Vertical
	case armRight | armDown:
		return box.TopLeft
	case armLeft | armDown:
		return box.TopRight
	case armUp | armRight:
		return box.BottomLeft
	case armUp | armLeft:
		return box.BottomRight
	}
	if s.caps.UnicodeLevel == UnicodeNone {
		return '+'
	}
	switch a {
	case armsAll &^ armLeft:
		return '├'
	case armsAll &^ armRight:
		return '┤'
	case armsAll &^ armUp:
		return '┬'
	case armsAll &^ armDown:
		return '┴'
	}
	return '┼'
}

// join draws a line cell with arms a, merging it with a line character
// already in the cell so crossings become junctions. Arrows are kept.
func (s *TextSurface) join(x, y int, a arms, fg string) {
	c, ok := s.Cell(x, y)
	if !ok || s.isArrow(c.Rune) {
		return
	}
	existing := armsOf(c.Rune)
	if existing != 0 && existing|a == existing {
		return
	}
	s.set(x, y, s.lineRune(existing|a), fg)
}
