package render

import (
	"os"
	"strings"
)

// UnicodeLevel represents the level of Unicode support.
type UnicodeLevel int

const (
	UnicodeNone     UnicodeLevel = iota // ASCII only
	UnicodeBasic                        // Basic box-drawing
	UnicodeExtended                     // Rounded corners and arrows
	UnicodeFull                         // Including emoji
)

// TerminalCapabilities represents the features supported by a terminal.
type TerminalCapabilities struct {
	Name         string
	UnicodeLevel UnicodeLevel
	ColorDepth   int // 0, 8, 256, or 24-bit
}

// SupportsColor reports whether colours should be emitted.
func (c TerminalCapabilities) SupportsColor() bool { return c.ColorDepth > 0 }

// DetectCapabilities inspects the environment of the current process.
func DetectCapabilities() TerminalCapabilities {
	return detectCapabilities(os.Getenv)
}

func detectCapabilities(getenv func(string) string) TerminalCapabilities {
	switch getenv("HCANVAS_TERMINAL_MODE") {
	case "ascii":
		return ForceASCII()
	case "unicode":
		return ForceUnicode()
	}

	term := getenv("TERM")
	caps := TerminalCapabilities{Name: term, UnicodeLevel: UnicodeBasic}
	switch {
	case getenv("WT_SESSION") != "":
		caps = TerminalCapabilities{Name: "windows-terminal", UnicodeLevel: UnicodeFull, ColorDepth: 24}
	case getenv("TERM_PROGRAM") == "iTerm.app":
		caps = TerminalCapabilities{Name: "iterm2", UnicodeLevel: UnicodeFull, ColorDepth: 24}
	case strings.HasPrefix(term, "xterm-kitty"):
		caps = TerminalCapabilities{Name: "kitty", UnicodeLevel: UnicodeFull, ColorDepth: 24}
	case getenv("WEZTERM_EXECUTABLE") != "":
		caps = TerminalCapabilities{Name: "wezterm", UnicodeLevel: UnicodeFull, ColorDepth: 24}
	case getenv("VTE_VERSION") != "", getenv("KONSOLE_VERSION") != "", term == "alacritty":
		caps.UnicodeLevel = UnicodeExtended
		caps.ColorDepth = 24
	case getenv("TMUX") != "":
		caps = TerminalCapabilities{Name: "tmux", UnicodeLevel: UnicodeExtended, ColorDepth: 256}
	case term == "" || strings.Contains(term, "dumb"):
	case strings.Contains(term, "256color"):
		caps.ColorDepth = 256
	case strings.Contains(term, "color"), strings.HasPrefix(term, "xterm"), strings.HasPrefix(term, "screen"):
		caps.ColorDepth = 8
	}
	if strings.HasPrefix(term, "xterm") && caps.UnicodeLevel == UnicodeBasic {
		caps.UnicodeLevel = UnicodeExtended
	}

	if ct := getenv("COLORTERM"); (ct == "truecolor" || ct == "24bit") && caps.ColorDepth > 0 {
		caps.ColorDepth = 24
	}
	// https://no-color.org/
	if getenv("NO_COLOR") != "" {
		caps.ColorDepth = 0
	}
	if !utf8Locale(getenv) || caps.Name == "linux" || caps.Name == "dumb" {
		caps.UnicodeLevel = UnicodeNone
	}
	return caps
}

// utf8Locale checks LC_ALL, LC_CTYPE and LANG for a UTF-8 charset.
func utf8Locale(getenv func(string) string) bool {
	for _, env := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := strings.ToUpper(getenv(env))
		if v == "" {
			continue
		}
		return strings.Contains(v, "UTF-8") || strings.Contains(v, "UTF8")
	}
	return false
}

// ForceASCII returns capabilities configured for ASCII-only output.
func ForceASCII() TerminalCapabilities {
	return TerminalCapabilities{Name: "ascii", UnicodeLevel: UnicodeNone}
}

// ForceUnicode returns capabilities configured for full Unicode support.
func ForceUnicode() TerminalCapabilities {
	return TerminalCapabilities{Name: "unicode", UnicodeLevel: UnicodeFull, ColorDepth: 24}
}

// BoxStyle defines the characters used to draw a node box.
type BoxStyle struct {
	TopLeft     rune
	TopRight    rune
	BottomLeft  rune
	BottomRight rune
	Horizontal  rune
	Vertical    rune
}

// BoxStyles are the available box styles.
var BoxStyles = map[string]BoxStyle{
	"rounded": {TopLeft: '╭', TopRight: '╮', BottomLeft: '╰', BottomRight: '╯', Horizontal: '─', Vertical: '│'},
	"sharp":   {TopLeft: '┌', TopRight: '┐', BottomLeft: '└', BottomRight: '┘', Horizontal: '─', Vertical: '│'},
	"double":  {TopLeft: '╔', TopRight: '╗', BottomLeft: '╚', BottomRight: '╝', Horizontal: '═', Vertical: '║'},
	"thick":   {TopLeft: '┏', TopRight: '┓', BottomLeft: '┗', BottomRight: '┛', Horizontal: '━', Vertical: '┃'},
	"ascii":   {TopLeft: '+', TopRight: '+', BottomLeft: '+', BottomRight: '+', Horizontal: '-', Vertical: '|'},
}

// GetBoxStyle returns the named style, falling back to rounded. Terminals
// without Unicode always get ascii.
func GetBoxStyle(name string, caps TerminalCapabilities) BoxStyle {
	if caps.UnicodeLevel == UnicodeNone {
		return BoxStyles["ascii"]
	}
	if s, ok := BoxStyles[name]; ok {
		return s
	}
	return BoxStyles["rounded"]
}

// ArrowStyle defines the characters used for arrows in each direction.
type ArrowStyle struct {
	Right rune
	Left  rune
	Up    rune
	Down  rune
}

var (
	// StandardArrows uses Unicode triangles.
	StandardArrows = ArrowStyle{Right: '▶', Left: '◀', Up: '▲', Down: '▼'}
	// SimpleArrows uses ASCII characters.
	SimpleArrows = ArrowStyle{Right: '>', Left: '<', Up: '^', Down: 'v'}
)

// GetArrowStyle picks arrows the terminal can show.
func GetArrowStyle(caps TerminalCapabilities) ArrowStyle {
	if caps.UnicodeLevel >= UnicodeExtended {
		return StandardArrows
	}
	return SimpleArrows
}
