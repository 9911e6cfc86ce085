// Package overlay resolves the effective presentation of nodes and edges from
// scoped, partial patches. Resolution is computed on demand and never stored
// on the scene.
package overlay

import (
	"errors"
	"fmt"
	"slices"

	"hcanvas/diagram"
)

// Inherit is the string value that passes a field through to the next less
// specific patch.
const Inherit = "inherit"

// ErrInvalidScope is returned for a patch whose scope and target disagree.
var ErrInvalidScope = errors.New("overlay: invalid scope")

// Scope selects what a patch applies to.
type Scope string

// Scopes, from least to most specific. ScopeEdge is the per-edge scope.
const (
	ScopeGlobal  Scope = "global"
	ScopeSubtree Scope = "subtree"
	ScopeNode    Scope = "node"
	ScopeEdge    Scope = "edge"
)

// StylePatch overrides node style fields. Nil fields, and string fields set
// to Inherit, fall through.
type StylePatch struct {
	Fill         *string  `json:"fill,omitempty" yaml:"fill,omitempty"`
	Stroke       *string  `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeWidth  *float64 `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	TextColor    *string  `json:"textColor,omitempty" yaml:"textColor,omitempty"`
	Icon         *string  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Shape        *string  `json:"shape,omitempty" yaml:"shape,omitempty"`
	CornerRadius *float64 `json:"cornerRadius,omitempty" yaml:"cornerRadius,omitempty"`
}

// EdgeStylePatch overrides edge style fields.
type EdgeStylePatch struct {
	Stroke *string    `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Width  *float64   `json:"width,omitempty" yaml:"width,omitempty"`
	Dash   *[]float64 `json:"dash,omitempty" yaml:"dash,omitempty"`
}

// LayoutPatch overrides a node's geometry.
type LayoutPatch struct {
	X      *float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y      *float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Width  *float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height *float64 `json:"height,omitempty" yaml:"height,omitempty"`
}

// Patch is a partial override. Target is a node GUID for subtree and node
// scopes, an edge ID for the edge scope and empty for the global scope.
type Patch struct {
	Scope       Scope           `json:"scope" yaml:"scope"`
	Target      string          `json:"target,omitempty" yaml:"target,omitempty"`
	Style       *StylePatch     `json:"style,omitempty" yaml:"style,omitempty"`
	EdgeStyle   *EdgeStylePatch `json:"edgeStyle,omitempty" yaml:"edgeStyle,omitempty"`
	Layout      *LayoutPatch    `json:"layout,omitempty" yaml:"layout,omitempty"`
	Visible     *bool           `json:"visible,omitempty" yaml:"visible,omitempty"`
	Collapsed   *bool           `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Author      string          `json:"author,omitempty" yaml:"author,omitempty"`
	StopCascade bool            `json:"stopCascade,omitempty" yaml:"stopCascade,omitempty"`
}

// Validate checks that the scope is known and the target matches it.
func (p Patch) Validate() error {
	switch p.Scope {
	case ScopeGlobal:
		if p.Target != "" {
			return fmt.Errorf("%w: global patch with target %q", ErrInvalidScope, p.Target)
		}
	case ScopeSubtree, ScopeNode, ScopeEdge:
		if p.Target == "" {
			return fmt.Errorf("%w: %s patch without target", ErrInvalidScope, p.Scope)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, p.Scope)
	}
	return nil
}

// Merge returns p with every field present in q laid over it. Scope and
// target are kept from p.
func (p Patch) Merge(q Patch) Patch {
	out := p.clone()
	if q.Style != nil {
		if out.Style == nil {
			out.Style = &StylePatch{}
		}
		s := out.Style
		setPtr(&s.Fill, q.Style.Fill)
		setPtr(&s.Stroke, q.Style.Stroke)
		setPtr(&s.StrokeWidth, q.Style.StrokeWidth)
		setPtr(&s.TextColor, q.Style.TextColor)
		setPtr(&s.Icon, q.Style.Icon)
		setPtr(&s.Shape, q.Style.Shape)
		setPtr(&s.CornerRadius, q.Style.CornerRadius)
	}
	if q.EdgeStyle != nil {
		if out.EdgeStyle == nil {
			out.EdgeStyle = &EdgeStylePatch{}
		}
		setPtr(&out.EdgeStyle.Stroke, q.EdgeStyle.Stroke)
		setPtr(&out.EdgeStyle.Width, q.EdgeStyle.Width)
		if q.EdgeStyle.Dash != nil {
			d := slices.Clone(*q.EdgeStyle.Dash)
			out.EdgeStyle.Dash = &d
		}
	}
	if q.Layout != nil {
		if out.Layout == nil {
			out.Layout = &LayoutPatch{}
		}
		setPtr(&out.Layout.X, q.Layout.X)
		setPtr(&out.Layout.Y, q.Layout.Y)
		setPtr(&out.Layout.Width, q.Layout.Width)
		setPtr(&out.Layout.Height, q.Layout.Height)
	}
	setPtr(&out.Visible, q.Visible)
	setPtr(&out.Collapsed, q.Collapsed)
	if q.Author != "" {
		out.Author = q.Author
	}
	out.StopCascade = out.StopCascade || q.StopCascade
	return out
}

// clone deep-copies p so that no pointer is shared with the original.
func (p Patch) clone() Patch {
	out := p
	out.Style, out.EdgeStyle, out.Layout = nil, nil, nil
	out.Visible, out.Collapsed = nil, nil
	if p.Style != nil {
		s := &StylePatch{}
		setPtr(&s.Fill, p.Style.Fill)
		setPtr(&s.Stroke, p.Style.Stroke)
		setPtr(&s.StrokeWidth, p.Style.StrokeWidth)
		setPtr(&s.TextColor, p.Style.TextColor)
		setPtr(&s.Icon, p.Style.Icon)
		setPtr(&s.Shape, p.Style.Shape)
		setPtr(&s.CornerRadius, p.Style.CornerRadius)
		out.Style = s
	}
	if p.EdgeStyle != nil {
		e := &EdgeStylePatch{}
		setPtr(&e.Stroke, p.EdgeStyle.Stroke)
		setPtr(&e.Width, p.EdgeStyle.Width)
		if p.EdgeStyle.Dash != nil {
			d := slices.Clone(*p.EdgeStyle.Dash)
			e.Dash = &d
		}
		out.EdgeStyle = e
	}
	if p.Layout != nil {
		l := &LayoutPatch{}
		setPtr(&l.X, p.Layout.X)
		setPtr(&l.Y, p.Layout.Y)
		setPtr(&l.Width, p.Layout.Width)
		setPtr(&l.Height, p.Layout.Height)
		out.Layout = l
	}
	setPtr(&out.Visible, p.Visible)
	setPtr(&out.Collapsed, p.Collapsed)
	return out
}

// setPtr replaces *dst with a copy of src when src is set.
func setPtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }

func applyString(dst *string, v *string) {
	if v != nil && *v != Inherit {
		*dst = *v
	}
}

func applyFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func (s *StylePatch) apply(dst *diagram.Style) {
	if s == nil {
		return
	}
	applyString(&dst.Fill, s.Fill)
	applyString(&dst.Stroke, s.Stroke)
	applyFloat(&dst.StrokeWidth, s.StrokeWidth)
	applyString(&dst.TextColor, s.TextColor)
	applyString(&dst.Icon, s.Icon)
	if s.Shape != nil && *s.Shape != Inherit {
		dst.Shape = diagram.Shape(*s.Shape)
	}
	applyFloat(&dst.CornerRadius, s.CornerRadius)
}

func (s *EdgeStylePatch) apply(dst *diagram.EdgeStyle) {
	if s == nil {
		return
	}
	applyString(&dst.Stroke, s.Stroke)
	applyFloat(&dst.Width, s.Width)
	if s.Dash != nil {
		dst.Dash = slices.Clone(*s.Dash)
	}
}

func (l *LayoutPatch) apply(dst *Layout) {
	if l == nil {
		return
	}
	applyFloat(&dst.X, l.X)
	applyFloat(&dst.Y, l.Y)
	applyFloat(&dst.Width, l.Width)
	applyFloat(&dst.Height, l.Height)
}
