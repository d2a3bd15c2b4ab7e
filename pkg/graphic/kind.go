package graphic

import "fmt"

// Kind is the type of a graphic. It is fixed at creation.
type Kind int

const (
	Points Kind = iota
	Lines
	Surfaces
	Contours
	Streamlines
)

var kindNames = []string{"points", "lines", "surfaces", "contours", "streamlines"}

func (k Kind) String() string {
	if k.valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, &ValidationError{Attribute: "kind", Message: fmt.Sprintf("unknown graphic kind %q", s)}
}

// SelectMode controls how the selection affects a graphic.
type SelectMode int

const (
	SelectOn SelectMode = iota
	SelectOff
	SelectDrawSelected
	SelectDrawUnselected
)

var selectModeNames = []string{"on", "off", "draw_selected", "draw_unselected"}

func (m SelectMode) String() string {
	if m >= 0 && int(m) < len(selectModeNames) {
		return selectModeNames[m]
	}
	return fmt.Sprintf("SelectMode(%d)", int(m))
}

// ParseSelectMode returns the select mode with the given name.
func ParseSelectMode(s string) (SelectMode, error) {
	for i, name := range selectModeNames {
		if name == s {
			return SelectMode(i), nil
		}
	}
	return SelectOn, fmt.Errorf("unknown select mode %q", s)
}

// Highlights reports whether selected entities are drawn highlighted.
func (m SelectMode) Highlights() bool { return m == SelectOn }

// Filters reports whether the selection decides which entities are drawn.
func (m SelectMode) Filters() bool {
	return m == SelectDrawSelected || m == SelectDrawUnselected
}

// CoordinateSystem is the space graphics are drawn in.
type CoordinateSystem int

const (
	CoordinatesLocal CoordinateSystem = iota
	CoordinatesWorld
	CoordinatesWindowNormalised
	CoordinatesWindowPixel
)

var coordinateSystemNames = []string{"local", "world", "window_normalised", "window_pixel"}

func (c CoordinateSystem) String() string {
	if c >= 0 && int(c) < len(coordinateSystemNames) {
		return coordinateSystemNames[c]
	}
	return fmt.Sprintf("CoordinateSystem(%d)", int(c))
}

// ParseCoordinateSystem returns the coordinate system with the given name.
func ParseCoordinateSystem(s string) (CoordinateSystem, error) {
	for i, name := range coordinateSystemNames {
		if name == s {
			return CoordinateSystem(i), nil
		}
	}
	return CoordinatesLocal, fmt.Errorf("unknown coordinate system %q", s)
}

// RenderStyle is how surfaces and extrusions are rasterised.
type RenderStyle int

const (
	RenderShaded RenderStyle = iota
	RenderWireframe
)

func (r RenderStyle) String() string {
	switch r {
	case RenderShaded:
		return "shaded"
	case RenderWireframe:
		return "wireframe"
	default:
		return fmt.Sprintf("RenderStyle(%d)", int(r))
	}
}

// ParseRenderStyle returns the render style with the given name.
func ParseRenderStyle(s string) (RenderStyle, error) {
	switch s {
	case "shaded":
		return RenderShaded, nil
	case "wireframe":
		return RenderWireframe, nil
	}
	return RenderShaded, fmt.Errorf("unknown render style %q", s)
}
