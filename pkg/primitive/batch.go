// Package primitive holds the render-ready output of a graphic: batches of
// polylines, surfaces or glyph sets, each tagged with the domain entity
// that produced it, plus the appearance tags the renderer reads.
package primitive

import (
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Kind is the topological kind shared by every batch of a store.
type Kind int

const (
	KindPolyline Kind = iota
	KindSurface
	KindGlyphSet
)

func (k Kind) String() string {
	switch k {
	case KindPolyline:
		return "polyline"
	case KindSurface:
		return "surface"
	case KindGlyphSet:
		return "glyph_set"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Site records where a vertex was sampled so per-vertex data can be
// re-evaluated without regenerating geometry. Dimension is -1 for the
// abstract point and 0 for nodes.
type Site struct {
	Dimension int
	Element   domain.ID
	Xi        [3]float64
}

// Header carries the tags common to all batches. Data holds one value
// vector per vertex, or is nil when no data field is set.
type Header struct {
	EntityID domain.ID
	Time     float64
	Sites    []Site
	Data     [][]float32
}

// Meta returns the batch header.
func (h *Header) Meta() *Header { return h }

// Batch is one primitive produced for a single domain entity.
type Batch interface {
	Meta() *Header
	Kind() Kind
	Positions() []math32.Vector3
}

// Polyline is a connected strip of points, or independent segments
// (pairs of points) when Segments is set.
type Polyline struct {
	Header
	Points   []math32.Vector3
	Segments bool
}

func (p *Polyline) Kind() Kind                  { return KindPolyline }
func (p *Polyline) Positions() []math32.Vector3 { return p.Points }

// Surface is an indexed triangle mesh.
type Surface struct {
	Header
	Points    []math32.Vector3
	Normals   []math32.Vector3
	Indices   []uint32
	TexCoords []math32.Vector3
}

func (s *Surface) Kind() Kind                  { return KindSurface }
func (s *Surface) Positions() []math32.Vector3 { return s.Points }

// TriangleCount returns the number of triangles.
func (s *Surface) TriangleCount() int { return len(s.Indices) / 3 }

// GlyphSet places one glyph per point. Axes holds the three glyph axes,
// already scaled. Labels and LabelPoints are empty when no label field is
// set.
type GlyphSet struct {
	Header
	Points      []math32.Vector3
	Axes        [][3]math32.Vector3
	Labels      []string
	LabelPoints []math32.Vector3
}

func (g *GlyphSet) Kind() Kind                  { return KindGlyphSet }
func (g *GlyphSet) Positions() []math32.Vector3 { return g.Points }
