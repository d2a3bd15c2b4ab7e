package build

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/primitive"
)

const minIsoCells = 8

// location returns where to evaluate fields for xi in entity e.
func (b *builder) location(e domain.Entity, xi [3]float64) field.Location {
	var loc field.Location
	switch {
	case e.IsPoint():
		loc = field.AtPoint()
	case e.Dimension == 0 && b.s.Domain() == domain.KindDatapoints:
		loc = field.AtDatapoint(e.ID)
	case e.Dimension == 0:
		loc = field.AtNode(e.ID)
	default:
		loc = field.AtElement(e, xi)
	}
	return loc.WithTime(b.time)
}

// values evaluates an optional field; it returns nil when f is unset.
func values(f field.Field, loc field.Location) ([]float64, error) {
	if f == nil {
		return nil, nil
	}
	v, err := f.Evaluate(loc)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// vertex samples the coordinate, data and texture fields at xi in e.
func (b *builder) vertex(e domain.Entity, xi [3]float64, withData bool) (geometry.Vertex, error) {
	loc := b.location(e, xi)
	v := geometry.Vertex{Site: primitive.Site{Dimension: e.Dimension, Element: e.ID, Xi: xi}}
	pos, err := values(b.coords, loc)
	if err != nil {
		return v, err
	}
	copy(v.Position[:], pos)
	if withData {
		if v.Data, err = values(b.s.DataField(), loc); err != nil {
			return v, err
		}
	}
	if v.TexCoord, err = values(b.s.TextureField(), loc); err != nil {
		return v, err
	}
	return v, nil
}

// grid samples the lattice of e at the graphic's tessellation.
func (b *builder) grid(e domain.Entity) (*geometry.Grid, error) {
	g := geometry.NewGrid(e, b.s.Tessellation().Divisions)
	for _, xi := range g.Lattice() {
		v, err := b.vertex(e, xi, true)
		if err != nil {
			return nil, err
		}
		g.Vertices = append(g.Vertices, v)
	}
	return g, nil
}

// generate dispatches on graphic kind, entity dimension and shape.
func (b *builder) generate(e domain.Entity) ([]primitive.Batch, error) {
	var batch primitive.Batch
	var err error
	switch b.s.Kind() {
	case graphic.Points:
		batch, err = b.glyphs(e)
	case graphic.Lines:
		batch, err = b.line(e)
	case graphic.Surfaces:
		batch, err = b.surface(e)
	case graphic.Contours:
		batch, err = b.contour(e)
	default:
		err = fmt.Errorf("build: %s are not built per entity", b.s.Kind())
	}
	if err != nil || batch == nil {
		return nil, err
	}
	return []primitive.Batch{batch}, nil
}

func (b *builder) line(e domain.Entity) (primitive.Batch, error) {
	if e.Dimension != 1 {
		return nil, &geometry.GenerationError{Entity: e.ID, Reason: fmt.Sprintf("lines need 1-D elements, got %d-D", e.Dimension)}
	}
	la, _ := b.s.Lines()
	g, err := b.grid(e)
	if err != nil {
		return nil, err
	}
	if !la.Shape.Extruded() {
		return geometry.LineSegments(e.ID, b.time, g.Vertices)
	}
	sections := make([]geometry.Section, len(g.Vertices))
	for i, v := range g.Vertices {
		if sections[i], err = b.section(la, b.location(e, v.Site.Xi)); err != nil {
			return nil, err
		}
	}
	return geometry.Extrusion(e.ID, b.time, la.Shape, g.Vertices, sections, b.s.Tessellation().CircleDivisions)
}

// section evaluates the cross-section of an extruded line at loc. A
// scalar orientation-scale value scales both sizes, two components scale
// them separately and a vector scales both by its length and orients the
// section width along it.
func (b *builder) section(la graphic.LineAttributes, loc field.Location) (geometry.Section, error) {
	sec := geometry.Section{Width: la.BaseSize[0], Thickness: la.BaseSize[1]}
	v, err := values(la.OrientationScale, loc)
	if err != nil {
		return sec, err
	}
	switch len(v) {
	case 0:
	case 1:
		sec.Width += la.ScaleFactors[0] * v[0]
		sec.Thickness += la.ScaleFactors[1] * v[0]
	case 2:
		sec.Width += la.ScaleFactors[0] * v[0]
		sec.Thickness += la.ScaleFactors[1] * v[1]
	default:
		side := [3]float64{v[0], v[1], v[2]}
		m := math.Sqrt(side[0]*side[0] + side[1]*side[1] + side[2]*side[2])
		sec.Width += la.ScaleFactors[0] * m
		sec.Thickness += la.ScaleFactors[1] * m
		sec.Side = side
	}
	return sec, nil
}

func (b *builder) surface(e domain.Entity) (primitive.Batch, error) {
	if e.Dimension != 2 {
		return nil, &geometry.GenerationError{Entity: e.ID, Reason: fmt.Sprintf("surfaces need 2-D elements, got %d-D", e.Dimension)}
	}
	g, err := b.grid(e)
	if err != nil {
		return nil, err
	}
	return geometry.ElementSurface(b.time, g)
}

func (b *builder) contour(e domain.Entity) (primitive.Batch, error) {
	ca, _ := b.s.Contours()
	g, err := b.grid(e)
	if err != nil {
		return nil, err
	}
	scalars := make([]float64, len(g.Vertices))
	for i, v := range g.Vertices {
		s, err := values(ca.Isoscalar, b.location(e, v.Site.Xi))
		if err != nil {
			return nil, err
		}
		scalars[i] = s[0]
	}
	switch e.Dimension {
	case 3:
		d := b.s.Tessellation().Divisions
		cells := max(4*max(d[0], d[1], d[2]), minIsoCells)
		surf, err := geometry.IsoSurface(b.kernel, b.time, g, scalars, ca.Values(), cells)
		if err != nil || surf == nil {
			return nil, err
		}
		geometry.DecimateSurface(surf, ca.Decimation)
		geometry.NormalizeNormals(surf)
		return surf, nil
	case 2:
		lines, err := geometry.IsoLines(b.time, g, scalars, ca.Values())
		if err != nil || lines == nil {
			return nil, err
		}
		return lines, nil
	default:
		return nil, &geometry.GenerationError{Entity: e.ID, Reason: fmt.Sprintf("contours need 2-D or 3-D elements, got %d-D", e.Dimension)}
	}
}

// glyphs places the glyph points of e. The point domain and nodesets
// have a single point per entity; elements are sampled by the sampling
// mode.
func (b *builder) glyphs(e domain.Entity) (primitive.Batch, error) {
	pa, _ := b.s.Points()
	xis := [][3]float64{{}}
	if e.Dimension >= 1 {
		count := 0
		if pa.Sampling == geometry.SampleCellPoisson {
			density, err := values(pa.SamplingDensity, b.location(e, domain.Centre(e.Dimension)))
			if err != nil {
				return nil, err
			}
			measure, err := b.measure(e)
			if err != nil {
				return nil, err
			}
			count = geometry.PoissonCount(density[0], measure)
		}
		xis = geometry.SamplePoints(pa.Sampling, e.Dimension, b.s.Tessellation().Divisions, pa.SampleXi, count, int64(e.ID))
	}

	points := make([]geometry.GlyphPoint, 0, len(xis))
	for _, xi := range xis {
		v, err := b.vertex(e, xi, true)
		if err != nil {
			return nil, err
		}
		loc := b.location(e, xi)
		orientation, err := values(pa.OrientationScale, loc)
		if err != nil {
			return nil, err
		}
		signed, err := values(pa.SignedScale, loc)
		if err != nil {
			return nil, err
		}
		axes, err := geometry.GlyphAxes(orientation, pa.BaseSize, pa.ScaleFactors, signed)
		if err != nil {
			return nil, &geometry.GenerationError{Entity: e.ID, Reason: err.Error()}
		}
		p := geometry.GlyphPoint{Vertex: v, Axes: axes}
		if pa.Label != nil {
			if p.Label, err = label(pa, loc); err != nil {
				return nil, err
			}
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, nil
	}
	return geometry.GlyphSet(e.ID, b.time, points, pa.RepeatMode, pa.Offset, pa.LabelOffset, pa.Label != nil), nil
}

// label formats the label field at loc. The label is blank where the
// label density field is not positive.
func label(pa graphic.PointAttributes, loc field.Location) (string, error) {
	if pa.LabelDensity != nil {
		d, err := pa.LabelDensity.Evaluate(loc)
		if err != nil {
			return "", err
		}
		if len(d) == 0 || d[0] <= 0 {
			return "", nil
		}
	}
	v, err := pa.Label.Evaluate(loc)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return strings.Join(parts, ", "), nil
}

// measure approximates the length, area or volume of e from the
// coordinates of its corners.
func (b *builder) measure(e domain.Entity) (float64, error) {
	at := func(xi [3]float64) ([3]float64, error) {
		var p [3]float64
		v, err := values(b.coords, b.location(e, xi))
		copy(p[:], v)
		return p, err
	}
	origin, err := at([3]float64{})
	if err != nil {
		return 0, err
	}
	var edges [3][3]float64
	for k := 0; k < e.Dimension; k++ {
		var xi [3]float64
		xi[k] = 1
		p, err := at(xi)
		if err != nil {
			return 0, err
		}
		for i := range p {
			edges[k][i] = p[i] - origin[i]
		}
	}
	a, c := edges[0], edges[1]
	switch e.Dimension {
	case 1:
		return math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2]), nil
	case 2:
		n := [3]float64{a[1]*c[2] - a[2]*c[1], a[2]*c[0] - a[0]*c[2], a[0]*c[1] - a[1]*c[0]}
		return math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]), nil
	default:
		d := edges[2]
		det := a[0]*(c[1]*d[2]-c[2]*d[1]) - a[1]*(c[0]*d[2]-c[2]*d[0]) + a[2]*(c[0]*d[1]-c[1]*d[0])
		return math.Abs(det), nil
	}
}
