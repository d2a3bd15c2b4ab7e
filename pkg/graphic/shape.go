package graphic

import (
	"slices"

	"github.com/jinzhu/copier"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/glyph"
)

// cloneOf deep copies the value attributes of src into a new bundle.
// Field references are tagged out of the copy and shared with src.
func cloneOf[T any, P interface {
	*T
	Shape
}](src P) Shape {
	dst := P(new(T))
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		*dst = *src
	}
	from, to := src.slots(), dst.slots()
	for i := range to {
		*to[i] = *from[i]
	}
	return dst
}

func sameID(a, b *domain.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Shape is the kind-specific attribute bundle of a graphic.
type Shape interface {
	Kind() Kind
	// slots returns the field references of the bundle.
	slots() []*field.Field
	clone() Shape
	// structurallyEqual compares the attributes that shape geometry.
	structurallyEqual(o Shape) bool
	// appearanceEqual compares the attributes patched by a recompile.
	appearanceEqual(o Shape) bool
}

// PointAttributes configure glyph sets.
type PointAttributes struct {
	Glyph            string
	RepeatMode       glyph.RepeatMode
	BaseSize         [3]float64
	ScaleFactors     [3]float64
	Offset           [3]float64
	OrientationScale field.Field `copier:"-"`
	SignedScale      field.Field `copier:"-"`
	Label            field.Field `copier:"-"`
	LabelOffset      [3]float64
	LabelText        [3]string
	LabelDensity     field.Field `copier:"-"`
	Sampling         geometry.SamplingMode
	SamplingDensity  field.Field `copier:"-"`
	SampleXi         [3]float64
}

func (p *PointAttributes) Kind() Kind { return Points }

func (p *PointAttributes) slots() []*field.Field {
	return []*field.Field{&p.OrientationScale, &p.SignedScale, &p.Label, &p.LabelDensity, &p.SamplingDensity}
}

func (p *PointAttributes) clone() Shape { return cloneOf(p) }

func (p *PointAttributes) structurallyEqual(o Shape) bool {
	q, ok := o.(*PointAttributes)
	return ok &&
		p.BaseSize == q.BaseSize &&
		p.ScaleFactors == q.ScaleFactors &&
		p.Offset == q.Offset &&
		p.OrientationScale == q.OrientationScale &&
		p.SignedScale == q.SignedScale &&
		p.Label == q.Label &&
		p.LabelOffset == q.LabelOffset &&
		p.LabelDensity == q.LabelDensity &&
		p.Sampling == q.Sampling &&
		p.SamplingDensity == q.SamplingDensity &&
		p.SampleXi == q.SampleXi
}

func (p *PointAttributes) appearanceEqual(o Shape) bool {
	q, ok := o.(*PointAttributes)
	return ok && p.Glyph == q.Glyph && p.RepeatMode == q.RepeatMode && p.LabelText == q.LabelText
}

// LineAttributes configure how 1-D geometry and streamlines are drawn.
// Section sizes are BaseSize + ScaleFactors * orientation-scale value.
type LineAttributes struct {
	Shape            geometry.LineShape
	BaseSize         [2]float64
	ScaleFactors     [2]float64
	OrientationScale field.Field `copier:"-"`
}

func (l *LineAttributes) Kind() Kind { return Lines }

func (l *LineAttributes) slots() []*field.Field {
	return []*field.Field{&l.OrientationScale}
}

func (l *LineAttributes) clone() Shape { return cloneOf(l) }

func (l *LineAttributes) structurallyEqual(o Shape) bool {
	m, ok := o.(*LineAttributes)
	return ok && l.equalLine(m)
}

func (l *LineAttributes) equalLine(m *LineAttributes) bool {
	return l.Shape == m.Shape &&
		l.BaseSize == m.BaseSize &&
		l.ScaleFactors == m.ScaleFactors &&
		l.OrientationScale == m.OrientationScale
}

func (l *LineAttributes) appearanceEqual(o Shape) bool {
	_, ok := o.(*LineAttributes)
	return ok
}

// SurfaceAttributes configure 2-D element surfaces.
type SurfaceAttributes struct {
	PolygonMode RenderStyle
}

func (s *SurfaceAttributes) Kind() Kind            { return Surfaces }
func (s *SurfaceAttributes) slots() []*field.Field { return nil }

func (s *SurfaceAttributes) clone() Shape { return cloneOf(s) }

func (s *SurfaceAttributes) structurallyEqual(o Shape) bool {
	_, ok := o.(*SurfaceAttributes)
	return ok
}

func (s *SurfaceAttributes) appearanceEqual(o Shape) bool {
	t, ok := o.(*SurfaceAttributes)
	return ok && s.PolygonMode == t.PolygonMode
}

// IsoRange is an evenly spaced set of isovalues from First to Last.
type IsoRange struct {
	Count int
	First float64
	Last  float64
}

// ContourAttributes configure iso-surfaces and iso-lines. An explicit
// list takes effect when Range is nil.
type ContourAttributes struct {
	Isoscalar  field.Field `copier:"-"`
	Isovalues  []float64
	Range      *IsoRange
	Decimation float64
}

func (c *ContourAttributes) Kind() Kind { return Contours }

func (c *ContourAttributes) slots() []*field.Field {
	return []*field.Field{&c.Isoscalar}
}

func (c *ContourAttributes) clone() Shape { return cloneOf(c) }

// Values returns the isovalues in effect. A range of one value yields
// First; a range of n > 1 values steps by (Last-First)/(n-1).
func (c *ContourAttributes) Values() []float64 {
	if c.Range == nil {
		return slices.Clone(c.Isovalues)
	}
	n := c.Range.Count
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	step := 0.0
	if n > 1 {
		step = (c.Range.Last - c.Range.First) / float64(n-1)
	}
	for i := range out {
		out[i] = c.Range.First + float64(i)*step
	}
	if n > 1 {
		out[n-1] = c.Range.Last
	}
	return out
}

func (c *ContourAttributes) structurallyEqual(o Shape) bool {
	d, ok := o.(*ContourAttributes)
	if !ok || c.Isoscalar != d.Isoscalar || c.Decimation != d.Decimation {
		return false
	}
	if (c.Range == nil) != (d.Range == nil) {
		return false
	}
	if c.Range != nil {
		return *c.Range == *d.Range
	}
	return slices.Equal(c.Isovalues, d.Isovalues)
}

func (c *ContourAttributes) appearanceEqual(o Shape) bool {
	_, ok := o.(*ContourAttributes)
	return ok
}

// StreamlineAttributes configure traced streamlines. Seeds come from
// SeedElement when set, else from the nodes of SeedNodeset located
// through SeedLocation, else from every element of the domain.
type StreamlineAttributes struct {
	Line         LineAttributes
	Vector       field.Field `copier:"-"`
	Reverse      bool
	Length       float64
	SeedElement  *domain.ID
	SeedNodeset  field.Field `copier:"-"`
	SeedLocation field.Field `copier:"-"`
	DataType     geometry.StreamDataType
	Sampling     geometry.SamplingMode
}

func (s *StreamlineAttributes) Kind() Kind { return Streamlines }

func (s *StreamlineAttributes) slots() []*field.Field {
	return []*field.Field{&s.Line.OrientationScale, &s.Vector, &s.SeedNodeset, &s.SeedLocation}
}

func (s *StreamlineAttributes) clone() Shape { return cloneOf(s) }

func (s *StreamlineAttributes) structurallyEqual(o Shape) bool {
	t, ok := o.(*StreamlineAttributes)
	return ok &&
		s.Line.equalLine(&t.Line) &&
		s.Vector == t.Vector &&
		s.Reverse == t.Reverse &&
		s.Length == t.Length &&
		sameID(s.SeedElement, t.SeedElement) &&
		s.SeedNodeset == t.SeedNodeset &&
		s.SeedLocation == t.SeedLocation &&
		s.DataType == t.DataType &&
		s.Sampling == t.Sampling
}

func (s *StreamlineAttributes) appearanceEqual(o Shape) bool {
	_, ok := o.(*StreamlineAttributes)
	return ok
}

func defaultShape(k Kind) Shape {
	switch k {
	case Points:
		return &PointAttributes{Glyph: "point", BaseSize: [3]float64{1, 1, 1}}
	case Lines:
		return &LineAttributes{}
	case Surfaces:
		return &SurfaceAttributes{}
	case Contours:
		return &ContourAttributes{}
	default:
		return &StreamlineAttributes{Length: 1, Line: LineAttributes{BaseSize: [2]float64{0.1, 0.1}}}
	}
}
