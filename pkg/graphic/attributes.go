package graphic

import (
	"slices"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/glyph"
)

func (s *Specification) points(attr string) (*PointAttributes, error) {
	if p, ok := s.shape.(*PointAttributes); ok {
		return p, nil
	}
	return nil, invalid(attr, "not applicable to %s", s.kind)
}

func (s *Specification) contours(attr string) (*ContourAttributes, error) {
	if c, ok := s.shape.(*ContourAttributes); ok {
		return c, nil
	}
	return nil, invalid(attr, "not applicable to %s", s.kind)
}

func (s *Specification) streamlines(attr string) (*StreamlineAttributes, error) {
	if st, ok := s.shape.(*StreamlineAttributes); ok {
		return st, nil
	}
	return nil, invalid(attr, "not applicable to %s", s.kind)
}

// line returns the line attributes of lines and streamlines.
func (s *Specification) line(attr string) (*LineAttributes, error) {
	switch sh := s.shape.(type) {
	case *LineAttributes:
		return sh, nil
	case *StreamlineAttributes:
		return &sh.Line, nil
	}
	return nil, invalid(attr, "not applicable to %s", s.kind)
}

func setValue[T comparable](s *Specification, attr string, slot *T, v T) error {
	if *slot == v {
		return nil
	}
	*slot = v
	s.request(attr)
	return nil
}

// ---------------------------------------------------------------------------
// Points
// ---------------------------------------------------------------------------

// SetGlyph selects the glyph drawn at each point.
func (s *Specification) SetGlyph(name string) error {
	p, err := s.points("glyph")
	if err != nil {
		return err
	}
	if !glyph.Known(name) {
		return invalid("glyph", "unknown glyph %q", name)
	}
	return setValue(s, "glyph", &p.Glyph, name)
}

// SetGlyphRepeatMode sets how glyphs repeat at each point. Label texts
// already set must fit the label slots of the new mode.
func (s *Specification) SetGlyphRepeatMode(m glyph.RepeatMode) error {
	p, err := s.points("glyph_repeat_mode")
	if err != nil {
		return err
	}
	if m < glyph.RepeatNone || m > glyph.RepeatMirror {
		return invalid("glyph_repeat_mode", "unknown repeat mode %d", int(m))
	}
	for i := m.LabelSlots(); i < len(p.LabelText); i++ {
		if p.LabelText[i] != "" {
			return invalid("glyph_repeat_mode", "mode %s has %d label slots but label %d is set", m, m.LabelSlots(), i+1)
		}
	}
	return setValue(s, "glyph_repeat_mode", &p.RepeatMode, m)
}

func (s *Specification) SetGlyphBaseSize(v [3]float64) error {
	p, err := s.points("glyph_base_size")
	if err != nil {
		return err
	}
	return setValue(s, "glyph_base_size", &p.BaseSize, v)
}

func (s *Specification) SetGlyphScaleFactors(v [3]float64) error {
	p, err := s.points("glyph_scale_factors")
	if err != nil {
		return err
	}
	return setValue(s, "glyph_scale_factors", &p.ScaleFactors, v)
}

func (s *Specification) SetGlyphOffset(v [3]float64) error {
	p, err := s.points("glyph_offset")
	if err != nil {
		return err
	}
	return setValue(s, "glyph_offset", &p.Offset, v)
}

// SetOrientationScaleField sets the field orienting and scaling glyphs. It
// may have 1, 2, 3, 4, 6 or 9 components.
func (s *Specification) SetOrientationScaleField(f field.Field) error {
	p, err := s.points("orientation_scale_field")
	if err != nil {
		return err
	}
	return s.setField("orientation_scale_field", &p.OrientationScale, f, orientationScale("orientation_scale_field"))
}

func orientationScale(attr string) func(field.Field) error {
	return func(f field.Field) error {
		switch f.NumberOfComponents() {
		case 1, 2, 3, 4, 6, 9:
			return nil
		}
		return invalid(attr, "field %q has %d components, want 1, 2, 3, 4, 6 or 9", f.Name(), f.NumberOfComponents())
	}
}

// SetSignedScaleField sets the field of up to 3 components multiplying
// glyph sizes.
func (s *Specification) SetSignedScaleField(f field.Field) error {
	p, err := s.points("signed_scale_field")
	if err != nil {
		return err
	}
	return s.setField("signed_scale_field", &p.SignedScale, f, maxComponents("signed_scale_field", 3))
}

func (s *Specification) SetLabelField(f field.Field) error {
	p, err := s.points("label_field")
	if err != nil {
		return err
	}
	return s.setField("label_field", &p.Label, f, nil)
}

func (s *Specification) SetLabelOffset(v [3]float64) error {
	p, err := s.points("label_offset")
	if err != nil {
		return err
	}
	return setValue(s, "label_offset", &p.LabelOffset, v)
}

// SetLabelText sets the static text of label slot i, counted from zero.
func (s *Specification) SetLabelText(i int, text string) error {
	p, err := s.points("label_text")
	if err != nil {
		return err
	}
	if i < 0 || i >= p.RepeatMode.LabelSlots() {
		return invalid("label_text", "slot %d out of range for repeat mode %s", i+1, p.RepeatMode)
	}
	return setValue(s, "label_text", &p.LabelText[i], text)
}

// SetLabelDensityField sets the scalar field deciding which points are
// labelled.
func (s *Specification) SetLabelDensityField(f field.Field) error {
	p, err := s.points("label_density_field")
	if err != nil {
		return err
	}
	return s.setField("label_density_field", &p.LabelDensity, f, scalar("label_density_field"))
}

// SetSamplingMode sets where points are placed within elements.
func (s *Specification) SetSamplingMode(m geometry.SamplingMode) error {
	switch sh := s.shape.(type) {
	case *PointAttributes:
		return setValue(s, "sampling_mode", &sh.Sampling, m)
	case *StreamlineAttributes:
		return setValue(s, "sampling_mode", &sh.Sampling, m)
	}
	return invalid("sampling_mode", "not applicable to %s", s.kind)
}

// SetSamplingDensityField sets the scalar density used by Poisson
// sampling.
func (s *Specification) SetSamplingDensityField(f field.Field) error {
	p, err := s.points("sampling_density_field")
	if err != nil {
		return err
	}
	return s.setField("sampling_density_field", &p.SamplingDensity, f, scalar("sampling_density_field"))
}

// SetSampleXi sets the element location used by set-location sampling.
func (s *Specification) SetSampleXi(xi [3]float64) error {
	p, err := s.points("sample_xi")
	if err != nil {
		return err
	}
	for i, v := range xi {
		if v < 0 || v > 1 {
			return invalid("sample_xi", "xi%d = %g is outside [0, 1]", i+1, v)
		}
	}
	return setValue(s, "sample_xi", &p.SampleXi, xi)
}

// ---------------------------------------------------------------------------
// Lines and streamlines
// ---------------------------------------------------------------------------

func (s *Specification) SetLineShape(shape geometry.LineShape) error {
	l, err := s.line("line_shape")
	if err != nil {
		return err
	}
	if shape < geometry.ShapeLine || shape > geometry.ShapeSquareExtrusion {
		return invalid("line_shape", "unknown line shape %d", int(shape))
	}
	return setValue(s, "line_shape", &l.Shape, shape)
}

func (s *Specification) SetLineBaseSize(v [2]float64) error {
	l, err := s.line("line_base_size")
	if err != nil {
		return err
	}
	if v[0] < 0 || v[1] < 0 {
		return invalid("line_base_size", "sizes must not be negative")
	}
	return setValue(s, "line_base_size", &l.BaseSize, v)
}

func (s *Specification) SetLineScaleFactors(v [2]float64) error {
	l, err := s.line("line_scale_factors")
	if err != nil {
		return err
	}
	return setValue(s, "line_scale_factors", &l.ScaleFactors, v)
}

// SetLineOrientationScaleField sets the field of up to 3 components
// scaling extruded line sections.
func (s *Specification) SetLineOrientationScaleField(f field.Field) error {
	l, err := s.line("line_orientation_scale_field")
	if err != nil {
		return err
	}
	return s.setField("line_orientation_scale_field", &l.OrientationScale, f, maxComponents("line_orientation_scale_field", 3))
}

// ---------------------------------------------------------------------------
// Surfaces
// ---------------------------------------------------------------------------

func (s *Specification) SetPolygonMode(m RenderStyle) error {
	sh, ok := s.shape.(*SurfaceAttributes)
	if !ok {
		return invalid("polygon_mode", "not applicable to %s", s.kind)
	}
	return setValue(s, "polygon_mode", &sh.PolygonMode, m)
}

// ---------------------------------------------------------------------------
// Contours
// ---------------------------------------------------------------------------

// SetIsoscalarField sets the scalar field contoured.
func (s *Specification) SetIsoscalarField(f field.Field) error {
	c, err := s.contours("isoscalar_field")
	if err != nil {
		return err
	}
	return s.setField("isoscalar_field", &c.Isoscalar, f, scalar("isoscalar_field"))
}

// SetIsovalues sets an explicit isovalue list, replacing any range.
func (s *Specification) SetIsovalues(values []float64) error {
	c, err := s.contours("isovalues")
	if err != nil {
		return err
	}
	if c.Range == nil && slices.Equal(c.Isovalues, values) {
		return nil
	}
	c.Isovalues = slices.Clone(values)
	c.Range = nil
	s.request("isovalues")
	return nil
}

// SetIsovalueRange sets count evenly spaced isovalues from first to last,
// replacing any list.
func (s *Specification) SetIsovalueRange(count int, first, last float64) error {
	c, err := s.contours("isovalue_range")
	if err != nil {
		return err
	}
	if count < 1 {
		return invalid("isovalue_range", "count %d must be at least 1", count)
	}
	r := IsoRange{Count: count, First: first, Last: last}
	if c.Range != nil && *c.Range == r {
		return nil
	}
	c.Range = &r
	c.Isovalues = nil
	s.request("isovalue_range")
	return nil
}

// SetDecimationThreshold sets the vertex clustering size applied to
// iso-surfaces; zero disables it.
func (s *Specification) SetDecimationThreshold(t float64) error {
	c, err := s.contours("decimation_threshold")
	if err != nil {
		return err
	}
	if t < 0 {
		return invalid("decimation_threshold", "threshold %g must not be negative", t)
	}
	return setValue(s, "decimation_threshold", &c.Decimation, t)
}

// ---------------------------------------------------------------------------
// Streamlines
// ---------------------------------------------------------------------------

// SetStreamVectorField sets the field followed by streamlines. Its first
// three components give the stream direction; 1 to 3, 4, 6 or 9
// components are accepted.
func (s *Specification) SetStreamVectorField(f field.Field) error {
	st, err := s.streamlines("stream_vector_field")
	if err != nil {
		return err
	}
	return s.setField("stream_vector_field", &st.Vector, f, func(f field.Field) error {
		switch f.NumberOfComponents() {
		case 1, 2, 3, 4, 6, 9:
			return nil
		}
		return invalid("stream_vector_field", "field %q has %d components", f.Name(), f.NumberOfComponents())
	})
}

// SetTrackDirection traces against the vector field when reverse is set.
func (s *Specification) SetTrackDirection(reverse bool) error {
	st, err := s.streamlines("track_direction")
	if err != nil {
		return err
	}
	return setValue(s, "track_direction", &st.Reverse, reverse)
}

func (s *Specification) SetStreamLength(length float64) error {
	st, err := s.streamlines("stream_length")
	if err != nil {
		return err
	}
	if !(length > 0) {
		return invalid("stream_length", "length %g must be positive", length)
	}
	return setValue(s, "stream_length", &st.Length, length)
}

// SetSeedElement seeds streamlines from one element.
func (s *Specification) SetSeedElement(id domain.ID) error {
	st, err := s.streamlines("seed_element")
	if err != nil {
		return err
	}
	if id < 0 {
		return invalid("seed_element", "invalid element %d", id)
	}
	if st.SeedElement != nil && *st.SeedElement == id {
		return nil
	}
	st.SeedElement = &id
	s.request("seed_element")
	return nil
}

// ClearSeedElement stops seeding from a single element.
func (s *Specification) ClearSeedElement() error {
	st, err := s.streamlines("seed_element")
	if err != nil {
		return err
	}
	if st.SeedElement == nil {
		return nil
	}
	st.SeedElement = nil
	s.request("seed_element")
	return nil
}

// SetSeedNodeset seeds streamlines from the nodes of a group field.
func (s *Specification) SetSeedNodeset(f field.Field) error {
	st, err := s.streamlines("seed_nodeset")
	if err != nil {
		return err
	}
	return s.setField("seed_nodeset", &st.SeedNodeset, f, func(f field.Field) error {
		if _, ok := field.AsGroup(f); !ok {
			return invalid("seed_nodeset", "field %q is not a group", f.Name())
		}
		return nil
	})
}

// SetSeedLocationField sets the field locating seed nodes in elements.
func (s *Specification) SetSeedLocationField(f field.Field) error {
	st, err := s.streamlines("seed_location_field")
	if err != nil {
		return err
	}
	return s.setField("seed_location_field", &st.SeedLocation, f, func(f field.Field) error {
		if _, ok := field.AsMeshLocation(f); !ok {
			return invalid("seed_location_field", "field %q does not store element locations", f.Name())
		}
		return nil
	})
}

func (s *Specification) SetStreamDataType(t geometry.StreamDataType) error {
	st, err := s.streamlines("stream_data_type")
	if err != nil {
		return err
	}
	if t < geometry.StreamDataNone || t > geometry.StreamDataTravelTime {
		return invalid("stream_data_type", "unknown data type %d", int(t))
	}
	return setValue(s, "stream_data_type", &st.DataType, t)
}

// ---------------------------------------------------------------------------
// Typed views
// ---------------------------------------------------------------------------

// Points returns a copy of the point attributes of a Points graphic.
func (s *Specification) Points() (PointAttributes, bool) {
	p, ok := s.shape.(*PointAttributes)
	if !ok {
		return PointAttributes{}, false
	}
	return *p, true
}

// Lines returns the line attributes of a Lines or Streamlines graphic.
func (s *Specification) Lines() (LineAttributes, bool) {
	l, err := s.line("")
	if err != nil {
		return LineAttributes{}, false
	}
	return *l, true
}

func (s *Specification) Surfaces() (SurfaceAttributes, bool) {
	sh, ok := s.shape.(*SurfaceAttributes)
	if !ok {
		return SurfaceAttributes{}, false
	}
	return *sh, true
}

func (s *Specification) Contours() (ContourAttributes, bool) {
	c, ok := s.shape.(*ContourAttributes)
	if !ok {
		return ContourAttributes{}, false
	}
	return *c.clone().(*ContourAttributes), true
}

func (s *Specification) Streamlines() (StreamlineAttributes, bool) {
	st, ok := s.shape.(*StreamlineAttributes)
	if !ok {
		return StreamlineAttributes{}, false
	}
	return *st.clone().(*StreamlineAttributes), true
}
