package graphic

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/glyph"
)

// FieldResolver finds the fields named by attribute values.
type FieldResolver interface {
	Lookup(name string) (field.Field, error)
}

type setter func(s *Specification, v cty.Value, fields FieldResolver) error

var setters = map[string]setter{
	"name": stringSetter((*Specification).SetName),
	"domain": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, domain.ParseKind, s.SetDomain)
	},
	"coordinate_field":         fieldSetter((*Specification).SetCoordinateField),
	"data_field":               fieldSetter((*Specification).SetDataField),
	"subgroup_field":           fieldSetter((*Specification).SetSubgroupField),
	"texture_coordinate_field": fieldSetter((*Specification).SetTextureCoordinateField),
	"tessellation": func(s *Specification, v cty.Value, _ FieldResolver) error {
		n, err := numbers(v, 1, 3)
		if err != nil {
			return err
		}
		var d [3]int
		for i, f := range fill3(n) {
			d[i] = int(f)
			if float64(d[i]) != f {
				return fmt.Errorf("division %g is not a whole number", f)
			}
		}
		return s.SetTessellation(d)
	},
	"circle_divisions": func(s *Specification, v cty.Value, _ FieldResolver) error {
		var n int
		if err := gocty.FromCtyValue(v, &n); err != nil {
			return err
		}
		return s.SetCircleDivisions(n)
	},
	"exterior": boolSetter((*Specification).SetExterior),
	"face": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, domain.ParseFaceType, s.SetFace)
	},
	"select_mode": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, ParseSelectMode, s.SetSelectMode)
	},
	"visibility": boolSetter((*Specification).SetVisibility),
	"coordinate_system": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, ParseCoordinateSystem, s.SetCoordinateSystem)
	},
	"material":           stringSetter((*Specification).SetMaterial),
	"secondary_material": stringSetter((*Specification).SetSecondaryMaterial),
	"selected_material":  stringSetter((*Specification).SetSelectedMaterial),
	"spectrum":           stringSetter((*Specification).SetSpectrum),
	"font":               stringSetter((*Specification).SetFont),
	"render_style": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, ParseRenderStyle, s.SetRenderStyle)
	},
	"line_width": floatSetter((*Specification).SetLineWidth),

	"glyph": stringSetter((*Specification).SetGlyph),
	"glyph_repeat_mode": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, glyph.ParseRepeatMode, s.SetGlyphRepeatMode)
	},
	"glyph_base_size":         vec3Setter((*Specification).SetGlyphBaseSize),
	"glyph_scale_factors":     vec3Setter((*Specification).SetGlyphScaleFactors),
	"glyph_offset":            vec3Setter((*Specification).SetGlyphOffset),
	"orientation_scale_field": fieldSetter((*Specification).SetOrientationScaleField),
	"signed_scale_field":      fieldSetter((*Specification).SetSignedScaleField),
	"label_field":             fieldSetter((*Specification).SetLabelField),
	"label_offset":            vec3Setter((*Specification).SetLabelOffset),
	"label_text":              setLabelText,
	"label_density_field":     fieldSetter((*Specification).SetLabelDensityField),
	"sampling_mode": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, geometry.ParseSamplingMode, s.SetSamplingMode)
	},
	"sampling_density_field": fieldSetter((*Specification).SetSamplingDensityField),
	"sample_xi":              vec3Setter((*Specification).SetSampleXi),

	"line_shape": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, geometry.ParseLineShape, s.SetLineShape)
	},
	"line_base_size":               vec2Setter((*Specification).SetLineBaseSize),
	"line_scale_factors":           vec2Setter((*Specification).SetLineScaleFactors),
	"line_orientation_scale_field": fieldSetter((*Specification).SetLineOrientationScaleField),

	"polygon_mode": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, ParseRenderStyle, s.SetPolygonMode)
	},

	"isoscalar_field": fieldSetter((*Specification).SetIsoscalarField),
	"isovalues": func(s *Specification, v cty.Value, _ FieldResolver) error {
		values, err := numbers(v, 0, -1)
		if err != nil {
			return err
		}
		return s.SetIsovalues(values)
	},
	"isovalue_range": func(s *Specification, v cty.Value, _ FieldResolver) error {
		r, err := numbers(v, 3, 3)
		if err != nil {
			return err
		}
		if float64(int(r[0])) != r[0] {
			return fmt.Errorf("count %g is not a whole number", r[0])
		}
		return s.SetIsovalueRange(int(r[0]), r[1], r[2])
	},
	"decimation_threshold": floatSetter((*Specification).SetDecimationThreshold),

	"stream_vector_field": fieldSetter((*Specification).SetStreamVectorField),
	"track_direction": func(s *Specification, v cty.Value, _ FieldResolver) error {
		var dir string
		if err := gocty.FromCtyValue(v, &dir); err != nil {
			return err
		}
		switch dir {
		case "forward":
			return s.SetTrackDirection(false)
		case "reverse":
			return s.SetTrackDirection(true)
		}
		return fmt.Errorf("unknown track direction %q", dir)
	},
	"stream_length": floatSetter((*Specification).SetStreamLength),
	"seed_element": func(s *Specification, v cty.Value, _ FieldResolver) error {
		if v.IsNull() {
			return s.ClearSeedElement()
		}
		var id int
		if err := gocty.FromCtyValue(v, &id); err != nil {
			return err
		}
		return s.SetSeedElement(domain.ID(id))
	},
	"seed_nodeset":        fieldSetter((*Specification).SetSeedNodeset),
	"seed_location_field": fieldSetter((*Specification).SetSeedLocationField),
	"stream_data_type": func(s *Specification, v cty.Value, _ FieldResolver) error {
		return parsed(v, geometry.ParseStreamDataType, s.SetStreamDataType)
	},
}

// Attributes returns the names accepted by Set, sorted.
func Attributes() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set assigns the attribute called name from a cty value. Field
// attributes take the field name as a string, or null to clear them.
// Errors are *ValidationError and leave the graphic unchanged.
func (s *Specification) Set(name string, v cty.Value, fields FieldResolver) error {
	set, ok := setters[name]
	if !ok {
		return invalid(name, "unknown attribute")
	}
	if !v.IsKnown() {
		return invalid(name, "value is not known")
	}
	if err := set(s, v, fields); err != nil {
		if _, ok := err.(*ValidationError); ok {
			return err
		}
		return invalid(name, "%v", err)
	}
	return nil
}

func parsed[T any](v cty.Value, parse func(string) (T, error), set func(T) error) error {
	var name string
	if err := gocty.FromCtyValue(v, &name); err != nil {
		return err
	}
	t, err := parse(name)
	if err != nil {
		return err
	}
	return set(t)
}

func stringSetter(set func(*Specification, string) error) setter {
	return func(s *Specification, v cty.Value, _ FieldResolver) error {
		var str string
		if err := gocty.FromCtyValue(v, &str); err != nil {
			return err
		}
		return set(s, str)
	}
}

func boolSetter(set func(*Specification, bool) error) setter {
	return func(s *Specification, v cty.Value, _ FieldResolver) error {
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return err
		}
		return set(s, b)
	}
}

func floatSetter(set func(*Specification, float64) error) setter {
	return func(s *Specification, v cty.Value, _ FieldResolver) error {
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return err
		}
		return set(s, f)
	}
}

func vec3Setter(set func(*Specification, [3]float64) error) setter {
	return func(s *Specification, v cty.Value, _ FieldResolver) error {
		n, err := numbers(v, 1, 3)
		if err != nil {
			return err
		}
		return set(s, fill3(n))
	}
}

func vec2Setter(set func(*Specification, [2]float64) error) setter {
	return func(s *Specification, v cty.Value, _ FieldResolver) error {
		n, err := numbers(v, 1, 2)
		if err != nil {
			return err
		}
		out := [2]float64{n[0], n[0]}
		if len(n) > 1 {
			out[1] = n[1]
		}
		return set(s, out)
	}
}

func fieldSetter(set func(*Specification, field.Field) error) setter {
	return func(s *Specification, v cty.Value, fields FieldResolver) error {
		if v.IsNull() {
			return set(s, nil)
		}
		var name string
		if err := gocty.FromCtyValue(v, &name); err != nil {
			return err
		}
		if name == "" {
			return set(s, nil)
		}
		if fields == nil {
			return fmt.Errorf("no fields to resolve %q", name)
		}
		f, err := fields.Lookup(name)
		if err != nil {
			return err
		}
		return set(s, f)
	}
}

func setLabelText(s *Specification, v cty.Value, _ FieldResolver) error {
	lv, err := convert.Convert(v, cty.List(cty.String))
	if err != nil {
		return err
	}
	var texts []string
	if err := gocty.FromCtyValue(lv, &texts); err != nil {
		return err
	}
	if len(texts) > 3 {
		return fmt.Errorf("%d label texts, want at most 3", len(texts))
	}
	p, err := s.points("label_text")
	if err != nil {
		return err
	}
	for i := p.RepeatMode.LabelSlots(); i < len(texts); i++ {
		if texts[i] != "" {
			return invalid("label_text", "label %d set but repeat mode %s has %d label slots", i+1, p.RepeatMode, p.RepeatMode.LabelSlots())
		}
	}
	for i := range p.LabelText {
		text := ""
		if i < len(texts) {
			text = texts[i]
		}
		if text == "" && i >= p.RepeatMode.LabelSlots() {
			continue
		}
		if err := s.SetLabelText(i, text); err != nil {
			return err
		}
	}
	return nil
}

// numbers converts a number or a list of numbers. max < 0 means no upper
// bound.
func numbers(v cty.Value, min, max int) ([]float64, error) {
	if v.Type().Equals(cty.Number) {
		v = cty.ListVal([]cty.Value{v})
	}
	lv, err := convert.Convert(v, cty.List(cty.Number))
	if err != nil {
		return nil, err
	}
	var out []float64
	if !lv.IsNull() && lv.LengthInt() > 0 {
		if err := gocty.FromCtyValue(lv, &out); err != nil {
			return nil, err
		}
	}
	if len(out) < min || (max >= 0 && len(out) > max) {
		if max < 0 {
			return nil, fmt.Errorf("%d values, want at least %d", len(out), min)
		}
		return nil, fmt.Errorf("%d values, want %d to %d", len(out), min, max)
	}
	return out, nil
}

// fill3 widens up to three values to three, repeating the last.
func fill3(n []float64) [3]float64 {
	var out [3]float64
	for i := range out {
		if i < len(n) {
			out[i] = n[i]
		} else {
			out[i] = n[len(n)-1]
		}
	}
	return out
}
