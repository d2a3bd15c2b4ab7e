package graphic

import (
	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/geometry"
)

// Validate checks that s can be built. Errors make the configuration
// invalid and are returned as *InvalidConfigurationError; warnings and
// infos are returned as diagnostics only.
func Validate(s *Specification) ([]Diagnostic, error) {
	var diags []Diagnostic
	var problems []string
	fail := func(msg string) {
		problems = append(problems, msg)
		diags = append(diags, Diagnostic{Level: LevelError, Message: msg})
	}
	warn := func(level Level, msg string) {
		diags = append(diags, Diagnostic{Level: level, Message: msg})
	}

	if s.coordinate == nil && s.domain != domain.KindPoint {
		warn(LevelWarning, "no coordinate field; nothing will be drawn")
	}
	if s.data == nil && s.appearance.Spectrum != "" {
		warn(LevelInfo, "spectrum has no effect without a data field")
	}

	switch sh := s.shape.(type) {
	case *PointAttributes:
		if sh.Sampling == geometry.SampleCellPoisson && sh.SamplingDensity == nil {
			fail("cell_poisson sampling needs a sampling density field")
		}
		if !s.domain.IsMesh() && sh.Sampling != geometry.SampleCellCentres {
			warn(LevelWarning, "sampling mode "+sh.Sampling.String()+" is ignored on the "+s.domain.String()+" domain")
		}
		if sh.LabelDensity != nil && sh.Label == nil {
			warn(LevelWarning, "label density field has no effect without a label field")
		}
	case *ContourAttributes:
		if sh.Isoscalar == nil {
			fail("contours need an isoscalar field")
		}
		if len(sh.Values()) == 0 {
			fail("contours need isovalues or an isovalue range")
		}
	case *StreamlineAttributes:
		if (sh.SeedNodeset == nil) != (sh.SeedLocation == nil) {
			fail("seed_nodeset and seed_location_field must be set together")
		}
		if sh.Vector == nil {
			warn(LevelInfo, "no stream vector field; no streamlines are drawn")
		}
		if sh.DataType == geometry.StreamDataField && s.data == nil {
			warn(LevelWarning, "stream data type field needs a data field")
		}
	}

	if len(problems) > 0 {
		name := s.name
		if name == "" {
			name = s.id.String()
		}
		return diags, &InvalidConfigurationError{Graphic: name, Problems: problems}
	}
	return diags, nil
}
