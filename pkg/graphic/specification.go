// Package graphic holds the graphic specification: the declarative
// description of one visual layer, its rebuild state and the store of
// primitives built from it. Setters validate their input and record the
// rebuild severity their change implies.
package graphic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// Tessellation is the element discretization of a graphic.
type Tessellation struct {
	Divisions       [3]int
	CircleDivisions int
}

// Appearance holds the attributes that never change geometry.
type Appearance struct {
	Material          string
	SecondaryMaterial string
	SelectedMaterial  string
	Spectrum          string
	RenderStyle       RenderStyle
	LineWidth         float64
	Visible           bool
	CoordinateSystem  CoordinateSystem
	Font              string
}

// Specification describes one visual layer.
type Specification struct {
	id   uuid.UUID
	kind Kind
	name string

	domain     domain.Kind
	coordinate field.Field
	data       field.Field
	subgroup   field.Field
	texture    field.Field

	tessellation Tessellation
	exterior     bool
	face         domain.FaceType
	selectMode   SelectMode
	appearance   Appearance
	shape        Shape

	state       invalidate.State
	store       *primitive.Store
	diagnostics []Diagnostic
	building    bool
}

// New returns a specification of kind k with the defaults of that kind.
func New(k Kind) (*Specification, error) {
	if !k.valid() {
		return nil, invalid("kind", "unsupported graphic kind %d", int(k))
	}
	s := &Specification{
		id:   uuid.New(),
		kind: k,
		tessellation: Tessellation{
			Divisions:       [3]int{1, 1, 1},
			CircleDivisions: 12,
		},
		appearance: Appearance{
			Material:  "default",
			LineWidth: 1,
			Visible:   true,
		},
		shape: defaultShape(k),
	}
	switch k {
	case Points:
		s.domain = domain.KindPoint
	case Lines:
		s.domain = domain.KindMesh1D
	case Surfaces:
		s.domain = domain.KindMesh2D
	default:
		s.domain = domain.KindMeshHighest
	}
	s.state.Request(invalidate.FullRebuild)
	return s, nil
}

func (s *Specification) ID() uuid.UUID                { return s.id }
func (s *Specification) Kind() Kind                   { return s.kind }
func (s *Specification) Name() string                 { return s.name }
func (s *Specification) Domain() domain.Kind          { return s.domain }
func (s *Specification) CoordinateField() field.Field { return s.coordinate }
func (s *Specification) DataField() field.Field       { return s.data }
func (s *Specification) SubgroupField() field.Field   { return s.subgroup }
func (s *Specification) TextureField() field.Field    { return s.texture }
func (s *Specification) Tessellation() Tessellation   { return s.tessellation }
func (s *Specification) Exterior() bool               { return s.exterior }
func (s *Specification) Face() domain.FaceType        { return s.face }
func (s *Specification) SelectMode() SelectMode       { return s.selectMode }
func (s *Specification) Appearance() Appearance       { return s.appearance }
func (s *Specification) Visible() bool                { return s.appearance.Visible }

// Shape returns a copy of the kind-specific attributes.
func (s *Specification) Shape() Shape { return s.shape.clone() }

// State returns the pending rebuild state.
func (s *Specification) State() *invalidate.State { return &s.state }

// Severity returns the pending rebuild severity.
func (s *Specification) Severity() invalidate.Severity { return s.state.Severity() }

// Store returns the built primitives, or nil.
func (s *Specification) Store() *primitive.Store { return s.store }

// Diagnostics returns the messages of the last validation and build.
func (s *Specification) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), s.diagnostics...)
}

// request records the severity of changing attribute attr.
func (s *Specification) request(attr string) {
	s.state.Request(invalidate.ForAttribute(attr))
}

// swap replaces the field in slot, moving the reference count from the
// old field to the new one.
func swap(slot *field.Field, f field.Field) {
	if f != nil {
		f.Access()
	}
	if *slot != nil {
		(*slot).Deaccess()
	}
	*slot = f
}

// setField validates and assigns a field attribute. check may be nil.
func (s *Specification) setField(attr string, slot *field.Field, f field.Field, check func(field.Field) error) error {
	if *slot == f {
		return nil
	}
	if f != nil && check != nil {
		if err := check(f); err != nil {
			return err
		}
	}
	swap(slot, f)
	s.request(attr)
	return nil
}

func maxComponents(attr string, n int) func(field.Field) error {
	return func(f field.Field) error {
		if c := f.NumberOfComponents(); c < 1 || c > n {
			return invalid(attr, "field %q has %d components, want 1 to %d", f.Name(), c, n)
		}
		return nil
	}
}

func scalar(attr string) func(field.Field) error {
	return func(f field.Field) error {
		if c := f.NumberOfComponents(); c != 1 {
			return invalid(attr, "field %q has %d components, want a scalar", f.Name(), c)
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// Common attributes
// ---------------------------------------------------------------------------

// SetName renames the graphic.
func (s *Specification) SetName(name string) error {
	if s.name == name {
		return nil
	}
	s.name = name
	s.request("name")
	return nil
}

// SetDomain selects the domain iterated by the graphic.
func (s *Specification) SetDomain(k domain.Kind) error {
	if s.domain == k {
		return nil
	}
	if k == domain.KindPoint && s.kind != Points {
		return invalid("domain", "only points can use the point domain")
	}
	if (k == domain.KindNodes || k == domain.KindDatapoints) && s.kind != Points {
		return invalid("domain", "only points can use the %s domain", k)
	}
	s.domain = k
	s.request("domain")
	return nil
}

// SetCoordinateField sets the field giving positions, of up to 3
// components.
func (s *Specification) SetCoordinateField(f field.Field) error {
	return s.setField("coordinate_field", &s.coordinate, f, maxComponents("coordinate_field", 3))
}

// SetDataField sets the field whose values colour the graphic.
func (s *Specification) SetDataField(f field.Field) error {
	return s.setField("data_field", &s.data, f, nil)
}

// SetSubgroupField restricts drawing to entities where f is true.
func (s *Specification) SetSubgroupField(f field.Field) error {
	return s.setField("subgroup_field", &s.subgroup, f, func(f field.Field) error {
		if _, ok := field.AsGroup(f); ok {
			return nil
		}
		return scalar("subgroup_field")(f)
	})
}

// SetTextureCoordinateField sets the field of up to 3 components giving
// texture coordinates.
func (s *Specification) SetTextureCoordinateField(f field.Field) error {
	return s.setField("texture_coordinate_field", &s.texture, f, maxComponents("texture_coordinate_field", 3))
}

// SetTessellation sets the element divisions along each xi direction.
func (s *Specification) SetTessellation(divisions [3]int) error {
	for i, n := range divisions {
		if n < 1 {
			return invalid("tessellation", "division %d is %d, want at least 1", i+1, n)
		}
	}
	if s.tessellation.Divisions == divisions {
		return nil
	}
	s.tessellation.Divisions = divisions
	s.request("tessellation")
	return nil
}

// SetCircleDivisions sets the number of facets around circular
// extrusions.
func (s *Specification) SetCircleDivisions(n int) error {
	if n < 3 {
		return invalid("circle_divisions", "%d divisions, want at least 3", n)
	}
	if s.tessellation.CircleDivisions == n {
		return nil
	}
	s.tessellation.CircleDivisions = n
	s.request("circle_divisions")
	return nil
}

// SetExterior limits faces and lines to the exterior of the mesh.
func (s *Specification) SetExterior(exterior bool) error {
	if s.exterior == exterior {
		return nil
	}
	s.exterior = exterior
	s.request("exterior")
	return nil
}

// SetFace limits faces and lines to one face of the top-level elements.
func (s *Specification) SetFace(f domain.FaceType) error {
	if s.face == f {
		return nil
	}
	s.face = f
	s.request("face")
	return nil
}

// SetSelectMode sets how the selection affects the graphic.
func (s *Specification) SetSelectMode(m SelectMode) error {
	if m < SelectOn || m > SelectDrawUnselected {
		return invalid("select_mode", "unknown select mode %d", int(m))
	}
	if s.selectMode == m {
		return nil
	}
	s.selectMode = m
	s.request("select_mode")
	return nil
}

// SelectionChanged records that the selection group changed.
func (s *Specification) SelectionChanged() {
	s.state.Request(invalidate.ClassifySelection(s.selectMode.Highlights(), s.selectMode.Filters()))
}

// SetVisibility shows or hides the graphic.
func (s *Specification) SetVisibility(visible bool) error {
	if s.appearance.Visible == visible {
		return nil
	}
	s.appearance.Visible = visible
	s.request("visibility")
	return nil
}

// SetCoordinateSystem sets the space the graphic is drawn in.
func (s *Specification) SetCoordinateSystem(c CoordinateSystem) error {
	if s.appearance.CoordinateSystem == c {
		return nil
	}
	s.appearance.CoordinateSystem = c
	s.request("coordinate_system")
	return nil
}

func (s *Specification) setTag(attr string, slot *string, v string) error {
	if *slot == v {
		return nil
	}
	*slot = v
	s.request(attr)
	return nil
}

func (s *Specification) SetMaterial(name string) error {
	return s.setTag("material", &s.appearance.Material, name)
}

func (s *Specification) SetSecondaryMaterial(name string) error {
	return s.setTag("secondary_material", &s.appearance.SecondaryMaterial, name)
}

func (s *Specification) SetSelectedMaterial(name string) error {
	return s.setTag("selected_material", &s.appearance.SelectedMaterial, name)
}

func (s *Specification) SetSpectrum(name string) error {
	return s.setTag("spectrum", &s.appearance.Spectrum, name)
}

func (s *Specification) SetFont(name string) error {
	return s.setTag("font", &s.appearance.Font, name)
}

func (s *Specification) SetRenderStyle(r RenderStyle) error {
	if s.appearance.RenderStyle == r {
		return nil
	}
	s.appearance.RenderStyle = r
	s.request("render_style")
	return nil
}

// SetLineWidth sets the rasterised width of lines, which must be positive.
func (s *Specification) SetLineWidth(w float64) error {
	if !(w > 0) {
		return invalid("line_width", "width %g must be positive", w)
	}
	if s.appearance.LineWidth == w {
		return nil
	}
	s.appearance.LineWidth = w
	s.request("line_width")
	return nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// fieldSlots returns every field reference of the specification.
func (s *Specification) fieldSlots() []*field.Field {
	slots := []*field.Field{&s.coordinate, &s.data, &s.subgroup, &s.texture}
	return append(slots, s.shape.slots()...)
}

// ReferencedFields returns the names of every referenced field.
func (s *Specification) ReferencedFields() []string {
	var names []string
	for _, slot := range s.fieldSlots() {
		if *slot != nil {
			names = append(names, (*slot).Name())
		}
	}
	return names
}

// Dependency describes what the graphic reads from region r.
func (s *Specification) Dependency(r *domain.Region) invalidate.Dependency {
	dim := r.Dimension(s.domain)
	return invalidate.Dependency{
		Domain:        s.domain,
		Dimension:     dim,
		Fields:        s.ReferencedFields(),
		Built:         s.store != nil,
		NoPartial:     s.kind == Streamlines,
		TotalNodes:    r.NodeCount(),
		TotalElements: r.ElementCount(dim),
	}
}

// Detach releases every field reference. The graphic draws nothing until
// fields are set again.
func (s *Specification) Detach() {
	changed := false
	for _, slot := range s.fieldSlots() {
		if *slot != nil {
			swap(slot, nil)
			changed = true
		}
	}
	if changed {
		s.state.Request(invalidate.FullRebuild)
	}
}

// Destroy detaches the fields and releases the store.
func (s *Specification) Destroy() {
	s.Detach()
	s.store = nil
}

// ---------------------------------------------------------------------------
// Build hooks
// ---------------------------------------------------------------------------

// BeginBuild marks the specification as being built. It reports false
// when a build is already running.
func (s *Specification) BeginBuild() bool {
	if s.building {
		return false
	}
	s.building = true
	return true
}

// EndBuild clears the building mark.
func (s *Specification) EndBuild() { s.building = false }

// ReplaceStore installs a freshly built store.
func (s *Specification) ReplaceStore(st *primitive.Store) { s.store = st }

// CompleteBuild records a finished build of severity done.
func (s *Specification) CompleteBuild(done invalidate.Severity) bool {
	return s.state.Complete(done)
}

// SetDiagnostics replaces the recorded diagnostics.
func (s *Specification) SetDiagnostics(d []Diagnostic) { s.diagnostics = d }

// StoreAppearance returns the appearance tags written to the store.
func (s *Specification) StoreAppearance() primitive.Appearance {
	a := primitive.Appearance{
		Material:          s.appearance.Material,
		SecondaryMaterial: s.appearance.SecondaryMaterial,
		SelectedMaterial:  s.appearance.SelectedMaterial,
		Spectrum:          s.appearance.Spectrum,
		RenderStyle:       s.appearance.RenderStyle.String(),
		LineWidth:         s.appearance.LineWidth,
		Font:              s.appearance.Font,
		SelectMode:        s.selectMode.String(),
	}
	switch sh := s.shape.(type) {
	case *PointAttributes:
		a.Glyph = sh.Glyph
		a.GlyphRepeat = sh.RepeatMode.String()
		a.LabelText = sh.LabelText
	case *SurfaceAttributes:
		a.PolygonMode = sh.PolygonMode.String()
	}
	return a
}

func fieldName(f field.Field) string {
	if f == nil {
		return "none"
	}
	return f.Name()
}

func (s *Specification) String() string {
	var b strings.Builder
	b.WriteString(s.kind.String())
	if s.name != "" {
		fmt.Fprintf(&b, " %q", s.name)
	}
	fmt.Fprintf(&b, " domain=%s coordinates=%s", s.domain, fieldName(s.coordinate))
	if s.data != nil {
		fmt.Fprintf(&b, " data=%s", s.data.Name())
	}
	if s.subgroup != nil {
		fmt.Fprintf(&b, " subgroup=%s", s.subgroup.Name())
	}
	if s.exterior {
		b.WriteString(" exterior")
	}
	if s.face != domain.FaceAll {
		fmt.Fprintf(&b, " face=%s", s.face)
	}
	switch sh := s.shape.(type) {
	case *PointAttributes:
		fmt.Fprintf(&b, " glyph=%s repeat=%s size=%v", sh.Glyph, sh.RepeatMode, sh.BaseSize)
	case *LineAttributes:
		fmt.Fprintf(&b, " line=%s", sh.Shape)
	case *ContourAttributes:
		fmt.Fprintf(&b, " isoscalar=%s", fieldName(sh.Isoscalar))
		if sh.Range != nil {
			fmt.Fprintf(&b, " range %d %g..%g", sh.Range.Count, sh.Range.First, sh.Range.Last)
		} else {
			fmt.Fprintf(&b, " isovalues=%v", sh.Isovalues)
		}
	case *StreamlineAttributes:
		fmt.Fprintf(&b, " vector=%s length=%g", fieldName(sh.Vector), sh.Length)
		if sh.Reverse {
			b.WriteString(" reverse")
		}
	}
	fmt.Fprintf(&b, " material=%s", s.appearance.Material)
	if !s.appearance.Visible {
		b.WriteString(" invisible")
	}
	return b.String()
}
