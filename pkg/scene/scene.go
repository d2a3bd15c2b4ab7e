// Package scene holds the ordered graphics of one region and drives their
// edit, classify and build cycle. It is the interface an editor and a
// renderer use; all calls are made from a single goroutine.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"

	"github.com/chazu/fieldviz/pkg/build"
	"github.com/chazu/fieldviz/pkg/changelog"
	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/glyph"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/kernel"
	"github.com/chazu/fieldviz/pkg/kernel/sdfx"
	"github.com/chazu/fieldviz/pkg/primitive"
)

var (
	// ErrNotFound is returned for an unknown graphic id.
	ErrNotFound = errors.New("scene: no such graphic")
	// ErrNoEdit is returned by Commit when no edit is open.
	ErrNoEdit = errors.New("scene: no pending edit")
	// ErrDuplicateName is returned when two graphics would share a name.
	ErrDuplicateName = errors.New("scene: graphic name already used")
)

// DefaultCoordinates is the field new graphics use for coordinates when
// the manager defines it.
const DefaultCoordinates = "coordinates"

const glyphCells = 16

// Options configure a scene. Zero values select the defaults.
type Options struct {
	Log    logrus.FieldLogger
	Kernel kernel.Kernel
	Policy invalidate.Policy
}

// Scene is an ordered list of graphic specifications over one region and
// its field manager.
type Scene struct {
	region *domain.Region
	fields *field.Manager
	log    logrus.FieldLogger
	kernel kernel.Kernel
	glyphs *glyph.Library
	policy invalidate.Policy

	changes   *changelog.Log
	graphics  []*graphic.Specification
	edits     map[uuid.UUID]*graphic.Specification
	listeners []func(*graphic.Specification)
	selection *domain.Group
	time      float64
}

// New returns an empty scene. The scene records region and field changes
// into its own change log, applied at the start of every Rebuild.
func New(region *domain.Region, fields *field.Manager, opts Options) *Scene {
	sc := &Scene{
		region:  region,
		fields:  fields,
		log:     opts.Log,
		kernel:  opts.Kernel,
		policy:  opts.Policy,
		changes: changelog.New(),
		edits:   make(map[uuid.UUID]*graphic.Specification),
	}
	if sc.log == nil {
		sc.log = logrus.StandardLogger()
	}
	if sc.kernel == nil {
		sc.kernel = sdfx.New()
	}
	if sc.policy == (invalidate.Policy{}) {
		sc.policy = invalidate.DefaultPolicy()
	}
	sc.glyphs = glyph.NewLibrary(sc.kernel, glyphCells)
	region.SetRecorder(sc.changes)
	fields.SetRecorder(fieldRecorder{Log: sc.changes, region: region})
	return sc
}

// fieldRecorder logs field changes. A per-node value change also marks
// the elements using the node, as a node move does.
type fieldRecorder struct {
	*changelog.Log
	region *domain.Region
}

func (r fieldRecorder) FieldValueChanged(name string, node domain.ID) {
	r.FieldEntityChanged(name, 0, node)
	for d := 1; d <= 3; d++ {
		for _, id := range r.region.ElementsUsingNode(d, node) {
			r.FieldEntityChanged(name, d, id)
		}
	}
}

func (sc *Scene) Region() *domain.Region     { return sc.region }
func (sc *Scene) Fields() *field.Manager     { return sc.fields }
func (sc *Scene) Glyphs() *glyph.Library     { return sc.glyphs }
func (sc *Scene) ChangeLog() *changelog.Log  { return sc.changes }
func (sc *Scene) Time() float64              { return sc.time }
func (sc *Scene) Selection() *domain.Group   { return sc.selection }
func (sc *Scene) Len() int                   { return len(sc.graphics) }
func (sc *Scene) Policy() invalidate.Policy  { return sc.policy }
func (sc *Scene) Kernel() kernel.Kernel      { return sc.kernel }
func (sc *Scene) Logger() logrus.FieldLogger { return sc.log }

// Graphics returns the specifications in drawing order.
func (sc *Scene) Graphics() []*graphic.Specification {
	return slices.Clone(sc.graphics)
}

func (sc *Scene) index(id uuid.UUID) int {
	return slices.IndexFunc(sc.graphics, func(s *graphic.Specification) bool { return s.ID() == id })
}

// Graphic returns the live specification with the given id.
func (sc *Scene) Graphic(id uuid.UUID) (*graphic.Specification, bool) {
	i := sc.index(id)
	if i < 0 {
		return nil, false
	}
	return sc.graphics[i], true
}

// Lookup returns the live specification with the given name.
func (sc *Scene) Lookup(name string) (*graphic.Specification, bool) {
	for _, s := range sc.graphics {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func (sc *Scene) nameTaken(name string, except uuid.UUID) bool {
	if name == "" {
		return false
	}
	for _, s := range sc.graphics {
		if s.ID() != except && s.Name() == name {
			return true
		}
	}
	return false
}

// CreateSpecification appends a new graphic of kind k. It reads the
// default coordinate field when the manager has one.
func (sc *Scene) CreateSpecification(k graphic.Kind, name string) (*graphic.Specification, error) {
	if sc.nameTaken(name, uuid.Nil) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	s, err := graphic.New(k)
	if err != nil {
		return nil, err
	}
	if err := s.SetName(name); err != nil {
		return nil, err
	}
	if f, ok := sc.fields.Get(DefaultCoordinates); ok && f.NumberOfComponents() <= 3 {
		if err := s.SetCoordinateField(f); err != nil {
			return nil, err
		}
	}
	sc.graphics = append(sc.graphics, s)
	sc.log.WithFields(logrus.Fields{"graphic": s.Name(), "kind": k.String()}).Debug("graphic created")
	return s, nil
}

// target is the specification attribute edits apply to: the open edit
// when there is one, else the live graphic.
func (sc *Scene) target(id uuid.UUID) (*graphic.Specification, error) {
	if e, ok := sc.edits[id]; ok {
		return e, nil
	}
	if s, ok := sc.Graphic(id); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SetAttribute sets a named attribute of graphic id, or of its open edit.
// On a *graphic.ValidationError nothing changes.
func (sc *Scene) SetAttribute(id uuid.UUID, name string, v cty.Value) error {
	s, err := sc.target(id)
	if err != nil {
		return err
	}
	return s.Set(name, v, sc.fields)
}

// Edit opens an edit of graphic id and returns the working copy. Edits
// accumulate on the copy until Commit or Revert; the live graphic keeps
// drawing meanwhile. A second Edit returns the open copy.
func (sc *Scene) Edit(id uuid.UUID) (*graphic.Specification, error) {
	if e, ok := sc.edits[id]; ok {
		return e, nil
	}
	live, ok := sc.Graphic(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e, err := graphic.New(live.Kind())
	if err != nil {
		return nil, err
	}
	if err := graphic.Copy(e, live); err != nil {
		return nil, err
	}
	sc.edits[id] = e
	return e, nil
}

// Commit applies the open edit of graphic id. An edit equal to the live
// graphic is discarded. Otherwise a fresh copy of the edit replaces the
// live graphic at the same position and inherits its primitives when the
// geometry is unchanged. It returns the specification now in the scene.
func (sc *Scene) Commit(id uuid.UUID) (*graphic.Specification, error) {
	e, ok := sc.edits[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEdit, id)
	}
	i := sc.index(id)
	if i < 0 {
		sc.Revert(id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	live := sc.graphics[i]
	if sc.nameTaken(e.Name(), id) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, e.Name())
	}
	delete(sc.edits, id)
	if graphic.Matches(e, live) {
		e.Destroy()
		return live, nil
	}

	fresh, err := graphic.New(live.Kind())
	if err != nil {
		return nil, err
	}
	if err := graphic.Copy(fresh, e); err != nil {
		return nil, err
	}
	e.Destroy()
	reused := graphic.ExtractPrimitivesFromSibling(fresh, []*graphic.Specification{live})
	live.Destroy()
	sc.graphics[i] = fresh

	sc.log.WithFields(logrus.Fields{
		"graphic":  fresh.Name(),
		"reused":   reused,
		"severity": fresh.State().String(),
	}).Debug("edit committed")
	return fresh, nil
}

// Revert discards the open edit of graphic id, reporting whether there
// was one.
func (sc *Scene) Revert(id uuid.UUID) bool {
	e, ok := sc.edits[id]
	if !ok {
		return false
	}
	e.Destroy()
	delete(sc.edits, id)
	return true
}

// Remove destroys graphic id and any open edit of it. Listeners are told
// its primitives are gone.
func (sc *Scene) Remove(id uuid.UUID) error {
	i := sc.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s := sc.graphics[i]
	sc.Revert(id)
	sc.graphics = slices.Delete(sc.graphics, i, i+1)
	s.Destroy()
	sc.notify(s)
	return nil
}

// Move places graphic id at position pos of the drawing order.
func (sc *Scene) Move(id uuid.UUID, pos int) error {
	i := sc.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if pos < 0 || pos >= len(sc.graphics) {
		return fmt.Errorf("scene: position %d out of range", pos)
	}
	s := sc.graphics[i]
	sc.graphics = slices.Insert(slices.Delete(sc.graphics, i, i+1), pos, s)
	return nil
}

// Primitives returns the store of graphic id, or nil when it has none.
func (sc *Scene) Primitives(id uuid.UUID) *primitive.Store {
	s, ok := sc.Graphic(id)
	if !ok {
		return nil
	}
	return s.Store()
}

// OnPrimitivesChanged registers fn to be called after a graphic's
// primitives change or are released.
func (sc *Scene) OnPrimitivesChanged(fn func(*graphic.Specification)) {
	sc.listeners = append(sc.listeners, fn)
}

func (sc *Scene) notify(s *graphic.Specification) {
	for _, fn := range sc.listeners {
		fn(s)
	}
}

// Diagnostics returns the diagnostics of the last build of graphic id.
func (sc *Scene) Diagnostics(id uuid.UUID) []graphic.Diagnostic {
	s, ok := sc.Graphic(id)
	if !ok {
		return nil
	}
	return s.Diagnostics()
}

// SetSelection replaces the selected group; nil clears the selection.
func (sc *Scene) SetSelection(g *domain.Group) {
	sc.selection = g
	sc.SelectionChanged()
}

// SelectionChanged tells every graphic the selection changed.
func (sc *Scene) SelectionChanged() {
	for _, s := range sc.graphics {
		s.SelectionChanged()
	}
}

// SetTime moves the scene to time t. Fields may vary with time, so every
// graphic is fully rebuilt.
func (sc *Scene) SetTime(t float64) {
	if t == sc.time {
		return
	}
	sc.time = t
	for _, s := range sc.graphics {
		s.State().Request(invalidate.FullRebuild)
	}
}

// ApplyChangeLog classifies one cycle of region and field changes for
// every graphic.
func (sc *Scene) ApplyChangeLog(log *changelog.Log) {
	if log == nil || log.Empty() {
		return
	}
	for _, s := range sc.graphics {
		dec := invalidate.Classify(s.Dependency(sc.region), log, sc.policy)
		if dec.Severity == invalidate.Clean {
			continue
		}
		dec.Apply(s.State())
		sc.log.WithFields(logrus.Fields{
			"graphic":  s.Name(),
			"severity": s.State().String(),
		}).Debug("change classified")
	}
}

func (sc *Scene) context() *build.Context {
	ctx := &build.Context{
		Region: sc.region,
		Glyphs: sc.glyphs,
		Kernel: sc.kernel,
		Time:   sc.time,
		Filter: func(s *graphic.Specification) bool { return s.Visible() },
		Notify: sc.notify,
		Log:    sc.log,
		Policy: sc.policy,
	}
	if sc.selection != nil {
		ctx.Selection, _ = field.AsGroup(field.NewGroup(sc.selection))
	}
	return ctx
}

// Rebuild applies the pending change log and builds every visible
// graphic that is not clean, in drawing order. A graphic that fails to
// build keeps its pending work; the others are still built and the
// failures are returned together.
func (sc *Scene) Rebuild() ([]build.Report, error) {
	sc.ApplyChangeLog(sc.changes)
	sc.changes.Reset()

	ctx := sc.context()
	var errs *multierror.Error
	reports := make([]build.Report, 0, len(sc.graphics))
	for _, s := range sc.graphics {
		if s.State().IsClean() {
			continue
		}
		rep, err := build.Build(ctx, s)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", rep.Graphic, err))
		}
		reports = append(reports, rep)
	}
	return reports, errs.ErrorOrNil()
}

// DetachFields releases every field reference held by the scene's
// graphics and open edits. It is called before the fields they read are
// torn down.
func (sc *Scene) DetachFields() {
	for _, s := range sc.graphics {
		s.Detach()
	}
	for _, e := range sc.edits {
		e.Detach()
	}
}

// Close destroys every graphic and detaches the scene from its region
// and field manager.
func (sc *Scene) Close() {
	for id := range sc.edits {
		sc.Revert(id)
	}
	for _, s := range sc.graphics {
		s.Destroy()
	}
	sc.graphics = nil
	sc.region.SetRecorder(nil)
	sc.fields.SetRecorder(nil)
}
