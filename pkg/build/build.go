package build

import (
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/kernel"
	"github.com/chazu/fieldviz/pkg/kernel/sdfx"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// builder holds the state of one pipeline pass.
type builder struct {
	ctx    *Context
	s      *graphic.Specification
	log    logrus.FieldLogger
	region *domain.Region
	kernel kernel.Kernel
	dim    int
	coords field.Field
	time   float64
	rep    *Report
	errs   *multierror.Error
}

func name(s *graphic.Specification) string {
	if s.Name() != "" {
		return s.Name()
	}
	return s.ID().String()
}

// Build brings the store of s up to date with its pending severity.
//
// Redraw only marks the graphic clean. Recompile re-applies appearance and
// re-evaluates per-vertex data in place. SelectionUpdate re-tags the
// highlighted entities. PartialRebuild regenerates the primitives of the
// touched entities; FullRebuild discards the store and regenerates all.
// A graphic without a store is always fully built.
//
// Entity errors are skipped and reported; an invalid configuration aborts
// the build of s and leaves its pending severity in place.
func Build(ctx *Context, s *graphic.Specification) (Report, error) {
	rep := Report{Graphic: name(s)}
	if ctx.Region == nil {
		return rep, ErrNoRegion
	}
	if !s.BeginBuild() {
		return rep, ErrBuildInProgress
	}
	defer s.EndBuild()

	sev := s.Severity()
	if sev == invalidate.Clean {
		return rep, nil
	}
	if ctx.Filter != nil && !ctx.Filter(s) {
		rep.Filtered = true
		return rep, nil
	}

	b := &builder{
		ctx:    ctx,
		s:      s,
		region: ctx.Region,
		kernel: ctx.Kernel,
		dim:    ctx.Region.Dimension(s.Domain()),
		time:   ctx.Time,
		rep:    &rep,
		log: ctx.logger().WithFields(logrus.Fields{
			"graphic":  rep.Graphic,
			"kind":     s.Kind().String(),
			"severity": s.State().String(),
		}),
	}
	if b.kernel == nil {
		b.kernel = sdfx.New()
	}
	if c := s.CoordinateField(); c != nil {
		b.coords = field.RectangularCartesian(c)
	}

	store := s.Store()
	if store == nil {
		sev = invalidate.FullRebuild
	}

	var diags []graphic.Diagnostic
	if sev.Rank() >= invalidate.PartialRebuild.Rank() {
		var err error
		diags, err = graphic.Validate(s)
		if err != nil {
			s.SetDiagnostics(diags)
			rep.Diagnostics = diags
			b.log.WithError(err).Warn("graphic not built")
			return rep, err
		}
	}

	state := s.State()
	if sev == invalidate.PartialRebuild && !b.partial(store, state.Scope()) {
		sev = invalidate.FullRebuild
	}
	if sev == invalidate.FullRebuild {
		store = b.full()
		s.ReplaceStore(store)
	}

	switch {
	case sev.Rank() >= invalidate.PartialRebuild.Rank():
		store.ApplyAppearance(s.StoreAppearance())
		if !b.refreshData(store) {
			b.log.Debug("stored data could not be refreshed in place")
		}
		b.updateSelection(store)
	case sev != invalidate.Redraw:
		if state.Pending(invalidate.Recompile) {
			store.ApplyAppearance(s.StoreAppearance())
			if !b.refreshData(store) {
				store = b.full()
				s.ReplaceStore(store)
				store.ApplyAppearance(s.StoreAppearance())
				sev = invalidate.FullRebuild
			}
		}
		b.updateSelection(store)
	}

	rep.Performed = sev
	rep.Batches = store.Len()
	rep.Errors = b.errs.ErrorOrNil()
	rep.Diagnostics = append(diags, rep.Diagnostics...)
	s.SetDiagnostics(rep.Diagnostics)
	s.CompleteBuild(sev)

	b.log.WithFields(logrus.Fields{
		"entities": rep.Entities,
		"batches":  rep.Batches,
		"skipped":  rep.Skipped,
	}).Debugf("built %s", sev)
	if ctx.Notify != nil {
		ctx.Notify(s)
	}
	return rep, nil
}

// full generates a new store over the whole domain.
func (b *builder) full() *primitive.Store {
	store := primitive.NewStore(storeKind(b.s, b.dim))
	store.SetDataSource(dataSource(b.s))
	if b.coords == nil && b.s.Domain() != domain.KindPoint {
		return store
	}
	if b.s.Kind() == graphic.Streamlines {
		b.streamlines(store)
		return store
	}
	if pa, ok := b.s.Points(); ok && b.ctx.Glyphs != nil {
		if _, err := b.ctx.Glyphs.Get(pa.Glyph); err != nil {
			b.info("glyph " + pa.Glyph + " has no geometry: " + err.Error())
		}
	}
	b.visit(store, domain.Filter(b.region.Iterate(b.s.Domain()), b.keep))
	return store
}

// partial regenerates the entities in scope. It reports false when the
// store cannot be patched and a full build is needed instead.
func (b *builder) partial(store *primitive.Store, scope []domain.ID) bool {
	if store == nil || b.s.Kind() == graphic.Streamlines || !b.s.Domain().IsMesh() {
		return false
	}
	if store.Kind() != storeKind(b.s, b.dim) || store.DataSource() != dataSource(b.s) {
		return false
	}
	if b.coords == nil {
		return false
	}
	store.RemoveEntities(scope)
	b.visit(store, domain.Filter(b.region.IterateIDs(b.dim, scope), b.keep))
	return true
}

// visit visits the entities of it in order and adds their batches.
func (b *builder) visit(store *primitive.Store, it domain.Iterator) {
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		b.rep.Entities++
		batches, err := b.generate(e)
		if err != nil {
			b.skip(e.ID, err)
			continue
		}
		for _, batch := range batches {
			if err := store.Add(batch); err != nil {
				b.skip(e.ID, err)
			}
		}
	}
}

// skip records an entity that produced nothing because of err.
func (b *builder) skip(id domain.ID, err error) {
	b.rep.Skipped++
	b.errs = multierror.Append(b.errs, err)
	b.rep.Diagnostics = append(b.rep.Diagnostics, graphic.Diagnostic{
		Level:   graphic.LevelWarning,
		Entity:  id,
		Message: err.Error(),
	})
	b.log.WithField("entity", id).WithError(err).Debug("entity skipped")
}

func (b *builder) info(msg string) {
	b.rep.Diagnostics = append(b.rep.Diagnostics, graphic.Diagnostic{Level: graphic.LevelInfo, Message: msg})
}

// keep applies the subgroup, selection, exterior and face filters.
func (b *builder) keep(e domain.Entity) bool {
	s := b.s
	if sub := s.SubgroupField(); sub != nil && !e.IsPoint() {
		in, err := field.EvaluateBoolean(sub, b.location(e, domain.Centre(max(e.Dimension, 0))))
		if err != nil || !in {
			return false
		}
	}
	switch s.SelectMode() {
	case graphic.SelectDrawSelected:
		if b.ctx.Selection == nil || !b.ctx.Selection.Contains(e) {
			return false
		}
	case graphic.SelectDrawUnselected:
		if b.ctx.Selection != nil && b.ctx.Selection.Contains(e) {
			return false
		}
	}
	if e.Dimension >= 1 && e.Dimension < b.region.HighestDimension() {
		if s.Exterior() && !b.region.IsExterior(e) {
			return false
		}
		if s.Face() != domain.FaceAll && !b.region.OnFace(e, s.Face()) {
			return false
		}
	}
	return true
}

// updateSelection tags the highlighted entities of the store.
func (b *builder) updateSelection(store *primitive.Store) {
	if !b.s.SelectMode().Highlights() || b.ctx.Selection == nil {
		store.SetSelected(nil)
		return
	}
	var ids []domain.ID
	for _, id := range store.Entities() {
		if b.ctx.Selection.Contains(domain.Entity{ID: id, Dimension: b.dim}) {
			ids = append(ids, id)
		}
	}
	store.SetSelected(ids)
}

// storeKind returns the batch kind a graphic produces on domains of
// dimension dim.
func storeKind(s *graphic.Specification, dim int) primitive.Kind {
	switch s.Kind() {
	case graphic.Points:
		return primitive.KindGlyphSet
	case graphic.Surfaces:
		return primitive.KindSurface
	case graphic.Contours:
		if dim == 3 {
			return primitive.KindSurface
		}
		return primitive.KindPolyline
	default:
		if l, ok := s.Lines(); ok && l.Shape.Extruded() {
			return primitive.KindSurface
		}
		return primitive.KindPolyline
	}
}
