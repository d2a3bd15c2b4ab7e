package build

import (
	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// dataSource names what the per-vertex data of a graphic's store holds.
func dataSource(s *graphic.Specification) string {
	if sa, ok := s.Streamlines(); ok {
		switch sa.DataType {
		case geometry.StreamDataNone:
			return ""
		case geometry.StreamDataMagnitude:
			return "@magnitude"
		case geometry.StreamDataTravelTime:
			return "@travel_time"
		}
	}
	if d := s.DataField(); d != nil {
		return d.Name()
	}
	return ""
}

// siteLocation returns the field location of a recorded vertex site.
func (b *builder) siteLocation(site primitive.Site) (field.Location, bool) {
	switch {
	case site.Dimension < 0:
		return field.AtPoint().WithTime(b.time), true
	case site.Dimension == 0 && b.s.Domain() == domain.KindDatapoints:
		return field.AtDatapoint(site.Element).WithTime(b.time), true
	case site.Dimension == 0:
		return field.AtNode(site.Element).WithTime(b.time), true
	}
	e, ok := b.region.Element(site.Dimension, site.Element)
	if !ok {
		return field.Location{}, false
	}
	return field.AtElement(e, site.Xi).WithTime(b.time), true
}

// refreshData re-evaluates the data field at the recorded vertex sites
// so a store built with another data field can be kept. It reports false
// when the data cannot be derived from the sites and a full rebuild is
// needed. Batches where the field is not defined lose their data.
func (b *builder) refreshData(store *primitive.Store) bool {
	want := dataSource(b.s)
	if store.DataSource() == want {
		return true
	}
	data := b.s.DataField()
	if want != "" && (data == nil || want != data.Name()) {
		return false
	}
	batches := store.Batches()
	for _, batch := range batches {
		if len(batch.Meta().Sites) != len(batch.Positions()) {
			return false
		}
	}
	for _, batch := range batches {
		h := batch.Meta()
		h.Data = nil
		if data == nil {
			continue
		}
		out := make([][]float32, len(h.Sites))
		for i, site := range h.Sites {
			loc, ok := b.siteLocation(site)
			if !ok {
				out = nil
				break
			}
			v, err := data.Evaluate(loc)
			if err != nil {
				out = nil
				break
			}
			out[i] = make([]float32, len(v))
			for j, x := range v {
				out[i][j] = float32(x)
			}
		}
		h.Data = out
	}
	store.SetDataSource(want)
	store.Touch()
	return true
}
