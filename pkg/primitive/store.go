package primitive

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"cogentcore.org/core/math32"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Appearance holds the tags re-applied to a store on recompile. None of
// them affect geometry.
type Appearance struct {
	Material          string
	SecondaryMaterial string
	SelectedMaterial  string
	Spectrum          string
	RenderStyle       string
	PolygonMode       string
	LineWidth         float64
	Glyph             string
	GlyphRepeat       string
	LabelText         [3]string
	Font              string
	SelectMode        string
}

// Store is the cached output of one graphic. Batches keep insertion
// order; each is indexed by the entity that produced it.
type Store struct {
	kind       Kind
	batches    []Batch
	index      map[domain.ID][]int
	appearance Appearance
	selected   map[domain.ID]struct{}
	dataSource string
	version    uint64
}

// NewStore returns an empty store of one kind.
func NewStore(k Kind) *Store {
	return &Store{kind: k, index: make(map[domain.ID][]int), selected: make(map[domain.ID]struct{})}
}

func (s *Store) Kind() Kind { return s.kind }

// Len returns the number of batches.
func (s *Store) Len() int { return len(s.batches) }

// Version increases on every mutation; renderers compare it to decide
// whether cached GPU state is stale.
func (s *Store) Version() uint64 { return s.version }

// Touch marks the store as mutated after batches were edited in place.
func (s *Store) Touch() { s.version++ }

// Batches returns the batches in insertion order. The batches themselves
// are shared with the store.
func (s *Store) Batches() []Batch {
	return append([]Batch(nil), s.batches...)
}

// ForEntity returns the batches produced by one entity.
func (s *Store) ForEntity(id domain.ID) []Batch {
	var out []Batch
	for _, i := range s.index[id] {
		out = append(out, s.batches[i])
	}
	return out
}

// Entities returns the distinct entity identifiers in first-seen order.
func (s *Store) Entities() []domain.ID {
	var out []domain.ID
	seen := make(map[domain.ID]struct{}, len(s.index))
	for _, b := range s.batches {
		id := b.Meta().EntityID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Add appends a batch. Its kind must match the store's.
func (s *Store) Add(b Batch) error {
	if b.Kind() != s.kind {
		return fmt.Errorf("primitive: cannot add %s batch to %s store", b.Kind(), s.kind)
	}
	id := b.Meta().EntityID
	s.index[id] = append(s.index[id], len(s.batches))
	s.batches = append(s.batches, b)
	s.version++
	return nil
}

// RemoveEntities drops every batch tagged with one of ids and returns the
// number removed. The relative order of the remaining batches is kept.
func (s *Store) RemoveEntities(ids []domain.ID) int {
	drop := make(map[domain.ID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return s.removeWhere(func(b Batch) bool {
		_, ok := drop[b.Meta().EntityID]
		return ok
	})
}

// RemoveAtTime drops every batch built at time t.
func (s *Store) RemoveAtTime(t float64) int {
	return s.removeWhere(func(b Batch) bool { return b.Meta().Time == t })
}

func (s *Store) removeWhere(match func(Batch) bool) int {
	kept := s.batches[:0]
	removed := 0
	for _, b := range s.batches {
		if match(b) {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(s.batches); i++ {
		s.batches[i] = nil
	}
	s.batches = kept
	s.reindex()
	if removed > 0 {
		s.version++
	}
	return removed
}

func (s *Store) reindex() {
	s.index = make(map[domain.ID][]int, len(s.index))
	for i, b := range s.batches {
		id := b.Meta().EntityID
		s.index[id] = append(s.index[id], i)
	}
}

// Appearance returns the current appearance tags.
func (s *Store) Appearance() Appearance { return s.appearance }

// ApplyAppearance replaces the appearance tags, reporting whether they
// changed. Geometry is untouched.
func (s *Store) ApplyAppearance(a Appearance) bool {
	if s.appearance == a {
		return false
	}
	s.appearance = a
	s.version++
	return true
}

// DataSource returns the name of the field the per-vertex data was
// evaluated from, or "" when the batches carry no data.
func (s *Store) DataSource() string { return s.dataSource }

// SetDataSource records the field the batch data was evaluated from.
func (s *Store) SetDataSource(name string) {
	if s.dataSource != name {
		s.dataSource = name
		s.version++
	}
}

// SetSelected replaces the set of highlighted entities.
func (s *Store) SetSelected(ids []domain.ID) {
	s.selected = make(map[domain.ID]struct{}, len(ids))
	for _, id := range ids {
		s.selected[id] = struct{}{}
	}
	s.version++
}

// Selected reports whether an entity is highlighted.
func (s *Store) Selected(id domain.ID) bool {
	_, ok := s.selected[id]
	return ok
}

// VertexCount returns the total number of positions over all batches.
func (s *Store) VertexCount() int {
	n := 0
	for _, b := range s.batches {
		n += len(b.Positions())
	}
	return n
}

// Bounds returns the axis-aligned box of every position in the store.
func (s *Store) Bounds() math32.Box3 {
	box := math32.B3Empty()
	for _, b := range s.batches {
		for _, p := range b.Positions() {
			box.ExpandByPoint(p)
		}
	}
	return box
}

// Digest hashes the geometry, data, tags and appearance of the store.
// Two stores with equal digests render identically.
func (s *Store) Digest() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	word := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	vec := func(p math32.Vector3) {
		word(uint64(math.Float32bits(p.X)))
		word(uint64(math.Float32bits(p.Y)))
		word(uint64(math.Float32bits(p.Z)))
	}
	fmt.Fprintf(h, "%d|%+v|%s|", s.kind, s.appearance, s.dataSource)
	for _, b := range s.batches {
		m := b.Meta()
		word(uint64(m.EntityID))
		word(math.Float64bits(m.Time))
		for _, p := range b.Positions() {
			vec(p)
		}
		for _, d := range m.Data {
			for _, v := range d {
				word(uint64(math.Float32bits(v)))
			}
		}
		switch b := b.(type) {
		case *Polyline:
			fmt.Fprintf(h, "%t", b.Segments)
		case *Surface:
			for _, n := range b.Normals {
				vec(n)
			}
			for _, i := range b.Indices {
				word(uint64(i))
			}
		case *GlyphSet:
			for _, axes := range b.Axes {
				for _, a := range axes {
					vec(a)
				}
			}
			for _, l := range b.Labels {
				fmt.Fprintf(h, "%q", l)
			}
			for _, p := range b.LabelPoints {
				vec(p)
			}
		}
	}
	return h.Sum64()
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := NewStore(s.kind)
	c.appearance = s.appearance
	c.dataSource = s.dataSource
	for id := range s.selected {
		c.selected[id] = struct{}{}
	}
	for _, b := range s.batches {
		c.batches = append(c.batches, cloneBatch(b))
	}
	c.reindex()
	c.version = s.version
	return c
}

func cloneHeader(h Header) Header {
	out := Header{EntityID: h.EntityID, Time: h.Time, Sites: append([]Site(nil), h.Sites...)}
	if h.Data != nil {
		out.Data = make([][]float32, len(h.Data))
		for i, d := range h.Data {
			out.Data[i] = append([]float32(nil), d...)
		}
	}
	return out
}

func cloneBatch(b Batch) Batch {
	switch b := b.(type) {
	case *Polyline:
		return &Polyline{Header: cloneHeader(b.Header), Points: append([]math32.Vector3(nil), b.Points...), Segments: b.Segments}
	case *Surface:
		return &Surface{
			Header:    cloneHeader(b.Header),
			Points:    append([]math32.Vector3(nil), b.Points...),
			Normals:   append([]math32.Vector3(nil), b.Normals...),
			Indices:   append([]uint32(nil), b.Indices...),
			TexCoords: append([]math32.Vector3(nil), b.TexCoords...),
		}
	case *GlyphSet:
		return &GlyphSet{
			Header: cloneHeader(b.Header),
			Points: append([]math32.Vector3(nil), b.Points...),
			Axes:   append([][3]math32.Vector3(nil), b.Axes...),
			Labels: append([]string(nil), b.Labels...),

			LabelPoints: append([]math32.Vector3(nil), b.LabelPoints...),
		}
	default:
		return b
	}
}
