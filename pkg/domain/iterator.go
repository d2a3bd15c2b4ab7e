package domain

import "sort"

// Iterator lazily enumerates domain entities. An iterator is single-pass;
// create a new one for each pipeline pass.
type Iterator interface {
	Next() (Entity, bool)
}

type sliceIterator struct {
	entities []Entity
	pos      int
}

// NewSliceIterator iterates a fixed slice of entities in order.
func NewSliceIterator(entities []Entity) Iterator {
	return &sliceIterator{entities: entities}
}

func (it *sliceIterator) Next() (Entity, bool) {
	if it.pos >= len(it.entities) {
		return Entity{}, false
	}
	e := it.entities[it.pos]
	it.pos++
	return e, true
}

type filterIterator struct {
	src  Iterator
	keep func(Entity) bool
}

// Filter wraps an iterator, yielding only entities accepted by keep.
func Filter(it Iterator, keep func(Entity) bool) Iterator {
	return &filterIterator{src: it, keep: keep}
}

func (it *filterIterator) Next() (Entity, bool) {
	for {
		e, ok := it.src.Next()
		if !ok {
			return Entity{}, false
		}
		if it.keep(e) {
			return e, true
		}
	}
}

// Collect drains an iterator into a slice.
func Collect(it Iterator) []Entity {
	var out []Entity
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		out = append(out, e)
	}
	return out
}

// PointEntity is the single entity of the abstract point domain.
var PointEntity = Entity{ID: 0, Dimension: -1, Shape: ShapePoint}

// Iterate returns the entities of a domain kind in ascending identifier
// order.
func (r *Region) Iterate(k Kind) Iterator {
	switch k {
	case KindPoint:
		return NewSliceIterator([]Entity{PointEntity})
	case KindNodes:
		return NewSliceIterator(pointEntities(r.nodes))
	case KindDatapoints:
		return NewSliceIterator(pointEntities(r.datapoints))
	}
	return NewSliceIterator(r.sortedElements(r.Dimension(k)))
}

// IterateIDs returns the existing elements of a dimension among ids, in
// ascending identifier order. Dimension zero selects nodes.
func (r *Region) IterateIDs(dimension int, ids []ID) Iterator {
	sorted := append([]ID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var out []Entity
	var last ID
	for i, id := range sorted {
		if i > 0 && id == last {
			continue
		}
		last = id
		if dimension == 0 {
			if _, ok := r.nodes[id]; ok {
				out = append(out, Entity{ID: id, Shape: ShapePoint, Nodes: []ID{id}})
			}
			continue
		}
		if e, ok := r.Element(dimension, id); ok {
			out = append(out, e)
		}
	}
	return NewSliceIterator(out)
}

func (r *Region) sortedElements(d int) []Entity {
	if d < 1 || d > 3 {
		return nil
	}
	out := make([]Entity, 0, len(r.elements[d]))
	for _, e := range r.elements[d] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pointEntities(points map[ID][3]float64) []Entity {
	out := make([]Entity, 0, len(points))
	for id := range points {
		out = append(out, Entity{ID: id, Shape: ShapePoint, Nodes: []ID{id}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
