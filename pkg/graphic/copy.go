package graphic

import "github.com/chazu/fieldviz/pkg/invalidate"

// Copy makes dst a copy of src: every attribute except identity and the
// built store. Field references are re-acquired for dst, its store is
// dropped and a full rebuild is requested. Both must be of the same kind.
func Copy(dst, src *Specification) error {
	if dst == src {
		return nil
	}
	if dst.kind != src.kind {
		return invalid("kind", "cannot copy %s into %s", src.kind, dst.kind)
	}
	dst.Detach()
	dst.name = src.name
	dst.domain = src.domain
	dst.tessellation = src.tessellation
	dst.appearance = src.appearance
	dst.exterior = src.exterior
	dst.face = src.face
	dst.selectMode = src.selectMode
	dst.shape = src.shape.clone()
	for _, slot := range dst.shape.slots() {
		if *slot != nil {
			(*slot).Access()
		}
	}
	swap(&dst.coordinate, src.coordinate)
	swap(&dst.data, src.data)
	swap(&dst.subgroup, src.subgroup)
	swap(&dst.texture, src.texture)

	dst.store = nil
	dst.diagnostics = nil
	dst.state = invalidate.State{}
	dst.state.Request(invalidate.FullRebuild)
	return nil
}

// MatchesStructurally reports whether a store built for b would have the
// geometry a needs. Appearance, the data field and glyph presentation are
// ignored; a recompile patches those into the store. The name and
// visibility are ignored too; they only need a redraw.
func MatchesStructurally(a, b *Specification) bool {
	return a.kind == b.kind &&
		a.domain == b.domain &&
		a.coordinate == b.coordinate &&
		a.subgroup == b.subgroup &&
		a.texture == b.texture &&
		a.tessellation == b.tessellation &&
		a.exterior == b.exterior &&
		a.face == b.face &&
		a.selectMode == b.selectMode &&
		a.shape.structurallyEqual(b.shape)
}

// Matches reports whether a and b describe identical graphics.
func Matches(a, b *Specification) bool {
	return MatchesStructurally(a, b) &&
		a.name == b.name &&
		a.data == b.data &&
		a.appearance == b.appearance &&
		a.shape.appearanceEqual(b.shape)
}

// ExtractPrimitivesFromSibling moves the store of the first structurally
// matching graphic in pool to target. The target takes over the sibling's
// pending state. It adds a recompile when the store's appearance tags,
// data field or presentation differ from the target's, and a redraw
// otherwise. The sibling loses its store and will fully rebuild.
// It reports whether a store was moved.
func ExtractPrimitivesFromSibling(target *Specification, pool []*Specification) bool {
	if target.store != nil || target.building {
		return false
	}
	for _, sib := range pool {
		if sib == nil || sib == target || sib.store == nil || sib.building {
			continue
		}
		if !MatchesStructurally(target, sib) {
			continue
		}
		restyled := sib.store.ApplyAppearance(target.StoreAppearance())
		if target.data != sib.data || !target.shape.appearanceEqual(sib.shape) {
			restyled = true
		}
		target.store = sib.store
		target.state = sib.state.Clone()
		if restyled {
			target.state.Request(invalidate.Recompile)
		} else {
			target.state.Request(invalidate.Redraw)
		}

		sib.store = nil
		sib.state.Request(invalidate.FullRebuild)
		return true
	}
	return false
}
