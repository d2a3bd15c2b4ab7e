package domain

import "fmt"

// NewBox builds a structured mesh of counts[0] x counts[1] x counts[2]
// linear elements spanning size, with its minimum corner at the origin.
// Trailing zero counts lower the mesh dimension, so {4, 2, 0} yields a
// 2-D mesh of squares. Faces and lines are defined for the top-level
// elements. Node and element identifiers start at 1.
func NewBox(counts [3]int, size [3]float64) (*Region, error) {
	dim := 0
	for k := 0; k < 3; k++ {
		if counts[k] < 0 {
			return nil, fmt.Errorf("domain: negative element count %d", counts[k])
		}
		if counts[k] == 0 {
			break
		}
		dim = k + 1
	}
	if dim == 0 {
		return nil, fmt.Errorf("domain: box needs at least one element along xi1")
	}

	r := NewRegion()
	var n [3]int
	for k := 0; k < 3; k++ {
		if k < dim {
			n[k] = counts[k] + 1
		} else {
			n[k] = 1
		}
	}
	nodeID := func(i, j, k int) ID {
		return ID(1 + i + j*n[0] + k*n[0]*n[1])
	}
	for k := 0; k < n[2]; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				pos := [3]float64{
					size[0] * frac(i, counts[0]),
					size[1] * frac(j, counts[1]),
					size[2] * frac(k, counts[2]),
				}
				if err := r.AddNode(nodeID(i, j, k), pos); err != nil {
					return nil, err
				}
			}
		}
	}

	var cells [3]int
	for k := 0; k < 3; k++ {
		cells[k] = max(counts[k], 1)
		if k >= dim {
			cells[k] = 1
		}
	}
	next := ID(1)
	for k := 0; k < cells[2]; k++ {
		for j := 0; j < cells[1]; j++ {
			for i := 0; i < cells[0]; i++ {
				var nodes []ID
				for c := 0; c < 1<<dim; c++ {
					di, dj, dk := c&1, (c>>1)&1, (c>>2)&1
					nodes = append(nodes, nodeID(i+di, j+dj, k+dk))
				}
				if err := r.AddElement(Entity{ID: next, Dimension: dim, Nodes: nodes}); err != nil {
					return nil, err
				}
				next++
			}
		}
	}
	if err := r.DefineFaces(); err != nil {
		return nil, err
	}
	return r, nil
}
