// Package domain describes the finite-element domains that graphics are
// drawn over: nodes, elements of dimension one to three, the faces linking
// them and the groups that restrict iteration to a sub-domain.
package domain

import (
	"fmt"
	"strings"
)

// ID identifies a node or an element within its dimension.
type ID int

// Shape is the reference shape of an element. Only linear Lagrange
// shapes are supported: a line, a square and a cube.
type Shape int

const (
	ShapePoint Shape = iota
	ShapeLine
	ShapeSquare
	ShapeCube
)

// ShapeForDimension returns the shape used for elements of dimension d.
func ShapeForDimension(d int) Shape {
	switch d {
	case 1:
		return ShapeLine
	case 2:
		return ShapeSquare
	case 3:
		return ShapeCube
	default:
		return ShapePoint
	}
}

// Dimension returns the number of local xi coordinates of the shape.
func (s Shape) Dimension() int {
	return int(s)
}

// NodeCount returns the number of nodes of a linear element of this shape.
func (s Shape) NodeCount() int {
	return 1 << s.Dimension()
}

func (s Shape) String() string {
	switch s {
	case ShapePoint:
		return "point"
	case ShapeLine:
		return "line"
	case ShapeSquare:
		return "square"
	case ShapeCube:
		return "cube"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Entity is a handle to one iterated domain entity. Nodes lists the node
// identifiers in local order: xi1 varies fastest, then xi2, then xi3.
type Entity struct {
	ID        ID
	Dimension int
	Shape     Shape
	Nodes     []ID
}

// IsPoint reports whether the entity is the single entity of the abstract
// point domain.
func (e Entity) IsPoint() bool {
	return e.Dimension < 0
}

// Kind selects which entities of a region a graphic iterates over.
type Kind int

const (
	KindPoint Kind = iota
	KindNodes
	KindDatapoints
	KindMesh1D
	KindMesh2D
	KindMesh3D
	KindMeshHighest
)

var kindNames = map[Kind]string{
	KindPoint:       "point",
	KindNodes:       "nodes",
	KindDatapoints:  "datapoints",
	KindMesh1D:      "mesh1d",
	KindMesh2D:      "mesh2d",
	KindMesh3D:      "mesh3d",
	KindMeshHighest: "mesh_highest_dimension",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a name produced by Kind.String back into a Kind.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("domain: unknown domain kind %q", s)
}

// IsMesh reports whether the kind iterates elements.
func (k Kind) IsMesh() bool {
	return k >= KindMesh1D
}

// IsNodeset reports whether the kind iterates nodes or data points.
func (k Kind) IsNodeset() bool {
	return k == KindNodes || k == KindDatapoints
}

// FixedDimension returns the element dimension for the explicit mesh kinds
// and zero otherwise. KindMeshHighest depends on the region; see
// Region.Dimension.
func (k Kind) FixedDimension() int {
	switch k {
	case KindMesh1D:
		return 1
	case KindMesh2D:
		return 2
	case KindMesh3D:
		return 3
	default:
		return 0
	}
}

// FaceType restricts lower-dimensional elements to those lying on a given
// face of their top-level parent element.
type FaceType int

const (
	FaceAll FaceType = iota
	FaceXi1Zero
	FaceXi1One
	FaceXi2Zero
	FaceXi2One
	FaceXi3Zero
	FaceXi3One
)

var faceNames = []string{"all", "xi1_0", "xi1_1", "xi2_0", "xi2_1", "xi3_0", "xi3_1"}

func (f FaceType) String() string {
	if int(f) >= 0 && int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("FaceType(%d)", int(f))
}

// ParseFaceType converts a face name such as "xi3_1" to a FaceType.
func ParseFaceType(s string) (FaceType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range faceNames {
		if name == want {
			return FaceType(i), nil
		}
	}
	return 0, fmt.Errorf("domain: unknown face %q", s)
}

// localFaces lists, per shape, the local node indices of each face in the
// face's own local order. Face i lies at xi(i/2) == i%2.
var localFaces = map[Shape][][]int{
	ShapeLine:   {{0}, {1}},
	ShapeSquare: {{0, 2}, {1, 3}, {0, 1}, {2, 3}},
	ShapeCube: {
		{0, 2, 4, 6}, {1, 3, 5, 7},
		{0, 1, 4, 5}, {2, 3, 6, 7},
		{0, 1, 2, 3}, {4, 5, 6, 7},
	},
}

// FaceCount returns the number of faces of the shape.
func (s Shape) FaceCount() int {
	return len(localFaces[s])
}

// FaceNodes returns the node identifiers of face f of element e.
func FaceNodes(e Entity, f int) []ID {
	local := localFaces[e.Shape][f]
	out := make([]ID, len(local))
	for i, l := range local {
		out[i] = e.Nodes[l]
	}
	return out
}
