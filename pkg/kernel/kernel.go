// Package kernel defines the geometry kernel used to build glyph solids
// and to extract iso-surfaces from scalar functions. The sdfx subpackage
// provides the implementation used by the build pipeline.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// ScalarFunc is sampled by IsoSurface. The surface is extracted where it
// crosses zero; negative values are inside.
type ScalarFunc func(p [3]float64) float64

// Kernel builds solids and converts them to triangle meshes. Primitives
// are centred on the origin; cylinders and cones run along Z.
type Kernel interface {
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Cone(height, bottomRadius, topRadius float64) (Solid, error)

	Union(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates a solid with cells marching cubes cells along the
	// longest side of its bounding box.
	ToMesh(s Solid, cells int) (*Mesh, error)

	// IsoSurface extracts the zero set of f inside the box [min, max].
	// f is never sampled outside the box.
	IsoSurface(f ScalarFunc, min, max [3]float64, cells int) (*Mesh, error)
}
