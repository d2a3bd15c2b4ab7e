// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/fieldviz/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution used when a caller
// passes a non-positive cell count.
const DefaultMeshCells = 64

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box centred on the origin.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centred on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder along Z centred on the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(s), nil
}

// Cone creates a truncated cone along Z centred on the origin, with
// bottomRadius at -height/2.
func (k *SdfxKernel) Cone(height, bottomRadius, topRadius float64) (kernel.Solid, error) {
	s, err := sdf.Cone3D(height, bottomRadius, topRadius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cone: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	return triangulate(unwrap(s), cells), nil
}

// IsoSurface extracts the zero set of f with marching cubes. The
// renderer pads the box slightly, so samples are clamped back into it.
func (k *SdfxKernel) IsoSurface(f kernel.ScalarFunc, min, max [3]float64, cells int) (*kernel.Mesh, error) {
	for i := 0; i < 3; i++ {
		if !(max[i] > min[i]) {
			return nil, fmt.Errorf("sdfx: iso-surface box is degenerate along axis %d", i)
		}
	}
	s := &scalarSDF{
		f:   f,
		box: sdf.Box3{Min: v3.Vec{X: min[0], Y: min[1], Z: min[2]}, Max: v3.Vec{X: max[0], Y: max[1], Z: max[2]}},
	}
	return triangulate(s, cells), nil
}

// scalarSDF adapts a scalar function to sdf.SDF3.
type scalarSDF struct {
	f   kernel.ScalarFunc
	box sdf.Box3
}

func (s *scalarSDF) Evaluate(p v3.Vec) float64 {
	q := [3]float64{
		clamp(p.X, s.box.Min.X, s.box.Max.X),
		clamp(p.Y, s.box.Min.Y, s.box.Max.Y),
		clamp(p.Z, s.box.Min.Z, s.box.Max.Z),
	}
	return s.f(q)
}

func (s *scalarSDF) BoundingBox() sdf.Box3 {
	return s.box
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func triangulate(s sdf.SDF3, cells int) *kernel.Mesh {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for _, tri := range triangles {
		n := tri.Normal()
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsNaN(n.Z) {
			continue
		}
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			indices = append(indices, uint32(len(vertices)/3))
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
}
