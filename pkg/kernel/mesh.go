package kernel

// Mesh is a triangle mesh. All arrays are flat: Vertices and Normals hold
// three floats per vertex, Indices three entries per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) [3]float32 {
	return [3]float32{m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]}
}

// Normal returns the normal of vertex i.
func (m *Mesh) Normal(i int) [3]float32 {
	return [3]float32{m.Normals[3*i], m.Normals[3*i+1], m.Normals[3*i+2]}
}
