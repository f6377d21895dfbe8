// Package geometry provides the triangulated-solid representation and the
// bounding-box/volume measurement used by the estimation pipeline.
package geometry

import "fmt"

// Vec3 is a point or vector in model space (millimeters).
type Vec3 [3]float64

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// TriangleMesh is an indexed triangle soup. Construction through
// NewTriangleMesh guarantees in-range face indices, deduplicated vertices,
// and no degenerate faces.
type TriangleMesh struct {
	Vertices []Vec3
	Faces    [][3]int
}

// NewTriangleMesh builds a mesh from raw vertex and face-index arrays,
// deduplicating identical vertices and dropping faces that reference the
// same vertex twice. Faces with out-of-range indices are an error.
func NewTriangleMesh(vertices []Vec3, faces [][3]int) (*TriangleMesh, error) {
	remap := make([]int, len(vertices))
	index := make(map[Vec3]int, len(vertices))
	deduped := make([]Vec3, 0, len(vertices))
	for i, v := range vertices {
		if j, ok := index[v]; ok {
			remap[i] = j
			continue
		}
		index[v] = len(deduped)
		remap[i] = len(deduped)
		deduped = append(deduped, v)
	}

	outFaces := make([][3]int, 0, len(faces))
	for fi, f := range faces {
		var mapped [3]int
		for k, vi := range f {
			if vi < 0 || vi >= len(vertices) {
				return nil, fmt.Errorf("face %d references vertex %d out of range [0,%d)", fi, vi, len(vertices))
			}
			mapped[k] = remap[vi]
		}
		if mapped[0] == mapped[1] || mapped[1] == mapped[2] || mapped[0] == mapped[2] {
			continue // degenerate
		}
		outFaces = append(outFaces, mapped)
	}

	return &TriangleMesh{Vertices: deduped, Faces: outFaces}, nil
}

// BoundingBox returns the per-axis minimum and maximum vertex coordinates.
func (m *TriangleMesh) BoundingBox() (min, max Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for a := 0; a < 3; a++ {
			if v[a] < min[a] {
				min[a] = v[a]
			}
			if v[a] > max[a] {
				max[a] = v[a]
			}
		}
	}
	return min, max
}

// IsWatertight reports whether the surface is closed and consistently
// oriented: every directed edge appears exactly once and is matched by its
// reverse.
func (m *TriangleMesh) IsWatertight() bool {
	if len(m.Faces) == 0 {
		return false
	}
	type edge struct{ a, b int }
	counts := make(map[edge]int, len(m.Faces)*3)
	for _, f := range m.Faces {
		counts[edge{f[0], f[1]}]++
		counts[edge{f[1], f[2]}]++
		counts[edge{f[2], f[0]}]++
	}
	for e, n := range counts {
		if n != 1 {
			return false
		}
		if counts[edge{e.b, e.a}] != 1 {
			return false
		}
	}
	return true
}

// SignedVolume computes the enclosed volume by the divergence theorem.
// It is positive for a closed surface with outward-oriented faces and
// meaningless for open surfaces.
func (m *TriangleMesh) SignedVolume() float64 {
	var vol float64
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		vol += a.Dot(b.Cross(c)) / 6.0
	}
	return vol
}
