// Package mesh decodes untrusted uploaded model files into triangulated
// solids. Each supported format runs an ordered chain of decode strategies;
// the first success wins and no partial mesh is ever returned.
package mesh

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/hschendel/stl"

	"printquote/internal/geometry"
	perrors "printquote/pkg/errors"
)

// strategy is one pure bytes-to-mesh decode attempt.
type strategy struct {
	name   string
	decode func(data []byte) (*geometry.TriangleMesh, error)
}

// Decode turns raw upload bytes into a triangulated solid, dispatching on the
// declared filename extension only (case-insensitive). No magic-byte sniffing
// is performed.
func Decode(data []byte, filename string) (*geometry.TriangleMesh, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	switch ext {
	case ".stl":
		return runChain(data, []strategy{
			{name: "stl", decode: decodeSTL},
		})
	case ".3mf":
		return runChain(data, []strategy{
			{name: "3mf-opc", decode: decode3MFStrict},
			{name: "3mf-scan", decode: decode3MFLenient},
		})
	default:
		return nil, perrors.Newf(perrors.ErrCodeUnsupportedFormat, "only .stl or .3mf supported, got %q", ext)
	}
}

// runChain tries each strategy in order. On total failure the last error is
// surfaced (it comes from the most lenient strategy) with earlier attempts
// attached for diagnostics.
func runChain(data []byte, chain []strategy) (*geometry.TriangleMesh, error) {
	var errs []error
	for _, s := range chain {
		m, err := s.decode(data)
		if err == nil {
			return m, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	last := errs[len(errs)-1]
	if len(errs) > 1 {
		return nil, fmt.Errorf("%w (previous attempts: %v)", last, errors.Join(errs[:len(errs)-1]...))
	}
	return nil, last
}

// decodeSTL delegates to the general-purpose STL reader, which handles both
// the binary and ASCII encodings, then normalizes the triangle soup into an
// indexed mesh.
func decodeSTL(data []byte) (*geometry.TriangleMesh, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, perrors.New(perrors.ErrCodeEmptyScene, "empty 3D scene")
	}
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, perrors.Newf(perrors.ErrCodeParseFailed, "read stl: %v", err)
	}
	if len(solid.Triangles) == 0 {
		return nil, perrors.New(perrors.ErrCodeEmptyScene, "empty 3D scene")
	}

	vertices := make([]geometry.Vec3, 0, len(solid.Triangles)*3)
	faces := make([][3]int, 0, len(solid.Triangles))
	for _, t := range solid.Triangles {
		var face [3]int
		for k, v := range t.Vertices {
			x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
			if !finite(x) || !finite(y) || !finite(z) {
				return nil, perrors.New(perrors.ErrCodeUnsupportedMeshType, "non-finite vertex coordinate")
			}
			face[k] = len(vertices)
			vertices = append(vertices, geometry.Vec3{x, y, z})
		}
		faces = append(faces, face)
	}

	m, err := geometry.NewTriangleMesh(vertices, faces)
	if err != nil {
		return nil, perrors.Newf(perrors.ErrCodeParseFailed, "build mesh: %v", err)
	}
	if len(m.Faces) == 0 {
		return nil, perrors.New(perrors.ErrCodeUnsupportedMeshType, "not a triangulated solid")
	}
	return m, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
