package geometry

import (
	perrors "printquote/pkg/errors"
)

// Measurement is the request-scoped result of measuring one mesh.
type Measurement struct {
	BBoxMM      Vec3    // per-axis extents in millimeters
	VolumeMM3   float64 // enclosed volume in cubic millimeters
	Approximate bool    // true when the volume came from the convex hull
}

// Measure computes bounding-box extents and volume. Watertight meshes use
// the signed-volume computation directly; anything else falls back to the
// convex hull of the vertex cloud, flagged as an approximation. Uploaded
// meshes are frequently non-manifold, so the fallback trades precision for
// robustness rather than failing the request.
func Measure(m *TriangleMesh) (Measurement, error) {
	if len(m.Vertices) == 0 {
		return Measurement{}, perrors.New(perrors.ErrCodeVolumeUnavailable, "mesh has no vertices")
	}

	min, max := m.BoundingBox()
	result := Measurement{BBoxMM: max.Sub(min)}

	var vol float64
	if m.IsWatertight() {
		vol = m.SignedVolume()
	}
	if vol <= 0 {
		hullVol, err := convexHullVolume(m.Vertices)
		if err != nil || hullVol <= 0 {
			return Measurement{}, perrors.New(perrors.ErrCodeVolumeUnavailable, "mesh volume could not be estimated")
		}
		vol = hullVol
		result.Approximate = true
	}
	result.VolumeMM3 = vol
	return result, nil
}
