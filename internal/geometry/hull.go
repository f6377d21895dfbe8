package geometry

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
	quickhull "github.com/markus-wa/quickhull-go/v2"
)

// convexHullVolume computes the volume of the convex hull of the vertex
// cloud. It is the fallback for meshes that are not watertight.
func convexHullVolume(vertices []Vec3) (float64, error) {
	if len(vertices) < 4 {
		return 0, errors.New("not enough vertices for a convex hull")
	}
	points := make([]r3.Vector, len(vertices))
	for i, v := range vertices {
		points[i] = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	}

	hull := new(quickhull.QuickHull).ConvexHull(points, true, false, 0)
	if len(hull.Indices) < 3 || len(hull.Indices)%3 != 0 {
		return 0, errors.New("degenerate convex hull")
	}

	var vol float64
	for i := 0; i+2 < len(hull.Indices); i += 3 {
		a := hull.Vertices[hull.Indices[i]]
		b := hull.Vertices[hull.Indices[i+1]]
		c := hull.Vertices[hull.Indices[i+2]]
		vol += a.Dot(b.Cross(c)) / 6.0
	}
	return math.Abs(vol), nil
}
