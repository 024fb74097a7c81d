package scene

import (
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Frustum is six view-frustum planes as (a, b, c, d) with the normal
// pointing inward: left, right, bottom, top, near, far.
type Frustum [6]glm.Vec4

// FrustumFromMatrix extracts the planes from a combined
// projection*view matrix using the Gribb-Hartmann row combinations.
// Planes are normalized so plane-point distances are in world units.
func FrustumFromMatrix(vp glm.Mat4) Frustum {
	row := func(i int) glm.Vec4 {
		return glm.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	f[0] = normalizePlane(r3.Add(r0)) // left
	f[1] = normalizePlane(r3.Sub(r0)) // right
	f[2] = normalizePlane(r3.Add(r1)) // bottom
	f[3] = normalizePlane(r3.Sub(r1)) // top
	f[4] = normalizePlane(r3.Add(r2)) // near
	f[5] = normalizePlane(r3.Sub(r2)) // far
	return f
}

func normalizePlane(p glm.Vec4) glm.Vec4 {
	length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
	if length == 0 {
		return p
	}
	return p.Mul(1 / length)
}

// Contains reports whether the sphere intersects the frustum. A sphere
// fully behind any plane is outside; spheres that straddle a plane are
// kept, false positives are acceptable, false negatives are not.
func (f Frustum) Contains(s Sphere) bool {
	for _, p := range f {
		dist := p[0]*s.Center[0] + p[1]*s.Center[1] + p[2]*s.Center[2] + p[3]
		if dist < -s.Radius {
			return false
		}
	}
	return true
}
