package scene

import (
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"
)

func testFrustum() Frustum {
	proj := glm.Perspective(glm.DegToRad(60), 1, 0.1, 100)
	view := glm.LookAtV(glm.Vec3{0, 0, 10}, glm.Vec3{0, 0, 0}, glm.Vec3{0, 1, 0})
	return FrustumFromMatrix(proj.Mul4(view))
}

func TestFrustumContainsVisibleSphere(t *testing.T) {
	f := testFrustum()

	if !f.Contains(Sphere{Center: glm.Vec3{0, 0, 0}, Radius: 1}) {
		t.Error("sphere at the look target culled")
	}
	if !f.Contains(Sphere{Center: glm.Vec3{2, 1, 3}, Radius: 0.5}) {
		t.Error("sphere inside the frustum culled")
	}
}

func TestFrustumCullsSphereBehindCamera(t *testing.T) {
	f := testFrustum()

	if f.Contains(Sphere{Center: glm.Vec3{0, 0, 20}, Radius: 1}) {
		t.Error("sphere behind the camera kept")
	}
}

func TestFrustumCullsSphereBeyondFarPlane(t *testing.T) {
	f := testFrustum()

	if f.Contains(Sphere{Center: glm.Vec3{0, 0, -200}, Radius: 1}) {
		t.Error("sphere beyond the far plane kept")
	}
}

func TestFrustumCullsSphereFarToTheSide(t *testing.T) {
	f := testFrustum()

	if f.Contains(Sphere{Center: glm.Vec3{100, 0, 0}, Radius: 1}) {
		t.Error("sphere far outside the side planes kept")
	}
}

func TestFrustumKeepsStraddlingSphere(t *testing.T) {
	f := testFrustum()

	// Center is outside the left plane but the radius reaches in.
	if !f.Contains(Sphere{Center: glm.Vec3{-8, 0, 0}, Radius: 5}) {
		t.Error("straddling sphere culled")
	}
}
