// Package scene renders a frame's worth of objects through the render
// pipeline: extract from a source, cull against the camera frustum,
// sort, dispatch per pass.
package scene

import (
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/resource"
)

// Sphere is a bounding sphere in world space
type Sphere struct {
	Center glm.Vec3
	Radius float32
}

// Object is one renderable extracted for the current frame
type Object struct {
	Mesh         *resource.Mesh
	Material     resource.Material
	MaterialName string
	Transform    glm.Mat4

	// Distance is the view-space distance used for sorting
	Distance    float32
	Layer       int
	Transparent bool
	Bounds      Sphere
}

// LightType classifies a light source
type LightType int

// Light types
const (
	DirectionalLight LightType = iota
	PointLight
	SpotLight
)

// Light is one light source extracted for the current frame
type Light struct {
	Type      LightType
	Position  glm.Vec3
	Direction glm.Vec3
	Color     glm.Vec3
	Intensity float32
	Range     float32

	// SpotAngle is the cone half-angle in radians, spot lights only
	SpotAngle float32
}

// Camera supplies the view of the scene
type Camera interface {
	ViewMatrix() glm.Mat4
	ProjectionMatrix() glm.Mat4
	Position() glm.Vec3
}

// Source yields the frame's renderables. Objects and Lights are called
// once per RenderScene, the returned slices are owned by the renderer
// for the duration of the frame.
type Source interface {
	Objects() []Object
	Lights() []Light
}
