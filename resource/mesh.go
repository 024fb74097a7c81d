package resource

import (
	"math"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/model"
)

// NewCube generates a unit cube with per-face normals and uvs:
// 24 vertices, 36 indices, two triangles per face.
func NewCube() ([]model.Vertex, []uint32) {
	type face struct {
		normal  glm.Vec3
		corners [4]glm.Vec3
		uvs     [4]glm.Vec2
	}
	faces := []face{
		{ // front
			normal: glm.Vec3{0, 0, 1},
			corners: [4]glm.Vec3{
				{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
			},
			uvs: [4]glm.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		},
		{ // back
			normal: glm.Vec3{0, 0, -1},
			corners: [4]glm.Vec3{
				{-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {1, -1, -1},
			},
			uvs: [4]glm.Vec2{{1, 0}, {1, 1}, {0, 1}, {0, 0}},
		},
		{ // top
			normal: glm.Vec3{0, 1, 0},
			corners: [4]glm.Vec3{
				{-1, 1, -1}, {-1, 1, 1}, {1, 1, 1}, {1, 1, -1},
			},
			uvs: [4]glm.Vec2{{0, 1}, {0, 0}, {1, 0}, {1, 1}},
		},
		{ // bottom
			normal: glm.Vec3{0, -1, 0},
			corners: [4]glm.Vec3{
				{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1},
			},
			uvs: [4]glm.Vec2{{1, 1}, {0, 1}, {0, 0}, {1, 0}},
		},
		{ // right
			normal: glm.Vec3{1, 0, 0},
			corners: [4]glm.Vec3{
				{1, -1, -1}, {1, 1, -1}, {1, 1, 1}, {1, -1, 1},
			},
			uvs: [4]glm.Vec2{{1, 0}, {1, 1}, {0, 1}, {0, 0}},
		},
		{ // left
			normal: glm.Vec3{-1, 0, 0},
			corners: [4]glm.Vec3{
				{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1},
			},
			uvs: [4]glm.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		},
	}

	vertices := make([]model.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for fi, f := range faces {
		base := uint32(fi * 4)
		for ci, corner := range f.corners {
			vertices = append(vertices, model.Vertex{
				Pos:    corner,
				Normal: f.normal,
				UV:     f.uvs[ci],
			})
		}
		indices = append(indices,
			base, base+1, base+2,
			base, base+2, base+3)
	}
	return vertices, indices
}

// NewSphere generates a unit UV sphere by latitude/longitude
// subdivision: (rings+1)*(segments+1) vertices and rings*segments*6
// indices stitched as two triangles per quad. The normal of a unit
// sphere vertex equals its position.
func NewSphere(rings, segments int) ([]model.Vertex, []uint32) {
	vertices := make([]model.Vertex, 0, (rings+1)*(segments+1))
	indices := make([]uint32, 0, rings*segments*6)

	for ring := 0; ring <= rings; ring++ {
		v := float32(ring) / float32(rings)
		phi := float64(v) * math.Pi

		for segment := 0; segment <= segments; segment++ {
			u := float32(segment) / float32(segments)
			theta := float64(u) * 2 * math.Pi

			pos := glm.Vec3{
				float32(math.Cos(theta) * math.Sin(phi)),
				float32(math.Cos(phi)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			vertices = append(vertices, model.Vertex{
				Pos:    pos,
				Normal: pos,
				UV:     glm.Vec2{u, v},
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for segment := 0; segment < segments; segment++ {
			current := uint32(ring*(segments+1) + segment)
			nextRing := current + uint32(segments) + 1

			indices = append(indices,
				current, nextRing, current+1,
				current+1, nextRing, nextRing+1)
		}
	}
	return vertices, indices
}
