package model

import (
	"encoding/binary"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a mesh vertex as uploaded to vertex buffers
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	UV     glm.Vec2
}

// Stride is the packed size of one Vertex in bytes
const Stride = 8 * 4

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// Pack serializes vertices into the interleaved little-endian layout
// the vertex buffers expect: position, normal, uv
func Pack(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*Stride)
	for _, v := range vertices {
		out = appendFloats(out,
			v.Pos[0], v.Pos[1], v.Pos[2],
			v.Normal[0], v.Normal[1], v.Normal[2],
			v.UV[0], v.UV[1])
	}
	return out
}

// PackIndices serializes indices as little-endian uint32
func PackIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

func appendFloats(dst []byte, values ...float32) []byte {
	for _, f := range values {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		dst = append(dst, buf[:]...)
	}
	return dst
}
