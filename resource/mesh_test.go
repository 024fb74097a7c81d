package resource

import (
	"math"
	"testing"
)

func TestNewCubeCounts(t *testing.T) {
	vertices, indices := NewCube()
	if len(vertices) != 24 {
		t.Errorf("cube has %d vertices, want 24", len(vertices))
	}
	if len(indices) != 36 {
		t.Errorf("cube has %d indices, want 36", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestNewCubeNormalsAreUnit(t *testing.T) {
	vertices, _ := NewCube()
	for i, v := range vertices {
		if l := v.Normal.Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Errorf("vertex %d normal length %f", i, l)
		}
	}
}

func TestNewSphereCounts(t *testing.T) {
	vertices, indices := NewSphere(16, 32)
	if len(vertices) != 561 {
		t.Errorf("sphere has %d vertices, want 561", len(vertices))
	}
	if len(indices) != 3072 {
		t.Errorf("sphere has %d indices, want 3072", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestNewSphereLiesOnUnitSphere(t *testing.T) {
	vertices, _ := NewSphere(8, 8)
	for i, v := range vertices {
		if l := v.Pos.Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Errorf("vertex %d radius %f", i, l)
		}
		if v.Normal != v.Pos {
			t.Errorf("vertex %d normal differs from position", i)
		}
	}
}
