package pipeline_test

import (
	"errors"
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/pipeline"
	"github.com/lumen3d/lumen/resource"
	"github.com/lumen3d/lumen/shader"
)

func newTestPipeline(t *testing.T) (*pipeline.Pipeline, *device.NullDevice) {
	t.Helper()
	dev := device.NewNull(device.Config{})
	if err := dev.Initialize(0, 128, 128); err != nil {
		t.Fatal(err)
	}
	shaders := shader.NewManager(dev)
	if err := shaders.Initialize(); err != nil {
		t.Fatal(err)
	}
	return pipeline.NewPipeline(dev, shaders), dev
}

func TestDefaultPassOrder(t *testing.T) {
	p, _ := newTestPipeline(t)

	want := []string{
		pipeline.PassOpaque,
		pipeline.PassTransparent,
		pipeline.PassUI,
		pipeline.PassPostProcess,
	}
	got := p.Passes()
	if len(got) != len(want) {
		t.Fatalf("pass order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pass %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBeginPassUnknown(t *testing.T) {
	p, _ := newTestPipeline(t)

	if err := p.BeginPass("shadow"); !errors.Is(err, pipeline.ErrUnknownPass) {
		t.Errorf("got %v, want ErrUnknownPass", err)
	}
}

func TestBeginPassDisabledIsNoOp(t *testing.T) {
	p, dev := newTestPipeline(t)

	dev.Clear(glm.Vec4{9, 9, 9, 9})
	if err := p.EnablePass(pipeline.PassOpaque, false); err != nil {
		t.Fatal(err)
	}
	if err := p.BeginPass(pipeline.PassOpaque); err != nil {
		t.Fatal(err)
	}

	// No clear was issued for the disabled pass.
	if got := dev.ClearColor(); got != (glm.Vec4{9, 9, 9, 9}) {
		t.Errorf("disabled pass cleared to %v", got)
	}
}

func TestBeginPassClearsWithPassColor(t *testing.T) {
	p, dev := newTestPipeline(t)

	if err := p.BeginPass(pipeline.PassOpaque); err != nil {
		t.Fatal(err)
	}
	want := glm.Vec4{0.2, 0.3, 0.4, 1.0}
	if got := dev.ClearColor(); got != want {
		t.Errorf("clear color = %v, want %v", got, want)
	}
}

func TestSetStateUnknownProgram(t *testing.T) {
	p, _ := newTestPipeline(t)

	if err := p.SetState(pipeline.State{Program: "default"}); err != nil {
		t.Fatal(err)
	}
	err := p.SetState(pipeline.State{Program: "missing"})
	if !errors.Is(err, pipeline.ErrUnknownProgram) {
		t.Fatalf("got %v, want ErrUnknownProgram", err)
	}
	if p.State().Program != "default" {
		t.Errorf("state changed on failure: %s", p.State().Program)
	}
}

func TestDrawMeshCountsAndSubmits(t *testing.T) {
	p, dev := newTestPipeline(t)

	if err := dev.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := p.BeginPass(pipeline.PassOpaque); err != nil {
		t.Fatal(err)
	}

	mesh := &resource.Mesh{VertexCount: 24, IndexCount: 36}
	if err := p.DrawMesh(mesh, nil, glm.Ident4()); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats.DrawCalls != 1 || stats.Triangles != 12 || stats.Vertices != 24 {
		t.Errorf("stats = %+v", stats)
	}

	calls := dev.DrawLog()
	if len(calls) != 1 {
		t.Fatalf("device received %d draws, want 1", len(calls))
	}
	if !calls[0].Indexed || calls[0].Count != 36 {
		t.Errorf("device call = %+v", calls[0])
	}
}

func TestBeginPassResetsCounters(t *testing.T) {
	p, dev := newTestPipeline(t)

	if err := dev.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	p.BeginPass(pipeline.PassOpaque)
	p.DrawMesh(&resource.Mesh{VertexCount: 3, IndexCount: 3}, nil, glm.Ident4())
	p.EndPass(pipeline.PassOpaque)

	p.BeginPass(pipeline.PassTransparent)
	if stats := p.Stats(); stats.DrawCalls != 0 {
		t.Errorf("counters carried across passes: %+v", stats)
	}
}

func TestRenderAllPassesSkipsDisabled(t *testing.T) {
	p, dev := newTestPipeline(t)

	if err := dev.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := p.EnablePass(pipeline.PassUI, false); err != nil {
		t.Fatal(err)
	}

	var visited []string
	err := p.RenderAllPasses(func(name string, info pipeline.PassInfo) error {
		visited = append(visited, name)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{pipeline.PassOpaque, pipeline.PassTransparent, pipeline.PassPostProcess}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %s, want %s", i, visited[i], want[i])
		}
	}
}

func TestAddRemovePass(t *testing.T) {
	p, _ := newTestPipeline(t)

	p.AddPass(pipeline.PassInfo{Name: "shadow", Type: pipeline.OpaquePass, Enabled: true})
	if _, ok := p.Pass("shadow"); !ok {
		t.Fatal("added pass missing")
	}
	if got := p.Passes(); got[len(got)-1] != "shadow" {
		t.Errorf("new pass not appended, order %v", got)
	}

	if err := p.RemovePass("shadow"); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Pass("shadow"); ok {
		t.Error("removed pass still present")
	}
	if err := p.RemovePass("shadow"); !errors.Is(err, pipeline.ErrUnknownPass) {
		t.Errorf("got %v, want ErrUnknownPass", err)
	}
}
