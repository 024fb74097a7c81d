package renderer_test

import (
	"errors"
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/renderer"
	"github.com/lumen3d/lumen/resource"
	"github.com/lumen3d/lumen/scene"
)

func testConfiguration() core.Configuration {
	return core.Configuration{
		Device: core.DeviceConfiguration{
			Backend: "null",
		},
		Renderer: core.RendererConfiguration{
			ScreenWidth:    320,
			ScreenHeight:   240,
			SortByDistance: true,
			SortByMaterial: true,
		},
	}
}

func newTestRenderer(t *testing.T) *renderer.Renderer {
	t.Helper()
	r, err := renderer.New(testConfiguration())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize(0, 320, 240); err != nil {
		t.Fatal(err)
	}
	return r
}

type singleObjectSource struct {
	mesh *resource.Mesh
}

func (s *singleObjectSource) Objects() []scene.Object {
	return []scene.Object{{
		Mesh:      s.mesh,
		Transform: glm.Ident4(),
		Distance:  5,
	}}
}

func (s *singleObjectSource) Lights() []scene.Light {
	return []scene.Light{{Type: scene.DirectionalLight}}
}

type staticCamera struct{}

func (staticCamera) ViewMatrix() glm.Mat4 {
	return glm.LookAtV(glm.Vec3{0, 0, 5}, glm.Vec3{0, 0, 0}, glm.Vec3{0, 1, 0})
}
func (staticCamera) ProjectionMatrix() glm.Mat4 {
	return glm.Perspective(glm.DegToRad(60), 4.0/3.0, 0.1, 100)
}
func (staticCamera) Position() glm.Vec3 { return glm.Vec3{0, 0, 5} }

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testConfiguration()
	cfg.Device.Backend = "metal"

	if _, err := renderer.New(cfg); !errors.Is(err, device.ErrUnsupportedAPI) {
		t.Errorf("got %v, want ErrUnsupportedAPI", err)
	}
}

func TestInitializeBringsSubsystemsUp(t *testing.T) {
	r := newTestRenderer(t)
	defer r.Shutdown()

	if !r.Initialized() {
		t.Fatal("renderer not initialized")
	}
	if _, ok := r.Resources().Mesh(resource.DefaultCubeMesh); !ok {
		t.Error("default resources missing")
	}
	if _, ok := r.Shaders().Program("default"); !ok {
		t.Error("default program missing")
	}
	if info, err := r.DeviceInfo(); err != nil || info.Name == "" {
		t.Errorf("DeviceInfo = (%+v, %v)", info, err)
	}

	// Initialize again is a no-op.
	if err := r.Initialize(0, 320, 240); err != nil {
		t.Errorf("second initialize: %v", err)
	}
}

func TestFrameCycleAndStats(t *testing.T) {
	r := newTestRenderer(t)
	defer r.Shutdown()

	cube, _ := r.Resources().Mesh(resource.DefaultCubeMesh)
	src := &singleObjectSource{mesh: cube}

	for frame := 0; frame < 3; frame++ {
		if err := r.BeginFrame(); err != nil {
			t.Fatal(err)
		}
		if err := r.RenderScene(src, staticCamera{}); err != nil {
			t.Fatal(err)
		}
		if err := r.EndFrame(); err != nil {
			t.Fatal(err)
		}
	}

	stats := r.Stats()
	if stats.DrawCalls != 1 {
		t.Errorf("DrawCalls = %d, want 1", stats.DrawCalls)
	}
	if stats.Triangles != 12 {
		t.Errorf("Triangles = %d, want 12", stats.Triangles)
	}
	if stats.LightsProcessed != 1 {
		t.Errorf("LightsProcessed = %d, want 1", stats.LightsProcessed)
	}
	if stats.FPS <= 0 {
		t.Errorf("FPS = %f, want > 0", stats.FPS)
	}
	if stats.MemoryUsed == 0 || stats.MemoryTotal == 0 {
		t.Errorf("memory stats = (%d, %d)", stats.MemoryUsed, stats.MemoryTotal)
	}
}

func TestRenderBeforeInitialize(t *testing.T) {
	r, err := renderer.New(testConfiguration())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.BeginFrame(); !errors.Is(err, device.ErrNotInitialized) {
		t.Errorf("BeginFrame: got %v, want ErrNotInitialized", err)
	}
	if _, err := r.CheckHotReload(); !errors.Is(err, device.ErrNotInitialized) {
		t.Errorf("CheckHotReload: got %v, want ErrNotInitialized", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	r := newTestRenderer(t)

	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if r.Initialized() {
		t.Error("renderer still initialized")
	}
	if err := r.Shutdown(); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
	if err := r.BeginFrame(); !errors.Is(err, device.ErrNotInitialized) {
		t.Errorf("BeginFrame after shutdown: got %v, want ErrNotInitialized", err)
	}
}

func TestLoadShaderThroughFacade(t *testing.T) {
	r := newTestRenderer(t)
	defer r.Shutdown()

	source := "float4 main() : SV_TARGET { return float4(0, 0, 0, 1); }"
	if err := r.LoadShader("post", source, device.PixelStage); err != nil {
		t.Fatal(err)
	}
	if err := r.CreateProgram("post", []string{"post"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Shaders().Program("post"); !ok {
		t.Error("program missing after facade load")
	}
}
