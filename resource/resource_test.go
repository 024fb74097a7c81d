package resource_test

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/resource"
)

func newTestManager(t *testing.T) (*resource.Manager, *device.NullDevice) {
	t.Helper()
	dev := device.NewNull(device.Config{})
	if err := dev.Initialize(0, 256, 256); err != nil {
		t.Fatal(err)
	}
	m := resource.NewManager(dev)
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	return m, dev
}

func writeTestPNG(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	path := filepath.Join(dir, "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitializeCreatesDefaults(t *testing.T) {
	m, _ := newTestManager(t)

	if _, ok := m.Texture(resource.DefaultWhiteTexture); !ok {
		t.Error("default white texture missing")
	}

	cube, ok := m.Mesh(resource.DefaultCubeMesh)
	if !ok {
		t.Fatal("default cube missing")
	}
	if cube.VertexCount != 24 || cube.IndexCount != 36 {
		t.Errorf("cube = %d vertices / %d indices, want 24/36", cube.VertexCount, cube.IndexCount)
	}

	sphere, ok := m.Mesh(resource.DefaultSphereMesh)
	if !ok {
		t.Fatal("default sphere missing")
	}
	if sphere.VertexCount != 561 || sphere.IndexCount != 3072 {
		t.Errorf("sphere = %d vertices / %d indices, want 561/3072", sphere.VertexCount, sphere.IndexCount)
	}
}

func TestLoadTexture(t *testing.T) {
	m, _ := newTestManager(t)
	path := writeTestPNG(t, t.TempDir(), 16, 8)

	if err := m.LoadTexture("grid", path); err != nil {
		t.Fatal(err)
	}
	tex, ok := m.Texture("grid")
	if !ok {
		t.Fatal("texture missing after load")
	}
	if tex.Width != 16 || tex.Height != 8 {
		t.Errorf("texture is %dx%d, want 16x8", tex.Width, tex.Height)
	}
}

func TestLoadTextureMissingFile(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.LoadTexture("nope", "/does/not/exist.png")
	if !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadTextureReplaceReleasesOldHandle(t *testing.T) {
	m, dev := newTestManager(t)
	path := writeTestPNG(t, t.TempDir(), 8, 8)

	if err := m.LoadTexture("grid", path); err != nil {
		t.Fatal(err)
	}
	first, _ := m.Texture("grid")
	before := dev.Releases()

	if err := m.LoadTexture("grid", path); err != nil {
		t.Fatal(err)
	}
	second, _ := m.Texture("grid")

	if dev.Releases() != before+1 {
		t.Errorf("releases = %d, want %d", dev.Releases(), before+1)
	}
	if first.Handle == second.Handle {
		t.Error("replacement kept the old handle")
	}
	if err := dev.Release(first.Handle); !errors.Is(err, device.ErrInvalidHandle) {
		t.Errorf("old handle still live: %v", err)
	}
}

func TestLoadMeshNotImplemented(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.LoadMesh("x", "/does/not/exist.dae"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("missing file: got %v, want ErrNotFound", err)
	}

	path := filepath.Join(t.TempDir(), "mesh.dae")
	if err := os.WriteFile(path, []byte("<COLLADA/>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadMesh("x", path); !errors.Is(err, resource.ErrNotImplemented) {
		t.Errorf("existing file: got %v, want ErrNotImplemented", err)
	}
}

func TestCreateMaterialAndCounts(t *testing.T) {
	m, _ := newTestManager(t)

	m.CreateMaterial("metal", resource.Material{"roughness": 0.2})
	mat, ok := m.Material("metal")
	if !ok {
		t.Fatal("material missing")
	}
	if mat["roughness"] != 0.2 {
		t.Errorf("roughness = %v", mat["roughness"])
	}

	counts := m.Counts()
	if counts.Textures != 1 || counts.Meshes != 2 || counts.Materials != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestClearCacheReleasesEverything(t *testing.T) {
	m, dev := newTestManager(t)

	m.ClearCache()
	if counts := m.Counts(); counts.Textures != 0 || counts.Meshes != 0 {
		t.Errorf("cache not empty after clear: %+v", counts)
	}
	if used, _ := dev.MemoryUsage(); used != 0 {
		t.Errorf("device memory still used after clear: %d", used)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}
