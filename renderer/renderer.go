// Package renderer is the engine facade. It owns the device, the
// resource and shader managers, the render pipeline and the scene
// renderer, initializes them in dependency order and tears them down
// in reverse.
package renderer

import (
	"fmt"
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/pipeline"
	"github.com/lumen3d/lumen/resource"
	"github.com/lumen3d/lumen/scene"
	"github.com/lumen3d/lumen/shader"
)

// Stats is the per-frame snapshot the facade exposes
type Stats struct {
	FrameTime time.Duration
	FPS       float64

	DrawCalls       uint64
	Triangles       uint64
	Vertices        uint64
	CulledObjects   int
	LightsProcessed int

	MemoryUsed  uint64
	MemoryTotal uint64
}

// New creates a renderer for the configured backend. Initialize must
// be called before rendering.
func New(cfg core.Configuration) (*Renderer, error) {
	api, err := device.ParseAPI(cfg.Device.Backend)
	if err != nil {
		return nil, err
	}
	dev, err := device.New(api, device.Config{
		DebugMode:    cfg.Device.DebugMode,
		Extensions:   cfg.Device.Extensions,
		Layers:       cfg.Device.Layers,
		MemoryBudget: cfg.Device.MemoryBudget,
	})
	if err != nil {
		return nil, err
	}

	return &Renderer{
		cfg: cfg,
		log: log.WithField("component", "renderer"),
		dev: dev,
	}, nil
}

// Renderer wires the engine together behind one surface. A host drives
// it from a single render thread.
type Renderer struct {
	cfg core.Configuration
	log *log.Entry

	dev       device.Device
	resources *resource.Manager
	shaders   *shader.Manager
	pipeline  *pipeline.Pipeline
	scene     *scene.Renderer

	initialized bool
	frameTimer  core.FrameTimer
	stats       Stats
}

// Initialize brings the subsystems up in dependency order: device,
// resources, shaders, pipeline, scene. A failure tears down whatever
// already started and reports the stage that failed.
func (r *Renderer) Initialize(window uintptr, width, height uint32) error {
	if r.initialized {
		return nil
	}

	r.cfg.Renderer.ScreenWidth = width
	r.cfg.Renderer.ScreenHeight = height
	if err := r.dev.Initialize(window, width, height); err != nil {
		return fmt.Errorf("device: %w", err)
	}

	r.resources = resource.NewManager(r.dev)
	if err := r.resources.Initialize(); err != nil {
		r.dev.Shutdown()
		return fmt.Errorf("resources: %w", err)
	}

	r.shaders = shader.NewManager(r.dev)
	if err := r.shaders.Initialize(); err != nil {
		r.resources.Shutdown()
		r.dev.Shutdown()
		return fmt.Errorf("shaders: %w", err)
	}
	if dir := r.cfg.Renderer.ShaderDirectory; dir != "" {
		if loaded, err := r.shaders.LoadDirectory(dir); err != nil {
			r.log.Errorf("shader directory %s: %v", dir, err)
		} else if loaded > 0 {
			r.log.Infof("loaded %d shaders from %s", loaded, dir)
		}
	}

	r.pipeline = pipeline.NewPipeline(r.dev, r.shaders)
	r.scene = scene.NewRenderer(r.pipeline)
	r.scene.SetFrustumCulling(r.cfg.Renderer.FrustumCulling)
	r.scene.SetSortByDistance(r.cfg.Renderer.SortByDistance)
	r.scene.SetSortByMaterial(r.cfg.Renderer.SortByMaterial)

	r.initialized = true
	r.log.Infof("renderer initialized (%dx%d, backend=%s)",
		width, height, r.cfg.Device.Backend)
	return nil
}

// Initialized reports whether Initialize has succeeded
func (r *Renderer) Initialized() bool {
	return r.initialized
}

// BeginFrame opens a device frame and clears to the default color
func (r *Renderer) BeginFrame() error {
	if !r.initialized {
		return device.ErrNotInitialized
	}
	if err := r.dev.BeginFrame(); err != nil {
		return err
	}
	r.dev.Clear(glm.Vec4{0.2, 0.3, 0.4, 1.0})
	r.stats.DrawCalls = 0
	r.stats.Triangles = 0
	r.stats.Vertices = 0
	r.stats.CulledObjects = 0
	r.stats.LightsProcessed = 0
	return nil
}

// EndFrame presents the frame and refreshes the frame statistics
func (r *Renderer) EndFrame() error {
	if !r.initialized {
		return device.ErrNotInitialized
	}
	if err := r.dev.EndFrame(); err != nil {
		return err
	}

	delta := r.frameTimer.Tick()
	r.stats.FrameTime = delta
	if delta > 0 {
		r.stats.FPS = float64(time.Second) / float64(delta)
	}
	r.stats.MemoryUsed, r.stats.MemoryTotal = r.dev.MemoryUsage()
	return nil
}

// RenderScene draws one frame of src through the scene renderer and
// merges its statistics into the frame stats
func (r *Renderer) RenderScene(src scene.Source, cam scene.Camera) error {
	if !r.initialized {
		return device.ErrNotInitialized
	}
	sceneStats, err := r.scene.RenderScene(src, cam)
	if err != nil {
		return err
	}
	r.stats.DrawCalls += sceneStats.DrawCalls
	r.stats.Triangles += sceneStats.Triangles
	r.stats.Vertices += sceneStats.Vertices
	r.stats.CulledObjects += sceneStats.CulledObjects
	r.stats.LightsProcessed += sceneStats.LightsProcessed
	return nil
}

// CheckHotReload recompiles changed shader files. Call it between
// frames only.
func (r *Renderer) CheckHotReload() (int, error) {
	if !r.initialized {
		return 0, device.ErrNotInitialized
	}
	return r.shaders.CheckHotReload()
}

// ResizeViewport resizes the render target
func (r *Renderer) ResizeViewport(width, height uint32) {
	if !r.initialized {
		return
	}
	r.cfg.Renderer.ScreenWidth = width
	r.cfg.Renderer.ScreenHeight = height
	r.pipeline.ResizeViewport(width, height)
}

// Stats returns the latest frame statistics
func (r *Renderer) Stats() Stats {
	return r.stats
}

// DeviceInfo returns the device snapshot
func (r *Renderer) DeviceInfo() (device.Info, error) {
	return r.dev.Info()
}

// LoadShader compiles inline shader source
func (r *Renderer) LoadShader(name, source string, stage device.ShaderStage) error {
	return r.shaders.Load(name, source, stage)
}

// LoadShaderFile compiles a shader file and watches it for hot reload
func (r *Renderer) LoadShaderFile(name, path string, stage device.ShaderStage) error {
	return r.shaders.LoadFile(name, path, stage)
}

// CreateProgram links compiled shaders into a program
func (r *Renderer) CreateProgram(name string, shaderNames []string) error {
	return r.shaders.CreateProgram(name, shaderNames)
}

// LoadTexture loads an image file into the texture cache
func (r *Renderer) LoadTexture(name, path string) error {
	return r.resources.LoadTexture(name, path)
}

// LoadTextureArchive loads every image in a pak archive
func (r *Renderer) LoadTextureArchive(path string) (int, error) {
	return r.resources.LoadTextureArchive(path)
}

// LoadMesh loads a mesh file into the mesh cache
func (r *Renderer) LoadMesh(name, path string) error {
	return r.resources.LoadMesh(name, path)
}

// CreateMaterial stores a named material
func (r *Renderer) CreateMaterial(name string, properties resource.Material) {
	r.resources.CreateMaterial(name, properties)
}

// Resources exposes the resource manager
func (r *Renderer) Resources() *resource.Manager {
	return r.resources
}

// Shaders exposes the shader manager
func (r *Renderer) Shaders() *shader.Manager {
	return r.shaders
}

// Pipeline exposes the render pipeline
func (r *Renderer) Pipeline() *pipeline.Pipeline {
	return r.pipeline
}

// Scene exposes the scene renderer
func (r *Renderer) Scene() *scene.Renderer {
	return r.scene
}

// Shutdown tears the subsystems down in reverse initialization order.
// Idempotent.
func (r *Renderer) Shutdown() error {
	if !r.initialized {
		return nil
	}
	r.initialized = false

	if err := r.shaders.Shutdown(); err != nil {
		r.log.Errorf("shader shutdown: %v", err)
	}
	if err := r.resources.Shutdown(); err != nil {
		r.log.Errorf("resource shutdown: %v", err)
	}
	if err := r.dev.Shutdown(); err != nil {
		return fmt.Errorf("device: %w", err)
	}

	r.log.Info("renderer shut down")
	return nil
}
