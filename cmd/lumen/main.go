package main

import (
	"runtime"
	"strconv"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/renderer"
	"github.com/lumen3d/lumen/resource"
	"github.com/lumen3d/lumen/scene"
)

func init() {
	runtime.LockOSThread()
}

// shaderBox embeds the bundled shader sources into the binary
var shaderBox = packr.NewBox("../../assets/shaders")

func configuration() core.Configuration {
	width, _ := strconv.Atoi(envy.Get("LUMEN_WIDTH", "800"))
	height, _ := strconv.Atoi(envy.Get("LUMEN_HEIGHT", "600"))
	fps, _ := strconv.Atoi(envy.Get("LUMEN_FPS", "60"))

	return core.Configuration{
		Time: core.TimeConfiguration{
			FramesPerSecond: fps,
		},
		Device: core.DeviceConfiguration{
			Backend:   envy.Get("LUMEN_BACKEND", "null"),
			DebugMode: envy.Get("LUMEN_DEBUG", "") != "",
		},
		Renderer: core.RendererConfiguration{
			ScreenWidth:     uint32(width),
			ScreenHeight:    uint32(height),
			SwapchainSize:   3,
			ShaderDirectory: envy.Get("LUMEN_SHADER_DIR", ""),
			SortByDistance:  true,
			SortByMaterial:  true,
		},
	}
}

// staticScene renders the built-in meshes with a fixed layout
type staticScene struct {
	objects []scene.Object
}

func (s *staticScene) Objects() []scene.Object { return s.objects }

func (s *staticScene) Lights() []scene.Light {
	return []scene.Light{{
		Type:      scene.DirectionalLight,
		Direction: glm.Vec3{-0.5, -1, -0.3},
		Color:     glm.Vec3{1, 1, 1},
		Intensity: 1,
	}}
}

// lookCamera implements scene.Camera
type lookCamera struct {
	position glm.Vec3
	target   glm.Vec3
	aspect   float32
}

func (c *lookCamera) ViewMatrix() glm.Mat4 {
	return glm.LookAtV(c.position, c.target, glm.Vec3{0, 1, 0})
}

func (c *lookCamera) ProjectionMatrix() glm.Mat4 {
	return glm.Perspective(glm.DegToRad(60), c.aspect, 0.1, 100)
}

func (c *lookCamera) Position() glm.Vec3 { return c.position }

func buildScene(r *renderer.Renderer) *staticScene {
	cube, _ := r.Resources().Mesh(resource.DefaultCubeMesh)
	sphere, _ := r.Resources().Mesh(resource.DefaultSphereMesh)

	return &staticScene{objects: []scene.Object{
		{
			Mesh:         cube,
			MaterialName: "default",
			Transform:    glm.Translate3D(-2, 0, 0),
			Distance:     8,
			Bounds:       scene.Sphere{Center: glm.Vec3{-2, 0, 0}, Radius: 1.8},
		},
		{
			Mesh:         sphere,
			MaterialName: "default",
			Transform:    glm.Translate3D(2, 0, 0),
			Distance:     8,
			Bounds:       scene.Sphere{Center: glm.Vec3{2, 0, 0}, Radius: 1},
		},
	}}
}

// loadEmbeddedShaders compiles the bundled shader sources. Files are
// named <shader>.<stage>.hlsl, anything else in the box is skipped.
func loadEmbeddedShaders(r *renderer.Renderer) {
	for _, file := range shaderBox.List() {
		nodes := strings.Split(strings.TrimSuffix(file, ".hlsl"), ".")
		if len(nodes) != 2 {
			continue
		}

		var stage device.ShaderStage
		switch nodes[1] {
		case "vert", "vertex":
			stage = device.VertexStage
		case "pixel", "frag":
			stage = device.PixelStage
		default:
			continue
		}

		source, err := shaderBox.FindString(file)
		if err != nil {
			log.Errorf("embedded shader %s: %v", file, err)
			continue
		}
		if err := r.LoadShader(nodes[0], source, stage); err != nil {
			log.Errorf("embedded shader %s: %v", file, err)
		}
	}
}

func main() {
	cfg := configuration()

	rend, err := renderer.New(cfg)
	if err != nil {
		log.Fatalf("failed to create renderer: %v", err)
	}

	var window uintptr
	if cfg.Device.Backend == "vulkan" {
		if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
			log.Fatalf("sdl init: %v", err)
		}
		defer sdl.Quit()

		if err := sdl.VulkanLoadLibrary(""); err != nil {
			log.Fatalf("vulkan library: %v", err)
		}
		defer sdl.VulkanUnloadLibrary()

		sdlWindow, err := sdl.CreateWindow("Lumen",
			sdl.WINDOWPOS_UNDEFINED,
			sdl.WINDOWPOS_UNDEFINED,
			int32(cfg.Renderer.ScreenWidth),
			int32(cfg.Renderer.ScreenHeight),
			sdl.WINDOW_VULKAN)
		if err != nil {
			log.Fatalf("sdl window: %v", err)
		}
		defer sdlWindow.Destroy()

		window = uintptr(sdl.VulkanGetVkGetInstanceProcAddr())
	} else {
		if err := sdl.Init(sdl.INIT_EVENTS); err != nil {
			log.Fatalf("sdl init: %v", err)
		}
		defer sdl.Quit()
	}

	if err := rend.Initialize(window, cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight); err != nil {
		log.Fatalf("failed to initialize renderer: %v", err)
	}
	defer rend.Shutdown()

	loadEmbeddedShaders(rend)

	src := buildScene(rend)
	cam := &lookCamera{
		position: glm.Vec3{0, 2, 8},
		target:   glm.Vec3{0, 0, 0},
		aspect:   float32(cfg.Renderer.ScreenWidth) / float32(cfg.Renderer.ScreenHeight),
	}

	clock := core.NewTime(cfg.Time)
	defer clock.Stop()
	exitC := make(chan struct{}, 2)

EventLoop:
	for {
		select {
		case <-exitC:
			log.Info("event loop exited")
			break EventLoop
		case <-clock.FpsTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						exitC <- struct{}{}
						continue EventLoop
					}
				case *sdl.QuitEvent:
					exitC <- struct{}{}
					continue EventLoop
				}
			}

			if _, err := rend.CheckHotReload(); err != nil {
				log.Errorf("hot reload: %v", err)
			}
			if err := rend.BeginFrame(); err != nil {
				log.Errorf("begin frame: %v", err)
				continue
			}
			if err := rend.RenderScene(src, cam); err != nil {
				log.Errorf("render scene: %v", err)
			}
			if err := rend.EndFrame(); err != nil {
				log.Errorf("end frame: %v", err)
			}
		}
	}

	stats := rend.Stats()
	log.WithFields(log.Fields{
		"fps":        int(stats.FPS),
		"draw_calls": stats.DrawCalls,
		"triangles":  stats.Triangles,
	}).Info("final frame stats")
}
