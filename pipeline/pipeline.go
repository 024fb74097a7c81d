// Package pipeline orders rendering into named passes and tracks
// per-pass render state and statistics. It owns no GPU resources, it
// drives the device and validates programs against the shader cache.
package pipeline

import (
	"errors"
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/resource"
	"github.com/lumen3d/lumen/shader"
)

// package errors
var (
	ErrUnknownPass    = errors.New("unknown render pass")
	ErrUnknownProgram = errors.New("unknown shader program")
)

// PassType classifies a render pass
type PassType int

// Pass types, in the order the default pipeline runs them
const (
	OpaquePass PassType = iota
	TransparentPass
	UIPass
	PostProcessPass
)

func (t PassType) String() string {
	switch t {
	case OpaquePass:
		return "opaque"
	case TransparentPass:
		return "transparent"
	case UIPass:
		return "ui"
	case PostProcessPass:
		return "post_process"
	}
	return "unknown"
}

// BlendMode selects how fragments combine with the framebuffer
type BlendMode int

// Blend modes
const (
	BlendOpaque BlendMode = iota
	BlendAlpha
	BlendAdditive
)

// CullMode selects which triangle faces are discarded
type CullMode int

// Cull modes
const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// FillMode selects rasterization fill
type FillMode int

// Fill modes
const (
	FillSolid FillMode = iota
	FillWireframe
)

// State is the render state applied before draws
type State struct {
	Program    string
	Blend      BlendMode
	DepthTest  bool
	DepthWrite bool
	Cull       CullMode
	Fill       FillMode
}

// PassInfo describes one render pass
type PassInfo struct {
	Name         string
	Type         PassType
	Enabled      bool
	ClearColor   glm.Vec4
	ClearDepth   float32
	ClearStencil uint8
}

// Stats counts work submitted since the last reset
type Stats struct {
	DrawCalls uint64
	Triangles uint64
	Vertices  uint64
}

// Default pass names
const (
	PassOpaque      = "opaque"
	PassTransparent = "transparent"
	PassUI          = "ui"
	PassPostProcess = "post_process"
)

// NewPipeline creates a pipeline with the four default passes in
// opaque, transparent, ui, post_process order
func NewPipeline(dev device.Device, shaders *shader.Manager) *Pipeline {
	p := &Pipeline{
		dev:     dev,
		shaders: shaders,
		log:     log.WithField("component", "pipeline"),
		passes:  make(map[string]*PassInfo),
	}
	p.addPassLocked(&PassInfo{
		Name:       PassOpaque,
		Type:       OpaquePass,
		Enabled:    true,
		ClearColor: glm.Vec4{0.2, 0.3, 0.4, 1.0},
		ClearDepth: 1.0,
	})
	p.addPassLocked(&PassInfo{
		Name:       PassTransparent,
		Type:       TransparentPass,
		Enabled:    true,
		ClearDepth: 1.0,
	})
	p.addPassLocked(&PassInfo{
		Name:       PassUI,
		Type:       UIPass,
		Enabled:    true,
		ClearDepth: 1.0,
	})
	p.addPassLocked(&PassInfo{
		Name:       PassPostProcess,
		Type:       PostProcessPass,
		Enabled:    true,
		ClearColor: glm.Vec4{0, 0, 0, 1.0},
		ClearDepth: 1.0,
	})
	return p
}

// Pipeline runs passes in insertion order. It lives on the render
// thread and is not safe for concurrent use.
type Pipeline struct {
	dev     device.Device
	shaders *shader.Manager
	log     *log.Entry

	passOrder []string
	passes    map[string]*PassInfo

	state      State
	activePass string
	stats      Stats
}

func (p *Pipeline) addPassLocked(info *PassInfo) {
	p.passes[info.Name] = info
	p.passOrder = append(p.passOrder, info.Name)
}

// AddPass appends a pass to the end of the pass order. Adding a name
// that exists replaces its definition and keeps its position.
func (p *Pipeline) AddPass(info PassInfo) {
	if _, ok := p.passes[info.Name]; ok {
		p.passes[info.Name] = &info
		return
	}
	p.addPassLocked(&info)
	p.log.Infof("added pass %s (%s)", info.Name, info.Type)
}

// RemovePass drops a pass from the order
func (p *Pipeline) RemovePass(name string) error {
	if _, ok := p.passes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPass, name)
	}
	delete(p.passes, name)
	for i, n := range p.passOrder {
		if n == name {
			p.passOrder = append(p.passOrder[:i], p.passOrder[i+1:]...)
			break
		}
	}
	return nil
}

// EnablePass toggles a pass without removing it
func (p *Pipeline) EnablePass(name string, enabled bool) error {
	info, ok := p.passes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPass, name)
	}
	info.Enabled = enabled
	return nil
}

// Pass returns a pass by name
func (p *Pipeline) Pass(name string) (PassInfo, bool) {
	info, ok := p.passes[name]
	if !ok {
		return PassInfo{}, false
	}
	return *info, true
}

// Passes returns the pass names in execution order
func (p *Pipeline) Passes() []string {
	out := make([]string, len(p.passOrder))
	copy(out, p.passOrder)
	return out
}

// BeginPass opens a pass. A disabled pass is a successful no-op: no
// clear is issued and the counters stay untouched. An enabled pass
// clears with the pass color and resets the per-pass counters.
func (p *Pipeline) BeginPass(name string) error {
	info, ok := p.passes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPass, name)
	}
	if !info.Enabled {
		return nil
	}

	p.dev.Clear(info.ClearColor)
	p.activePass = name
	p.stats = Stats{}
	return nil
}

// EndPass closes the bracket BeginPass opened
func (p *Pipeline) EndPass(name string) error {
	if _, ok := p.passes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPass, name)
	}
	if p.activePass == name {
		p.activePass = ""
	}
	return nil
}

// SetState applies a render state. The program is validated against
// the shader cache first, an unknown program leaves the current state
// in place.
func (p *Pipeline) SetState(state State) error {
	if state.Program != "" {
		if _, ok := p.shaders.Program(state.Program); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProgram, state.Program)
		}
	}
	p.state = state
	return nil
}

// State returns the current render state
func (p *Pipeline) State() State {
	return p.state
}

// DrawMesh submits a mesh with the current state. It both issues the
// indexed draw and accounts it in the pass counters.
func (p *Pipeline) DrawMesh(mesh *resource.Mesh, material resource.Material, transform glm.Mat4) error {
	if mesh == nil {
		return errors.New("pipeline: nil mesh")
	}
	if err := p.dev.DrawIndexed(mesh.IndexCount, 0, 0); err != nil {
		return fmt.Errorf("draw mesh: %w", err)
	}
	p.stats.DrawCalls++
	p.stats.Triangles += uint64(mesh.IndexCount / 3)
	p.stats.Vertices += uint64(mesh.VertexCount)
	return nil
}

// Stats returns the counters of the pass currently being recorded
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// RenderAllPasses walks the pass order, bracketing fn between
// BeginPass and EndPass for every enabled pass. Disabled passes are
// skipped without clearing or counting. fn errors abort the walk.
func (p *Pipeline) RenderAllPasses(fn func(name string, info PassInfo) error) error {
	for _, name := range p.passOrder {
		info := p.passes[name]
		if err := p.BeginPass(name); err != nil {
			return err
		}
		if info.Enabled && fn != nil {
			if err := fn(name, *info); err != nil {
				p.EndPass(name)
				return fmt.Errorf("pass %s: %w", name, err)
			}
		}
		if err := p.EndPass(name); err != nil {
			return err
		}
	}
	return nil
}

// ResizeViewport updates the device viewport
func (p *Pipeline) ResizeViewport(width, height uint32) {
	p.dev.SetViewport(0, 0, width, height)
	p.log.Infof("viewport resized to %dx%d", width, height)
}
