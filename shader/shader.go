// Package shader compiles shader source through the device, links
// programs out of compiled stages and watches shader files for hot
// reload between frames.
package shader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lumen3d/lumen/device"
)

// package errors
var (
	ErrCompile       = errors.New("shader compilation failed")
	ErrUnknownShader = errors.New("unknown shader")
)

// Default shader and program names created at Initialize
const (
	DefaultVertexShader = "default_vertex"
	DefaultPixelShader  = "default_pixel"
	DefaultProgram      = "default"
)

// Info describes one compiled shader
type Info struct {
	Name     string
	Stage    device.ShaderStage
	Source   string
	Handle   device.Handle
	Compiled bool

	// Path and LastModified are set only for file-backed shaders
	Path         string
	LastModified time.Time
}

// Counts reports cache sizes
type Counts struct {
	Shaders  int
	Programs int
	Watched  int
}

// NewManager creates a manager bound to dev. Hot reload is on by
// default, EnableHotReload(false) opts out.
func NewManager(dev device.Device) *Manager {
	return &Manager{
		dev:       dev,
		log:       log.WithField("component", "shader"),
		hotReload: true,
		shaders:   make(map[string]*Info),
		programs:  make(map[string][]string),
	}
}

// Manager owns compiled shaders and linked programs. Hot reload runs
// on the render thread between frames, loads may come from elsewhere,
// so the cache is lock-guarded.
type Manager struct {
	dev device.Device
	log *log.Entry

	mu          sync.RWMutex
	initialized bool
	hotReload   bool
	shaders     map[string]*Info
	programs    map[string][]string
}

// Initialize compiles the built-in default shader pair and links the
// default program. A backend that only accepts precompiled shader
// words rejects the built-in source text; the manager then starts
// without defaults and the host loads its own compiled programs.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()
	if initialized {
		return nil
	}

	if err := m.loadDefaults(); err != nil {
		if !errors.Is(err, ErrCompile) {
			return err
		}
		m.log.Warnf("backend rejected built-in shaders, starting without defaults: %v", err)
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	m.log.Info("shader manager initialized")
	return nil
}

func (m *Manager) loadDefaults() error {
	if err := m.Load(DefaultVertexShader, defaultVertexSource, device.VertexStage); err != nil {
		return fmt.Errorf("default vertex shader: %w", err)
	}
	if err := m.Load(DefaultPixelShader, defaultPixelSource, device.PixelStage); err != nil {
		return fmt.Errorf("default pixel shader: %w", err)
	}
	if err := m.CreateProgram(DefaultProgram, []string{DefaultVertexShader, DefaultPixelShader}); err != nil {
		return fmt.Errorf("default program: %w", err)
	}
	return nil
}

// Load compiles source under name. A failed compile leaves the cache
// untouched, loading over an existing name releases the old handle.
func (m *Manager) Load(name, source string, stage device.ShaderStage) error {
	handle, err := m.dev.CreateShader([]byte(source), stage)
	if err != nil {
		m.log.Errorf("failed to compile shader %s: %v", name, err)
		return fmt.Errorf("shader %q: %w: %v", name, ErrCompile, err)
	}

	m.mu.Lock()
	if old, ok := m.shaders[name]; ok && old.Handle.Valid() {
		m.releaseHandle(old.Handle)
	}
	m.shaders[name] = &Info{
		Name:     name,
		Stage:    stage,
		Source:   source,
		Handle:   handle,
		Compiled: true,
	}
	m.mu.Unlock()

	m.log.Infof("compiled %s shader %s", stage, name)
	return nil
}

// LoadFile compiles the shader at path and records its modification
// time so CheckHotReload can recompile it when the file changes
func (m *Manager) LoadFile(name, path string, stage device.ShaderStage) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("shader %q: %w", name, err)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("shader %q: %w", name, err)
	}
	if err := m.Load(name, string(source), stage); err != nil {
		return err
	}

	m.mu.Lock()
	info := m.shaders[name]
	info.Path = path
	info.LastModified = fi.ModTime()
	m.mu.Unlock()
	return nil
}

// LoadDirectory walks dir and loads every shader file it recognizes.
// The stage comes from the filename: name.vert.hlsl, name.pixel.hlsl
// and so on. Returns how many shaders were loaded.
func (m *Manager) LoadDirectory(dir string) (int, error) {
	var loaded int
	err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}

		name, stage, ok := classifyShaderFile(f.Name())
		if !ok {
			return nil
		}
		if err := m.LoadFile(name, path, stage); err != nil {
			m.log.Errorf("failed to load %s: %v", path, err)
		} else {
			loaded++
		}
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("shader directory %s: %w", dir, err)
	}
	return loaded, nil
}

// classifyShaderFile maps a shader file name of the form
// <name>.<stage>.hlsl to a cache name and a stage
func classifyShaderFile(filename string) (string, device.ShaderStage, bool) {
	const suffix = ".hlsl"
	if !strings.HasSuffix(filename, suffix) {
		return "", 0, false
	}
	nodes := strings.Split(strings.TrimSuffix(filename, suffix), ".")
	if len(nodes) != 2 {
		return "", 0, false
	}
	switch nodes[1] {
	case "vert", "vertex":
		return nodes[0], device.VertexStage, true
	case "pixel", "frag":
		return nodes[0], device.PixelStage, true
	case "geom":
		return nodes[0], device.GeometryStage, true
	case "comp":
		return nodes[0], device.ComputeStage, true
	}
	return "", 0, false
}

// CreateProgram links the named shaders into a program. Every shader
// is validated up front, a missing or uncompiled stage fails the whole
// call and records nothing.
func (m *Manager) CreateProgram(name string, shaderNames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sn := range shaderNames {
		info, ok := m.shaders[sn]
		if !ok {
			return fmt.Errorf("program %q: %w: %s", name, ErrUnknownShader, sn)
		}
		if !info.Compiled {
			return fmt.Errorf("program %q: shader %s: %w", name, sn, ErrCompile)
		}
	}

	names := make([]string, len(shaderNames))
	copy(names, shaderNames)
	m.programs[name] = names

	m.log.Infof("created program %s (%d stages)", name, len(names))
	return nil
}

// Shader returns a compiled shader by name
func (m *Manager) Shader(name string) (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.shaders[name]
	return info, ok
}

// Program returns the shader names a program links
func (m *Manager) Program(name string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names, ok := m.programs[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, true
}

// Shaders lists the cached shader names
func (m *Manager) Shaders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.shaders))
	for name := range m.shaders {
		out = append(out, name)
	}
	return out
}

// Programs lists the linked program names
func (m *Manager) Programs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.programs))
	for name := range m.programs {
		out = append(out, name)
	}
	return out
}

// Counts reports how many shaders and programs are cached
func (m *Manager) Counts() Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := Counts{Shaders: len(m.shaders), Programs: len(m.programs)}
	for _, info := range m.shaders {
		if info.Path != "" {
			c.Watched++
		}
	}
	return c
}

// EnableHotReload toggles file watching
func (m *Manager) EnableHotReload(enabled bool) {
	m.mu.Lock()
	m.hotReload = enabled
	m.mu.Unlock()
}

// Reload recompiles a file-backed shader regardless of its timestamp
func (m *Manager) Reload(name string) error {
	m.mu.RLock()
	info, ok := m.shaders[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("reload: %w: %s", ErrUnknownShader, name)
	}
	if info.Path == "" {
		return fmt.Errorf("reload %q: shader is not file-backed", name)
	}
	return m.LoadFile(name, info.Path, info.Stage)
}

// CheckHotReload recompiles every watched shader whose file changed
// since it was last loaded. Must run between frames: a successful
// recompile swaps the handle in place and releases the old one, a
// failed recompile keeps the previous handle so rendering continues
// with the last good shader. The watched timestamp advances either
// way, so a broken edit is reported once, not every frame. Returns
// how many shaders were recompiled.
func (m *Manager) CheckHotReload() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hotReload {
		return 0, nil
	}

	var reloaded int
	for name, info := range m.shaders {
		if info.Path == "" {
			continue
		}
		fi, err := os.Stat(info.Path)
		if err != nil {
			m.log.Errorf("hot reload stat %s: %v", info.Path, err)
			continue
		}
		if !fi.ModTime().After(info.LastModified) {
			continue
		}

		info.LastModified = fi.ModTime()
		source, err := os.ReadFile(info.Path)
		if err != nil {
			m.log.Errorf("hot reload read %s: %v", info.Path, err)
			continue
		}
		handle, err := m.dev.CreateShader(source, info.Stage)
		if err != nil {
			m.log.Errorf("hot reload of %s failed, keeping previous shader: %v", name, err)
			continue
		}

		if info.Handle.Valid() {
			m.releaseHandle(info.Handle)
		}
		info.Handle = handle
		info.Source = string(source)
		info.Compiled = true
		reloaded++

		m.log.Infof("hot reloaded shader %s", name)
	}
	return reloaded, nil
}

func (m *Manager) releaseHandle(h device.Handle) {
	if err := m.dev.Release(h); err != nil {
		m.log.Errorf("failed to release shader handle %#x: %v", uint64(h), err)
	}
}

// Shutdown releases every compiled shader. Idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}
	for _, info := range m.shaders {
		if info.Handle.Valid() && info.Compiled {
			m.releaseHandle(info.Handle)
		}
	}
	m.shaders = make(map[string]*Info)
	m.programs = make(map[string][]string)
	m.initialized = false

	m.log.Info("shader manager shut down")
	return nil
}
