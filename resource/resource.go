// Package resource loads and caches GPU-resident assets: textures
// decoded from image files or archives, and generated meshes. The
// manager is the sole owner of the cached device handles.
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	// Registered decode formats for LoadTexture.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/device"
	"github.com/lumen3d/lumen/model"
	"github.com/lumen3d/lumen/utility/pak"
)

// package errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrNotImplemented = errors.New("not implemented")
	ErrDecode         = errors.New("image decode failed")
)

// Default resource names created at Initialize
const (
	DefaultWhiteTexture = "default_white"
	DefaultCubeMesh     = "default_cube"
	DefaultSphereMesh   = "default_sphere"
)

const (
	sphereRings    = 16
	sphereSegments = 32
)

// Texture is a cached GPU texture
type Texture struct {
	Width     uint32
	Height    uint32
	Format    device.TextureFormat
	MipLevels uint32
	Handle    device.Handle
}

// Mesh is a cached GPU mesh
type Mesh struct {
	VertexCount   uint32
	IndexCount    uint32
	VertexBuffer  device.Handle
	IndexBuffer   device.Handle
	MaterialCount int
}

// Material is a named bag of shading properties
type Material map[string]interface{}

// Counts reports cache sizes
type Counts struct {
	Textures  int
	Meshes    int
	Materials int
}

// NewManager creates a manager bound to dev. Initialize must be called
// before loading.
func NewManager(dev device.Device) *Manager {
	return &Manager{
		dev:       dev,
		log:       log.WithField("component", "resource"),
		textures:  make(map[string]*Texture),
		meshes:    make(map[string]*Mesh),
		materials: make(map[string]Material),
	}
}

// Manager owns the texture, mesh and material caches. Loads may come
// from a background goroutine, entries are published atomically under
// the lock so the render thread never sees a partial resource.
type Manager struct {
	dev device.Device
	log *log.Entry

	mu          sync.RWMutex
	initialized bool
	textures    map[string]*Texture
	meshes      map[string]*Mesh
	materials   map[string]Material
}

// Initialize creates the default resources: a 1x1 white texture, a
// unit cube and a unit UV sphere
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if err := m.createDefaultTexture(); err != nil {
		return fmt.Errorf("default texture: %w", err)
	}
	cubeVerts, cubeIndices := NewCube()
	if err := m.createDefaultMesh(DefaultCubeMesh, cubeVerts, cubeIndices); err != nil {
		return fmt.Errorf("default cube: %w", err)
	}
	sphereVerts, sphereIndices := NewSphere(sphereRings, sphereSegments)
	if err := m.createDefaultMesh(DefaultSphereMesh, sphereVerts, sphereIndices); err != nil {
		return fmt.Errorf("default sphere: %w", err)
	}

	m.initialized = true
	m.log.Info("resource manager initialized")
	return nil
}

func (m *Manager) createDefaultTexture() error {
	white := []byte{255, 255, 255, 255}
	handle, err := m.dev.CreateTexture(1, 1, device.FormatRGBA8, white)
	if err != nil {
		return err
	}
	m.storeTextureLocked(DefaultWhiteTexture, &Texture{
		Width:     1,
		Height:    1,
		Format:    device.FormatRGBA8,
		MipLevels: 1,
		Handle:    handle,
	})
	return nil
}

func (m *Manager) createDefaultMesh(name string, vertices []model.Vertex, indices []uint32) error {
	vertexData := model.Pack(vertices)
	indexData := model.PackIndices(indices)

	vertexBuffer, err := m.dev.CreateBuffer(len(vertexData), device.VertexBuffer, vertexData)
	if err != nil {
		return err
	}
	indexBuffer, err := m.dev.CreateBuffer(len(indexData), device.IndexBuffer, indexData)
	if err != nil {
		m.releaseHandle(vertexBuffer)
		return err
	}

	m.storeMeshLocked(name, &Mesh{
		VertexCount:   uint32(len(vertices)),
		IndexCount:    uint32(len(indices)),
		VertexBuffer:  vertexBuffer,
		IndexBuffer:   indexBuffer,
		MaterialCount: 1,
	})
	return nil
}

// LoadTexture decodes the image at path into RGBA8 pixels and uploads
// it under name. Loading a name that already exists replaces the
// cached entry and releases the superseded device handle.
func (m *Manager) LoadTexture(name, path string) error {
	if _, err := os.Stat(path); err != nil {
		m.log.Errorf("texture file not found: %s", path)
		return fmt.Errorf("texture %q: %w: %s", name, ErrNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("texture %q: %w", name, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		m.log.Errorf("failed to decode texture %s: %v", path, err)
		return fmt.Errorf("texture %q: %w: %v", name, ErrDecode, err)
	}
	return m.uploadImage(name, img)
}

// LoadTextureArchive opens the pak archive at path and loads every
// image entry it holds as a texture named after the entry
func (m *Manager) LoadTextureArchive(path string) (int, error) {
	archive, err := pak.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("texture archive %s: %w", path, err)
	}
	defer archive.Close()

	var loaded int
	for _, name := range archive.Names() {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		default:
			continue
		}

		data, err := archive.ReadAll(name)
		if err != nil {
			m.log.Errorf("failed to read archive entry %s: %v", name, err)
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			m.log.Errorf("failed to decode archive entry %s: %v", name, err)
			continue
		}
		if err := m.uploadImage(name, img); err != nil {
			m.log.Errorf("failed to upload archive entry %s: %v", name, err)
			continue
		}
		loaded++
	}
	m.log.Infof("loaded %d textures from %s", loaded, path)
	return loaded, nil
}

func (m *Manager) uploadImage(name string, img image.Image) error {
	bounds := img.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())

	pixels, err := core.GetPixels(img, 0)
	if err != nil {
		return fmt.Errorf("texture %q: %w", name, err)
	}

	handle, err := m.dev.CreateTexture(width, height, device.FormatRGBA8, pixels)
	if err != nil {
		return fmt.Errorf("texture %q: %w", name, err)
	}

	m.mu.Lock()
	m.storeTextureLocked(name, &Texture{
		Width:     width,
		Height:    height,
		Format:    device.FormatRGBA8,
		MipLevels: 1,
		Handle:    handle,
	})
	m.mu.Unlock()

	m.log.Infof("loaded texture %s (%dx%d)", name, width, height)
	return nil
}

// LoadMesh is not implemented in this engine revision. It reports
// ErrNotFound for a missing file and ErrNotImplemented otherwise, so
// the gap is visible to the caller instead of silently doing nothing.
func (m *Manager) LoadMesh(name, path string) error {
	if _, err := os.Stat(path); err != nil {
		m.log.Errorf("mesh file not found: %s", path)
		return fmt.Errorf("mesh %q: %w: %s", name, ErrNotFound, path)
	}
	m.log.Warnf("mesh loading not implemented: %s", path)
	return fmt.Errorf("mesh %q: loading from file: %w", name, ErrNotImplemented)
}

// storeTextureLocked publishes tex, releasing the superseded handle
// exactly once if the name was taken. Callers hold the write lock.
func (m *Manager) storeTextureLocked(name string, tex *Texture) {
	if old, ok := m.textures[name]; ok {
		m.releaseHandle(old.Handle)
	}
	m.textures[name] = tex
}

func (m *Manager) storeMeshLocked(name string, mesh *Mesh) {
	if old, ok := m.meshes[name]; ok {
		m.releaseHandle(old.VertexBuffer)
		m.releaseHandle(old.IndexBuffer)
	}
	m.meshes[name] = mesh
}

func (m *Manager) releaseHandle(h device.Handle) {
	if !h.Valid() {
		return
	}
	if err := m.dev.Release(h); err != nil {
		m.log.Errorf("failed to release handle %#x: %v", uint64(h), err)
	}
}

// Texture returns a cached texture by name
func (m *Manager) Texture(name string) (*Texture, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.textures[name]
	return t, ok
}

// Mesh returns a cached mesh by name
func (m *Manager) Mesh(name string) (*Mesh, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mesh, ok := m.meshes[name]
	return mesh, ok
}

// Material returns a material by name
func (m *Manager) Material(name string) (Material, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mat, ok := m.materials[name]
	return mat, ok
}

// CreateMaterial stores a copy of properties under name
func (m *Manager) CreateMaterial(name string, properties Material) {
	mat := make(Material, len(properties))
	for k, v := range properties {
		mat[k] = v
	}

	m.mu.Lock()
	m.materials[name] = mat
	m.mu.Unlock()

	m.log.Infof("created material %s", name)
}

// Counts reports how many resources are cached
func (m *Manager) Counts() Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Counts{
		Textures:  len(m.textures),
		Meshes:    len(m.meshes),
		Materials: len(m.materials),
	}
}

// ClearCache drops every cached resource and releases its handles
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
	m.log.Info("resource cache cleared")
}

func (m *Manager) clearLocked() {
	for _, t := range m.textures {
		m.releaseHandle(t.Handle)
	}
	for _, mesh := range m.meshes {
		m.releaseHandle(mesh.VertexBuffer)
		m.releaseHandle(mesh.IndexBuffer)
	}
	m.textures = make(map[string]*Texture)
	m.meshes = make(map[string]*Mesh)
	m.materials = make(map[string]Material)
}

// Shutdown releases everything. Idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}
	m.clearLocked()
	m.initialized = false
	m.log.Info("resource manager shut down")
	return nil
}
