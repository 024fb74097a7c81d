// Package device abstracts the GPU behind a backend-neutral contract.
// Concrete backends are selected at startup with New; the Null backend
// is the reference implementation and the one exercised by tests.
package device

import (
	"errors"
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"
)

// package errors
var (
	ErrNotInitialized = errors.New("device not initialized")
	ErrUnsupportedAPI = errors.New("unsupported graphics API")
	ErrFrameOpen      = errors.New("frame already open")
	ErrNoFrame        = errors.New("no frame open")
	ErrInvalidHandle  = errors.New("invalid resource handle")
	ErrOutOfMemory    = errors.New("out of device memory")
	ErrCompile        = errors.New("shader compilation failed")
)

// API identifies a graphics backend
type API int

// Supported graphics APIs
const (
	Null API = iota
	Vulkan
	DirectX12
)

func (a API) String() string {
	switch a {
	case Null:
		return "null"
	case Vulkan:
		return "vulkan"
	case DirectX12:
		return "dx12"
	}
	return "unknown"
}

// ParseAPI maps a configuration string to an API constant
func ParseAPI(name string) (API, error) {
	switch name {
	case "", "null":
		return Null, nil
	case "vulkan":
		return Vulkan, nil
	case "dx12", "directx12":
		return DirectX12, nil
	}
	return Null, fmt.Errorf("%w: %q", ErrUnsupportedAPI, name)
}

// BufferUsage tells the backend what a buffer will hold
type BufferUsage int

// Buffer usages
const (
	VertexBuffer BufferUsage = iota
	IndexBuffer
	UniformBuffer
)

func (u BufferUsage) String() string {
	switch u {
	case VertexBuffer:
		return "vertex"
	case IndexBuffer:
		return "index"
	case UniformBuffer:
		return "uniform"
	}
	return "unknown"
}

// TextureFormat is the pixel layout of a texture
type TextureFormat int

// Texture formats
const (
	FormatRGBA8 TextureFormat = iota
	FormatRGB8
	FormatDepth24Stencil8
)

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGB8:
		return "RGB8"
	case FormatDepth24Stencil8:
		return "D24S8"
	}
	return "unknown"
}

// PixelSize returns the size of one pixel in bytes
func (f TextureFormat) PixelSize() int {
	switch f {
	case FormatRGB8:
		return 3
	default:
		return 4
	}
}

// ShaderStage identifies the pipeline stage a shader runs in
type ShaderStage int

// Shader stages
const (
	VertexStage ShaderStage = iota
	PixelStage
	GeometryStage
	ComputeStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case PixelStage:
		return "pixel"
	case GeometryStage:
		return "geometry"
	case ComputeStage:
		return "compute"
	}
	return "unknown"
}

// Capabilities is an immutable snapshot of what the device supports.
// It is created once at initialization and read-only afterward.
type Capabilities struct {
	MaxTextureSize       uint32
	MaxVertexAttributes  uint32
	MaxTextureUnits      uint32
	MaxAnisotropy        uint32
	MaxMSAASamples       uint32
	SupportsInstancing   bool
	SupportsCompute      bool
	SupportsGeometry     bool
	SupportsTessellation bool
	SupportsHDR          bool
	SupportsMSAA         bool
}

// Info describes available properties of a rendering device
type Info struct {
	Name          string
	Vendor        string
	DriverVersion string
	APIVersion    string

	// MemoryTotal and MemoryAvailable are in bytes
	MemoryTotal     uint64
	MemoryAvailable uint64

	Capabilities Capabilities
}

// Config configures backend creation
type Config struct {
	DebugMode  bool
	Extensions []string
	Layers     []string

	// MemoryBudget caps the memory pool of the Null backend, in bytes
	MemoryBudget uint64
}

// Device describes a non-concrete rendering device. Initialize must
// succeed before any other call; creation calls on an uninitialized
// device return a zero Handle and ErrNotInitialized. Higher layers
// never reach the GPU except through this interface.
type Device interface {
	// Initialize acquires the GPU context for the given native window.
	// A zero window handle requests headless operation
	Initialize(window uintptr, width, height uint32) error

	// Initialized reports whether the device is ready for use
	Initialized() bool

	// Info returns the device snapshot taken at initialization
	Info() (Info, error)

	CreateBuffer(size int, usage BufferUsage, data []byte) (Handle, error)
	CreateTexture(width, height uint32, format TextureFormat, data []byte) (Handle, error)
	CreateShader(source []byte, stage ShaderStage) (Handle, error)

	// Release frees the resource behind h. A handle can be released
	// exactly once, stale handles are rejected with ErrInvalidHandle
	Release(h Handle) error

	// BeginFrame and EndFrame bracket exactly one frame and must not nest
	BeginFrame() error
	EndFrame() error

	Clear(color glm.Vec4)
	SetViewport(x, y int32, width, height uint32)
	Draw(vertexCount, firstVertex uint32) error
	DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) error

	// MemoryUsage is a polled snapshot of (used, total) bytes
	MemoryUsage() (uint64, uint64)

	// Shutdown waits for the device to go idle, releases every live
	// handle and tears the context down. It is idempotent
	Shutdown() error
}

// New selects a backend implementation for the given API
func New(api API, cfg Config) (Device, error) {
	switch api {
	case Null:
		return NewNull(cfg), nil
	case Vulkan:
		return NewVulkan(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAPI, api)
	}
}
