package device

import (
	"bytes"
	"fmt"
	"sync"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

const defaultMemoryBudget = 8 << 30 // 8 GiB

// drawLogCap bounds the retained draw log so long-running headless
// sessions do not accumulate it without end
const drawLogCap = 1024

// DrawCall records one submission made against the Null backend
type DrawCall struct {
	Indexed    bool
	Count      uint32
	First      uint32
	BaseVertex int32
}

// NewNull creates the headless reference backend. It performs no GPU
// work but enforces the full device contract: initialization ordering,
// frame bracketing, handle lifetimes and memory accounting.
func NewNull(cfg Config) *NullDevice {
	return &NullDevice{cfg: cfg}
}

// NullDevice is the reference device implementation
type NullDevice struct {
	mu sync.Mutex

	cfg         Config
	initialized bool
	frameOpen   bool

	info  Info
	table handleTable

	memoryUsed uint64

	clearColor glm.Vec4
	viewport   [4]int32

	drawLog  []DrawCall
	releases int
}

// Initialize implements interface
func (n *NullDevice) Initialize(window uintptr, width, height uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return nil
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("null device: bad surface size %dx%d", width, height)
	}

	budget := n.cfg.MemoryBudget
	if budget == 0 {
		budget = defaultMemoryBudget
	}

	n.info = Info{
		Name:            "Null Device",
		Vendor:          "Lumen",
		DriverVersion:   "1.0.0",
		APIVersion:      "1.0",
		MemoryTotal:     budget,
		MemoryAvailable: budget,
		Capabilities: Capabilities{
			MaxTextureSize:       4096,
			MaxVertexAttributes:  16,
			MaxTextureUnits:      16,
			MaxAnisotropy:        16,
			MaxMSAASamples:       8,
			SupportsInstancing:   true,
			SupportsCompute:      true,
			SupportsGeometry:     true,
			SupportsTessellation: true,
			SupportsHDR:          true,
			SupportsMSAA:         true,
		},
	}
	n.viewport = [4]int32{0, 0, int32(width), int32(height)}
	n.initialized = true

	log.WithFields(log.Fields{
		"component": "device",
		"backend":   "null",
	}).Infof("device initialized (%dx%d, window=%#x)", width, height, window)
	return nil
}

// Initialized implements interface
func (n *NullDevice) Initialized() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.initialized
}

// Info implements interface
func (n *NullDevice) Info() (Info, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.initialized {
		return Info{}, ErrNotInitialized
	}
	info := n.info
	info.MemoryAvailable = info.MemoryTotal - n.memoryUsed
	return info, nil
}

func (n *NullDevice) allocate(kind resourceKind, size uint64) (Handle, error) {
	if !n.initialized {
		return 0, ErrNotInitialized
	}
	if n.memoryUsed+size > n.info.MemoryTotal {
		return 0, fmt.Errorf("%w: need %d bytes, %d available",
			ErrOutOfMemory, size, n.info.MemoryTotal-n.memoryUsed)
	}
	n.memoryUsed += size
	return n.table.alloc(kind, size), nil
}

// CreateBuffer implements interface
func (n *NullDevice) CreateBuffer(size int, usage BufferUsage, data []byte) (Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if size <= 0 {
		return 0, fmt.Errorf("null device: bad buffer size %d", size)
	}
	h, err := n.allocate(kindBuffer, uint64(size))
	if err != nil {
		return 0, err
	}
	log.WithField("component", "device").
		Debugf("created %s buffer %#x (%d bytes)", usage, uint64(h), size)
	return h, nil
}

// CreateTexture implements interface
func (n *NullDevice) CreateTexture(width, height uint32, format TextureFormat, data []byte) (Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if width == 0 || height == 0 {
		return 0, fmt.Errorf("null device: bad texture size %dx%d", width, height)
	}
	if n.initialized && width > n.info.Capabilities.MaxTextureSize {
		return 0, fmt.Errorf("null device: texture width %d exceeds limit %d",
			width, n.info.Capabilities.MaxTextureSize)
	}
	size := uint64(width) * uint64(height) * uint64(format.PixelSize())
	h, err := n.allocate(kindTexture, size)
	if err != nil {
		return 0, err
	}
	log.WithField("component", "device").
		Debugf("created texture %#x (%dx%d, %s)", uint64(h), width, height, format)
	return h, nil
}

// CreateShader implements interface. Compilation is simulated: a source
// that is empty or carries an #error directive fails, anything else
// compiles. That gives tests a deterministic failure mode.
func (n *NullDevice) CreateShader(source []byte, stage ShaderStage) (Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return 0, ErrNotInitialized
	}
	if len(bytes.TrimSpace(source)) == 0 {
		return 0, fmt.Errorf("%w: empty %s shader source", ErrCompile, stage)
	}
	if bytes.Contains(source, []byte("#error")) {
		return 0, fmt.Errorf("%w: %s shader carries #error directive", ErrCompile, stage)
	}
	h, err := n.allocate(kindShader, uint64(len(source)))
	if err != nil {
		return 0, err
	}
	log.WithField("component", "device").
		Debugf("compiled %s shader %#x (%d bytes)", stage, uint64(h), len(source))
	return h, nil
}

// Release implements interface
func (n *NullDevice) Release(h Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	size, err := n.table.release(h)
	if err != nil {
		return err
	}
	n.memoryUsed -= size
	n.releases++
	return nil
}

// BeginFrame implements interface
func (n *NullDevice) BeginFrame() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return ErrNotInitialized
	}
	if n.frameOpen {
		return ErrFrameOpen
	}
	n.frameOpen = true
	return nil
}

// EndFrame implements interface
func (n *NullDevice) EndFrame() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return ErrNotInitialized
	}
	if !n.frameOpen {
		return ErrNoFrame
	}
	n.frameOpen = false
	return nil
}

// Clear implements interface
func (n *NullDevice) Clear(color glm.Vec4) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.initialized {
		return
	}
	n.clearColor = color
}

// SetViewport implements interface
func (n *NullDevice) SetViewport(x, y int32, width, height uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.initialized {
		return
	}
	n.viewport = [4]int32{x, y, int32(width), int32(height)}
}

func (n *NullDevice) record(call DrawCall) {
	if len(n.drawLog) >= drawLogCap {
		n.drawLog = n.drawLog[:0]
	}
	n.drawLog = append(n.drawLog, call)
}

// Draw implements interface
func (n *NullDevice) Draw(vertexCount, firstVertex uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return ErrNotInitialized
	}
	if !n.frameOpen {
		return ErrNoFrame
	}
	n.record(DrawCall{Count: vertexCount, First: firstVertex})
	return nil
}

// DrawIndexed implements interface
func (n *NullDevice) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return ErrNotInitialized
	}
	if !n.frameOpen {
		return ErrNoFrame
	}
	n.record(DrawCall{Indexed: true, Count: indexCount, First: firstIndex, BaseVertex: baseVertex})
	return nil
}

// MemoryUsage implements interface
func (n *NullDevice) MemoryUsage() (uint64, uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.initialized {
		return 0, 0
	}
	return n.memoryUsed, n.info.MemoryTotal
}

// Shutdown implements interface
func (n *NullDevice) Shutdown() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return nil
	}
	if live := n.table.liveCount(); live > 0 {
		log.WithField("component", "device").
			Debugf("shutdown releasing %d live handles", live)
	}
	n.table.reset()
	n.memoryUsed = 0
	n.frameOpen = false
	n.drawLog = nil
	n.initialized = false

	log.WithField("component", "device").Info("null device shut down")
	return nil
}

// DrawLog returns the submissions recorded since the log last wrapped.
// Test helper, the returned slice is a copy.
func (n *NullDevice) DrawLog() []DrawCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]DrawCall, len(n.drawLog))
	copy(out, n.drawLog)
	return out
}

// ClearColor returns the most recent clear color. Test helper.
func (n *NullDevice) ClearColor() glm.Vec4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clearColor
}

// Releases returns how many handles were released so far. Test helper.
func (n *NullDevice) Releases() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.releases
}
