package device

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/lumen3d/lumen/core"
)

// DefaultApplicationInfo describes the engine to the Vulkan driver
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "Lumen\x00",
	PEngineName:        "Lumen\x00",
}

// NewVulkanDevice creates a not yet initialised Vulkan backend.
// The backend covers the device contract without a swapchain: it
// initializes the API, snapshots real device properties and creates
// real buffers, images and shader modules. Presentation is left to a
// host that owns a surface.
func NewVulkanDevice(cfg Config) *VulkanDevice {
	return &VulkanDevice{cfg: cfg}
}

// NewVulkan is the factory entry used by New
func NewVulkan(cfg Config) *VulkanDevice {
	return NewVulkanDevice(cfg)
}

type vulkanBuffer struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
}

type vulkanImage struct {
	image  vk.Image
	memory vk.DeviceMemory
}

// VulkanDevice is the Vulkan API backend
type VulkanDevice struct {
	mu sync.Mutex

	cfg         Config
	initialized bool
	frameOpen   bool

	instance         vk.Instance
	availableDevices []vk.PhysicalDevice
	physicalDevice   vk.PhysicalDevice
	logicalDevice    vk.Device
	deviceQueue      vk.Queue

	graphicsQueueIndex uint32
	memProperties      vk.PhysicalDeviceMemoryProperties

	commandPool   vk.CommandPool
	commandBuffer vk.CommandBuffer

	info  Info
	table handleTable

	buffers map[Handle]vulkanBuffer
	images  map[Handle]vulkanImage
	shaders map[Handle]vk.ShaderModule

	memoryUsed uint64
	clearColor glm.Vec4
	viewport   vk.Viewport
}

// Initialize implements interface
func (v *VulkanDevice) Initialize(window uintptr, width, height uint32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return nil
	}

	if window == 0 {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return errors.New("vk.SetDefaultGetInstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(unsafe.Pointer(window))
	}
	if err := vk.Init(); err != nil {
		return errors.New("vk.Init(): " + err.Error())
	}

	extensions := append([]string{}, v.cfg.Extensions...)
	layers := append([]string{}, v.cfg.Layers...)
	if v.cfg.DebugMode {
		layers = append(layers, "VK_LAYER_KHRONOS_validation\x00")
		extensions = append(extensions, "VK_EXT_debug_report\x00")
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        DefaultApplicationInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}
	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return errors.New("vk.CreateInstance(): " + err.Error())
	}
	vk.InitInstance(instance)
	v.instance = instance

	if err := v.enumerateDevices(); err != nil {
		vk.DestroyInstance(v.instance, nil)
		return err
	}
	if len(v.availableDevices) == 0 {
		vk.DestroyInstance(v.instance, nil)
		return errors.New("vulkan error: no physical devices present")
	}
	v.physicalDevice = v.availableDevices[0]
	v.snapshotInfo()

	if err := v.createLogicalDevice(); err != nil {
		vk.DestroyInstance(v.instance, nil)
		return err
	}
	if err := v.createCommandResources(); err != nil {
		vk.DestroyDevice(v.logicalDevice, nil)
		vk.DestroyInstance(v.instance, nil)
		return err
	}

	v.viewport = vk.Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1}
	v.buffers = make(map[Handle]vulkanBuffer)
	v.images = make(map[Handle]vulkanImage)
	v.shaders = make(map[Handle]vk.ShaderModule)
	v.initialized = true

	log.WithFields(log.Fields{
		"component": "device",
		"backend":   "vulkan",
	}).Infof("device initialized: %s", v.info.Name)
	return nil
}

func (v *VulkanDevice) enumerateDevices() error {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(v.instance, &deviceCount, nil)); err != nil {
		return fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	v.availableDevices = make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(v.instance, &deviceCount, v.availableDevices)); err != nil {
		return fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	return nil
}

func (v *VulkanDevice) snapshotInfo() {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(v.physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()

	vk.GetPhysicalDeviceMemoryProperties(v.physicalDevice, &v.memProperties)
	v.memProperties.Deref()

	var memoryTotal uint64
	for i := uint32(0); i < v.memProperties.MemoryHeapCount; i++ {
		v.memProperties.MemoryHeaps[i].Deref()
		memoryTotal += uint64(v.memProperties.MemoryHeaps[i].Size)
	}

	v.info = Info{
		Name:            vk.ToString(properties.DeviceName[:]),
		Vendor:          fmt.Sprintf("0x%04x", properties.VendorID),
		DriverVersion:   fmt.Sprintf("%d", properties.DriverVersion),
		APIVersion:      fmt.Sprintf("%d", properties.ApiVersion),
		MemoryTotal:     memoryTotal,
		MemoryAvailable: memoryTotal,
		Capabilities: Capabilities{
			MaxTextureSize:       properties.Limits.MaxImageDimension2D,
			MaxVertexAttributes:  properties.Limits.MaxVertexInputAttributes,
			MaxTextureUnits:      properties.Limits.MaxPerStageDescriptorSamplers,
			MaxAnisotropy:        uint32(properties.Limits.MaxSamplerAnisotropy),
			MaxMSAASamples:       8,
			SupportsInstancing:   true,
			SupportsCompute:      true,
			SupportsGeometry:     true,
			SupportsTessellation: true,
			SupportsHDR:          true,
			SupportsMSAA:         true,
		},
	}
}

func (v *VulkanDevice) createLogicalDevice() error {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queue families on GPU")
	}
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, queueFamilies)

	var graphicsFound bool
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			v.graphicsQueueIndex = i
			graphicsFound = true
			break
		}
	}
	if !graphicsFound {
		return errors.New("vulkan error: could not find a graphics-capable queue family")
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	var vkDevice vk.Device
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(v.cfg.Extensions)),
		PpEnabledExtensionNames: v.cfg.Extensions,
	}
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &vkDevice)); err != nil {
		return errors.New("vk.CreateDevice(): " + err.Error())
	}
	v.logicalDevice = vkDevice

	var deviceQueue vk.Queue
	vk.GetDeviceQueue(vkDevice, v.graphicsQueueIndex, 0, &deviceQueue)
	v.deviceQueue = deviceQueue
	return nil
}

func (v *VulkanDevice) createCommandResources() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(v.logicalDevice, &cpci, nil, &pool)); err != nil {
		return errors.New("vk.CreateCommandPool(): " + err.Error())
	}
	v.commandPool = pool

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
		return errors.New("vk.AllocateCommandBuffers(): " + err.Error())
	}
	v.commandBuffer = commandBuffers[0]
	return nil
}

func (v *VulkanDevice) findMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < v.memProperties.MemoryTypeCount; i++ {
		v.memProperties.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 &&
			v.memProperties.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, errors.New("vulkan error: no suitable memory type")
}

func (v *VulkanDevice) allocateMemory(req vk.MemoryRequirements) (vk.DeviceMemory, error) {
	memoryType, err := v.findMemoryType(req.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(v.logicalDevice, &mai, nil, &memory)); err != nil {
		return vk.NullDeviceMemory, errors.New("vk.AllocateMemory(): " + err.Error())
	}
	return memory, nil
}

// Initialized implements interface
func (v *VulkanDevice) Initialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// Info implements interface
func (v *VulkanDevice) Info() (Info, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initialized {
		return Info{}, ErrNotInitialized
	}
	info := v.info
	info.MemoryAvailable = info.MemoryTotal - v.memoryUsed
	return info, nil
}

// CreateBuffer implements interface
func (v *VulkanDevice) CreateBuffer(size int, usage BufferUsage, data []byte) (Handle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return 0, ErrNotInitialized
	}

	usageFlags := vk.BufferUsageVertexBufferBit
	switch usage {
	case IndexBuffer:
		usageFlags = vk.BufferUsageIndexBufferBit
	case UniformBuffer:
		usageFlags = vk.BufferUsageUniformBufferBit
	}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usageFlags),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(v.logicalDevice, &createInfo, nil, &buffer)); err != nil {
		return 0, errors.New("vk.CreateBuffer(): " + err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.logicalDevice, buffer, &req)
	req.Deref()

	memory, err := v.allocateMemory(req)
	if err != nil {
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		return 0, err
	}
	vk.BindBufferMemory(v.logicalDevice, buffer, memory, 0)

	if len(data) > 0 {
		var mapped unsafe.Pointer
		vk.MapMemory(v.logicalDevice, memory, 0, vk.DeviceSize(len(data)), 0, &mapped)
		vk.Memcopy(mapped, data)
		vk.UnmapMemory(v.logicalDevice, memory)
	}

	h := v.table.alloc(kindBuffer, uint64(req.Size))
	v.buffers[h] = vulkanBuffer{buffer: buffer, memory: memory}
	v.memoryUsed += uint64(req.Size)
	return h, nil
}

// CreateTexture implements interface
func (v *VulkanDevice) CreateTexture(width, height uint32, format TextureFormat, data []byte) (Handle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return 0, ErrNotInitialized
	}

	imageFormat := vk.FormatR8g8b8a8Unorm
	if format == FormatDepth24Stencil8 {
		imageFormat = vk.FormatD24UnormS8Uint
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        imageFormat,
		Tiling:        vk.ImageTilingLinear,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}
	var image vk.Image
	if err := vk.Error(vk.CreateImage(v.logicalDevice, &createInfo, nil, &image)); err != nil {
		return 0, errors.New("vk.CreateImage(): " + err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.logicalDevice, image, &req)
	req.Deref()

	memory, err := v.allocateMemory(req)
	if err != nil {
		vk.DestroyImage(v.logicalDevice, image, nil)
		return 0, err
	}
	vk.BindImageMemory(v.logicalDevice, image, memory, 0)

	if len(data) > 0 {
		var mapped unsafe.Pointer
		vk.MapMemory(v.logicalDevice, memory, 0, vk.DeviceSize(len(data)), 0, &mapped)
		vk.Memcopy(mapped, data)
		vk.UnmapMemory(v.logicalDevice, memory)
	}

	h := v.table.alloc(kindTexture, uint64(req.Size))
	v.images[h] = vulkanImage{image: image, memory: memory}
	v.memoryUsed += uint64(req.Size)
	return h, nil
}

// CreateShader implements interface. Source bytes must be SPIR-V words.
func (v *VulkanDevice) CreateShader(source []byte, stage ShaderStage) (Handle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return 0, ErrNotInitialized
	}
	if len(source) == 0 || len(source)%4 != 0 {
		return 0, fmt.Errorf("%w: %s source is not SPIR-V aligned", ErrCompile, stage)
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(source)),
		PCode:    core.SliceUint32(source),
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(v.logicalDevice, &smci, nil, &module)); err != nil {
		return 0, fmt.Errorf("%w: vk.CreateShaderModule(): %s", ErrCompile, err.Error())
	}

	h := v.table.alloc(kindShader, uint64(len(source)))
	v.shaders[h] = module
	return h, nil
}

// Release implements interface
func (v *VulkanDevice) Release(h Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	size, err := v.table.release(h)
	if err != nil {
		return err
	}
	v.memoryUsed -= size

	if b, ok := v.buffers[h]; ok {
		vk.DestroyBuffer(v.logicalDevice, b.buffer, nil)
		vk.FreeMemory(v.logicalDevice, b.memory, nil)
		delete(v.buffers, h)
	}
	if i, ok := v.images[h]; ok {
		vk.DestroyImage(v.logicalDevice, i.image, nil)
		vk.FreeMemory(v.logicalDevice, i.memory, nil)
		delete(v.images, h)
	}
	if s, ok := v.shaders[h]; ok {
		vk.DestroyShaderModule(v.logicalDevice, s, nil)
		delete(v.shaders, h)
	}
	return nil
}

// BeginFrame implements interface
func (v *VulkanDevice) BeginFrame() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return ErrNotInitialized
	}
	if v.frameOpen {
		return ErrFrameOpen
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(v.commandBuffer, &cbbi)); err != nil {
		return errors.New("vk.BeginCommandBuffer(): " + err.Error())
	}
	vk.CmdSetViewport(v.commandBuffer, 0, 1, []vk.Viewport{v.viewport})
	v.frameOpen = true
	return nil
}

// EndFrame implements interface
func (v *VulkanDevice) EndFrame() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return ErrNotInitialized
	}
	if !v.frameOpen {
		return ErrNoFrame
	}
	v.frameOpen = false

	if err := vk.Error(vk.EndCommandBuffer(v.commandBuffer)); err != nil {
		return errors.New("vk.EndCommandBuffer(): " + err.Error())
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.commandBuffer},
	}}
	if err := vk.Error(vk.QueueSubmit(v.deviceQueue, 1, submit, nil)); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	vk.QueueWaitIdle(v.deviceQueue)
	return nil
}

// Clear implements interface. Without a surface there is no attachment
// to clear, the color is tracked for the pass that owns one.
func (v *VulkanDevice) Clear(color glm.Vec4) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearColor = color
}

// SetViewport implements interface
func (v *VulkanDevice) SetViewport(x, y int32, width, height uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.viewport = vk.Viewport{
		X:        float32(x),
		Y:        float32(y),
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1,
	}
	if v.frameOpen {
		vk.CmdSetViewport(v.commandBuffer, 0, 1, []vk.Viewport{v.viewport})
	}
}

// Draw implements interface
func (v *VulkanDevice) Draw(vertexCount, firstVertex uint32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return ErrNotInitialized
	}
	if !v.frameOpen {
		return ErrNoFrame
	}
	vk.CmdDraw(v.commandBuffer, vertexCount, 1, firstVertex, 0)
	return nil
}

// DrawIndexed implements interface
func (v *VulkanDevice) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return ErrNotInitialized
	}
	if !v.frameOpen {
		return ErrNoFrame
	}
	vk.CmdDrawIndexed(v.commandBuffer, indexCount, 1, firstIndex, baseVertex, 0)
	return nil
}

// MemoryUsage implements interface
func (v *VulkanDevice) MemoryUsage() (uint64, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initialized {
		return 0, 0
	}
	return v.memoryUsed, v.info.MemoryTotal
}

// Shutdown implements interface
func (v *VulkanDevice) Shutdown() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}
	vk.DeviceWaitIdle(v.logicalDevice)

	for h, b := range v.buffers {
		vk.DestroyBuffer(v.logicalDevice, b.buffer, nil)
		vk.FreeMemory(v.logicalDevice, b.memory, nil)
		delete(v.buffers, h)
	}
	for h, i := range v.images {
		vk.DestroyImage(v.logicalDevice, i.image, nil)
		vk.FreeMemory(v.logicalDevice, i.memory, nil)
		delete(v.images, h)
	}
	for h, s := range v.shaders {
		vk.DestroyShaderModule(v.logicalDevice, s, nil)
		delete(v.shaders, h)
	}
	v.table.reset()
	v.memoryUsed = 0

	vk.DestroyCommandPool(v.logicalDevice, v.commandPool, nil)
	vk.DestroyDevice(v.logicalDevice, nil)
	vk.DestroyInstance(v.instance, nil)
	v.availableDevices = nil
	v.frameOpen = false
	v.initialized = false

	log.WithField("component", "device").Info("vulkan device shut down")
	return nil
}
