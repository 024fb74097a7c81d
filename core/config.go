package core

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Device   DeviceConfiguration
	Renderer RendererConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between host event polls, in milliseconds
	EventPollDelay int
}

// DeviceConfiguration selects and configures the graphics backend
type DeviceConfiguration struct {
	// Backend names the graphics API to initialize: "null", "vulkan" or "dx12"
	Backend string

	DebugMode  bool
	Extensions []string
	Layers     []string

	// MemoryBudget caps the memory pool of the null backend, in bytes.
	// Ignored by backends that report real device memory
	MemoryBudget uint64
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth   uint32
	ScreenHeight  uint32
	SwapchainSize uint32

	// ShaderDirectory is walked for shader sources at startup,
	// and its files are watched for hot reload afterwards
	ShaderDirectory string

	FrustumCulling bool
	SortByDistance bool
	SortByMaterial bool
}
