package types

// ModelInfo describes the model file a session has loaded.
type ModelInfo struct {
	// Identifier the caller asked for.
	// example: llama3.2
	ID string `json:"id" example:"llama3.2"`
	// Absolute path to the model file on disk.
	// example: /home/user/.ollama/models/blobs/sha256-6a0746a1ec1a
	Path string `json:"path" example:"/home/user/.ollama/models/blobs/sha256-6a0746a1ec1a"`
	// example: 2019377376
	SizeBytes int64 `json:"size_bytes" example:"2019377376"`
	// Unix seconds when the load finished.
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
}

// GPUInfo describes one accelerator.
type GPUInfo struct {
	// example: 0
	Index int `json:"index" example:"0"`
	// example: NVIDIA GeForce RTX 4090
	Name string `json:"name" example:"NVIDIA GeForce RTX 4090"`
	// example: 24564
	MemoryTotalMB int `json:"memory_total_mb" example:"24564"`
	// example: 1024
	MemoryUsedMB int `json:"memory_used_mb" example:"1024"`
}

// HardwareConfig is the resolved device placement of a session.
type HardwareConfig struct {
	// cpu_only, single_gpu, dual_gpu or auto.
	// example: single_gpu
	GPUMode string `json:"gpu_mode" example:"single_gpu"`
	// example: 999
	GPULayers int `json:"gpu_layers" example:"999"`
	// example: 0
	MainGPU int `json:"main_gpu" example:"0"`
	// example: true
	UseMMap bool `json:"use_mmap" example:"true"`
	// example: false
	UseMLock bool `json:"use_mlock" example:"false"`
	// example: 7
	CPUThreads  int       `json:"cpu_threads" example:"7"`
	TensorSplit []float32 `json:"tensor_split,omitempty"`
}
