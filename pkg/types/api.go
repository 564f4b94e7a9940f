package types

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	// Optional model to ensure first; empty uses the loaded model.
	// example: llama3.2
	Model string `json:"model,omitempty" example:"llama3.2"`
	// Required prompt text to continue.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Maximum number of new tokens (1..4096). Omitted uses the server default.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// If true, stream pieces as NDJSON lines followed by a final summary line.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
}

// Usage contains token accounting.
type Usage struct {
	// example: 12
	PromptTokens int `json:"prompt_tokens" example:"12"`
	// example: 64
	CompletionTokens int `json:"completion_tokens" example:"64"`
	// example: 76
	TotalTokens int `json:"total_tokens" example:"76"`
}

// GenerateResponse is the non-streaming reply and the final streamed line.
type GenerateResponse struct {
	// Generated text.
	// example: Waves fold into foam
	Text string `json:"text" example:"Waves fold into foam"`
	// Why generation ended: stop, length, decode_error, canceled.
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
	Usage        Usage  `json:"usage"`
	// Completion throughput.
	// example: 38.5
	TokensPerSecond float64 `json:"tokens_per_second" example:"38.5"`
	// example: 1662
	DurationMS int64 `json:"duration_ms" example:"1662"`
	// Set on the final streamed line.
	Done bool `json:"done,omitempty"`
	// Set on the final streamed line when generation stopped on an error
	// after output had started.
	Error string `json:"error,omitempty"`
}

// GenerateChunk is one streamed NDJSON line carrying a piece of text.
type GenerateChunk struct {
	// example: Waves
	Text string `json:"text" example:"Waves"`
}

// SamplingRequest is the body of PUT /sampling. Omitted fields keep their value.
type SamplingRequest struct {
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
	// example: 40
	TopK *int `json:"top_k,omitempty" example:"40"`
	// example: 42
	Seed *uint32 `json:"seed,omitempty" example:"42"`
}

// SamplingResponse reports the effective sampling parameters.
type SamplingResponse struct {
	// example: 0.7
	Temperature float64 `json:"temperature" example:"0.7"`
	// example: 0.9
	TopP float64 `json:"top_p" example:"0.9"`
	// example: 40
	TopK int `json:"top_k" example:"40"`
	// example: 0
	Seed uint32 `json:"seed" example:"0"`
}

// LoadRequest is the body of POST /model: switch to another model.
type LoadRequest struct {
	// Registry name or path to a model file.
	// example: llama3.2
	Model string `json:"model" example:"llama3.2"`
	// If true, return 202 immediately and load in the background.
	// example: false
	Async bool `json:"async,omitempty" example:"false"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Session state: unloaded, loading, ready, generating, failed.
	// example: ready
	State string `json:"state" example:"ready"`
	// Currently loaded model, if any.
	Model *ModelInfo `json:"model,omitempty"`
	// Backend name.
	// example: llama.cpp (yzma)
	Engine   string           `json:"engine" example:"llama.cpp (yzma)"`
	Hardware HardwareConfig   `json:"hardware"`
	Sampling SamplingResponse `json:"sampling"`
	// Current queue length for incoming requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight requests currently being processed.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of model loads attempted.
	// example: 2
	LoadsTotal uint64 `json:"loads_total" example:"2"`
}

// HardwareResponse is returned by GET /hardware.
type HardwareResponse struct {
	GPUs []GPUInfo `json:"gpus"`
	// example: 16
	LogicalCores int `json:"logical_cores" example:"16"`
	// example: AMD Ryzen 9 7950X 16-Core Processor
	CPUBrand string `json:"cpu_brand,omitempty" example:"AMD Ryzen 9 7950X 16-Core Processor"`
	// Configuration DetectOptimalConfig would choose now.
	Recommended HardwareConfig `json:"recommended"`
	// Backend devices reported by the engine, if any.
	EngineDevices []string `json:"engine_devices,omitempty"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	// example: 38.5
	TokensPerSecond float64 `json:"tokens_per_second" example:"38.5"`
	// example: 8000
	MemoryUsageMB uint64 `json:"memory_usage_mb" example:"8000"`
	// example: 16000
	MemoryTotalMB uint64 `json:"memory_total_mb" example:"16000"`
	// example: 5000
	VRAMUsageMB uint64 `json:"vram_usage_mb" example:"5000"`
	// example: 24576
	VRAMTotalMB uint64 `json:"vram_total_mb" example:"24576"`
	// example: 1
	ActiveGPUs int `json:"active_gpus" example:"1"`
	// example: 12.5
	CPUUsagePercent float64 `json:"cpu_usage_percent" example:"12.5"`
}
