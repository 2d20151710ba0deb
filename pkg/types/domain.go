package types

// Model represents a discoverable GGUF model on disk.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: qwen3-8b-q4_k_m.gguf
	ID string `json:"id" example:"qwen3-8b-q4_k_m.gguf"`
	// Human-friendly name.
	// example: qwen3-8b-q4_k_m
	Name string `json:"name" example:"qwen3-8b-q4_k_m"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/qwen3-8b-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/qwen3-8b-q4_k_m.gguf"`
	// Quantization level parsed from the file name, if any.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Size of the file in bytes.
	// example: 4920734016
	SizeBytes int64 `json:"size_bytes,omitempty" example:"4920734016"`
}
