package types

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	// Required user prompt. It is framed with the session's delimiters.
	// example: What is the capital of France?
	Prompt string `json:"prompt" example:"What is the capital of France?"`
}

// TokenEvent is one NDJSON line streamed by POST /query.
type TokenEvent struct {
	// Engine token id. 0 for the repeated reverse prompt.
	// example: 9707
	Token int32 `json:"token" example:"9707"`
	// Text of the token.
	// example: Paris
	Piece string `json:"piece" example:"Paris"`
	// Token classification.
	// example: sampled_visible
	Type string `json:"type" example:"sampled_visible"`
	// Probability of each decimal digit, present only on the first visible
	// non-blank generated token.
	Digits *[10]float32 `json:"digits,omitempty"`
}

// Usage summarizes a finished query.
type Usage struct {
	// Tokens decoded for the framed prompt.
	// example: 24
	PromptTokens int `json:"prompt_tokens" example:"24"`
	// Tokens produced by the loop, interrupt tokens included.
	// example: 12
	GeneratedTokens int `json:"generated_tokens" example:"12"`
	// Tokens now held in the context.
	// example: 36
	ContextTokens int `json:"context_tokens" example:"36"`
	// Generation throughput.
	// example: 31.5
	TokensPerSecond float64 `json:"tokens_per_second" example:"31.5"`
}

// DoneEvent is the last NDJSON line of POST /query.
type DoneEvent struct {
	Done bool `json:"done" example:"true"`
	// Why generation stopped: eog, reverse_prompt or interrupt.
	// example: eog
	Reason string `json:"reason,omitempty" example:"eog"`
	Usage  Usage  `json:"usage"`
	// Set when generation failed after streaming began.
	Error string `json:"error,omitempty"`
}

// ReinitRequest is the body of POST /session. Zero fields keep the server's
// configured defaults.
type ReinitRequest struct {
	// Model id from GET /models.
	// example: qwen3-8b-q4_k_m.gguf
	Model string `json:"model,omitempty" example:"qwen3-8b-q4_k_m.gguf"`
	// example: You are a concise assistant.
	SystemPrompt string `json:"system_prompt,omitempty" example:"You are a concise assistant."`
	// example: 4096
	ContextLength int `json:"context_length,omitempty" example:"4096"`
	// example: 42
	Seed *uint32 `json:"seed,omitempty" example:"42"`
	// example: 0.7
	Temperature *float32 `json:"temperature,omitempty" example:"0.7"`
	// GBNF grammar constraining the output.
	Grammar string `json:"grammar,omitempty"`
}

// TokenCountRequest is the body of POST /tokens/count.
type TokenCountRequest struct {
	// example: Hello world
	Text string `json:"text" example:"Hello world"`
	// Add BOS and parse special tokens as the model would at the start of a
	// conversation.
	AddSpecial bool `json:"add_special,omitempty"`
}

// TokenCountResponse is returned by POST /tokens/count.
type TokenCountResponse struct {
	// example: 2
	Tokens int `json:"tokens" example:"2"`
}

// SnapshotInfo describes the current snapshot or a stored one.
type SnapshotInfo struct {
	// Empty for the current (in-memory) snapshot.
	// example: after-system-prompt
	Name string `json:"name,omitempty" example:"after-system-prompt"`
	// example: 0b4f0d0e-4a4e-4d6b-9d53-3f0c2f0a6c11
	ID string `json:"id,omitempty" example:"0b4f0d0e-4a4e-4d6b-9d53-3f0c2f0a6c11"`
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix,omitempty" example:"1700000000"`
	// example: 36
	TokenCount int `json:"token_count" example:"36"`
	// example: sampled_eog
	LastTokenType string `json:"last_token_type" example:"sampled_eog"`
	// Engine state size in bytes.
	// example: 1048576
	SizeBytes int `json:"size_bytes" example:"1048576"`
}

// SnapshotsResponse wraps GET /snapshots.
type SnapshotsResponse struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
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
	// Session state: empty, loading, ready or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Path of the loaded model.
	// example: /home/user/models/qwen3-8b-q4_k_m.gguf
	ModelPath string `json:"model_path,omitempty" example:"/home/user/models/qwen3-8b-q4_k_m.gguf"`
	// Context capacity in tokens.
	// example: 4096
	ContextLength int `json:"context_length" example:"4096"`
	// Tokens held in the context.
	// example: 36
	TokenCount int `json:"token_count" example:"36"`
	// Type of the last delivered token.
	// example: sampled_eog
	LastTokenType string `json:"last_token_type" example:"sampled_eog"`
	// Current (in-memory) snapshot, if any.
	Snapshot *SnapshotInfo `json:"snapshot,omitempty"`
	// Requests waiting for the session.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Requests currently using the session (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 12
	QueriesTotal uint64 `json:"queries_total" example:"12"`
	// example: 2
	ReinitsTotal uint64 `json:"reinits_total" example:"2"`
}
