// Package engine defines the narrow contract genloop needs from an inference
// engine: model loading, tokenization, single-token decoding, sampling, logits
// and opaque state serialization.
//
// The real implementation binds llama.cpp and is compiled with `-tags=llama`.
// Without the tag NewLlamaBackend returns a backend that fails fast with
// ErrUnavailable, keeping default builds free of native libraries.
package engine

import "errors"

// ErrUnavailable is returned when the engine runtime is not built into the
// binary or its shared library could not be loaded.
var ErrUnavailable = errors.New("inference engine unavailable")

// Token is a vocabulary index.
type Token int32

// NoToken marks an absent special token (e.g. a vocabulary without EOT).
const NoToken Token = -1

// DefaultSeed asks the sampler for a random seed.
const DefaultSeed uint32 = 0xFFFFFFFF

// ModelParams configures model loading.
type ModelParams struct {
	GPULayers int
}

// ContextParams configures an inference context. Batch, micro-batch and
// sequence count are always 1.
type ContextParams struct {
	// ContextLength of 0 uses the model's trained context length.
	ContextLength  int
	Threads        int
	FlashAttention bool
}

// SamplerParams configures the sampler chain, applied in order:
// grammar (if set), top-k, top-p, min-p, temperature, distribution(seed).
type SamplerParams struct {
	Seed        uint32
	TopK        int
	TopP        float32
	MinP        float32
	Temperature float32
	Grammar     string
}

// Backend is the process-wide engine runtime.
type Backend interface {
	Init() error
	LoadModel(path string, p ModelParams) (Model, error)
	Close() error
}

// Model is a loaded model file.
type Model interface {
	Vocab() Vocab
	// Meta returns a string metadata value such as "general.name".
	Meta(key string) (string, bool)
	HasEncoder() bool
	TrainedContextLength() int
	NewSampler(p SamplerParams) (Sampler, error)
	NewContext(p ContextParams) (Context, error)
	Close() error
}

// Vocab exposes the tokenizer of a model.
type Vocab interface {
	Len() int
	// Tokenize always parses special tokens; addSpecial controls BOS/EOS.
	Tokenize(text string, addSpecial bool) []Token
	// Piece renders a token as output text, special tokens included.
	Piece(t Token) string
	// Text returns the raw vocabulary entry of a token.
	Text(t Token) string
	IsEOG(t Token) bool
	IsControl(t Token) bool
	EOT() Token
	EOS() Token
	AddBOS() bool
}

// Context holds the sequence memory (KV cache) of a single conversation.
type Context interface {
	Capacity() int
	// Decode evaluates one token at position pos. pos may not exceed the
	// number of positions in memory; decoding at an earlier position first
	// drops every position from pos onward, so memory always matches the
	// caller's token count. Logits of this token are retained only when
	// logits is true.
	Decode(t Token, pos int, logits bool) error
	// Logits returns the logits of the last decoded token that requested them.
	Logits() []float32
	ClearMemory()
	StateSize() int
	// StateRead copies the state into dst and returns the number of bytes written.
	StateRead(dst []byte) int
	// StateWrite loads state from src and returns the number of bytes consumed.
	StateWrite(src []byte) int
	Close() error
}

// Sampler picks the next token from a context's last logits.
type Sampler interface {
	Sample(c Context) Token
	Accept(t Token)
	Reset()
	Close() error
}
