package session

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"

	"genloop/internal/engine"
	"genloop/internal/templates"
)

// Maximum byte lengths accepted for string parameters.
const (
	MaxGrammarLen   = 511
	MaxModelPathLen = 255
	MaxDelimLen     = 128
	MaxSysPromptLen = 511
	MaxRevPromptLen = 64
	MaxThinkLen     = 64
)

// Params configures a Session. It is copied by value into the Session on
// Open; later changes to the caller's copy have no effect.
type Params struct {
	GPULayers int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`

	// Seed of the sampler; engine.DefaultSeed picks a random one.
	Seed uint32 `json:"seed" yaml:"seed" toml:"seed"`
	// ContextLength of 0 uses the model's trained context length.
	ContextLength int `json:"context_length" yaml:"context_length" toml:"context_length"`
	// Threads of 0 uses the number of physical cores.
	Threads        int  `json:"threads" yaml:"threads" toml:"threads"`
	FlashAttention bool `json:"flash_attention" yaml:"flash_attention" toml:"flash_attention"`

	TopK        int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP        float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	MinP        float32 `json:"min_p" yaml:"min_p" toml:"min_p"`
	Temperature float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	Grammar     string  `json:"grammar" yaml:"grammar" toml:"grammar"`

	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`

	SystemPrompt      string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	PromptBegin       string `json:"prompt_begin" yaml:"prompt_begin" toml:"prompt_begin"`
	PromptEnd         string `json:"prompt_end" yaml:"prompt_end" toml:"prompt_end"`
	SystemPromptBegin string `json:"system_prompt_begin" yaml:"system_prompt_begin" toml:"system_prompt_begin"`
	SystemPromptMid   string `json:"system_prompt_mid" yaml:"system_prompt_mid" toml:"system_prompt_mid"`
	SystemPromptEnd   string `json:"system_prompt_end" yaml:"system_prompt_end" toml:"system_prompt_end"`
	ReversePrompt     string `json:"reverse_prompt" yaml:"reverse_prompt" toml:"reverse_prompt"`
	ThinkBegin        string `json:"think_begin" yaml:"think_begin" toml:"think_begin"`
	ThinkEnd          string `json:"think_end" yaml:"think_end" toml:"think_end"`

	// TemplateFromModel overlays the delimiters (not the system prompt) with
	// the template registered for the model's declared name, if any.
	TemplateFromModel bool `json:"template_from_model" yaml:"template_from_model" toml:"template_from_model"`

	// OnToken receives every delivered token. Required.
	OnToken Handler `json:"-" yaml:"-" toml:"-"`
}

// DefaultParams returns sampling defaults suitable for chat.
func DefaultParams() Params {
	return Params{
		Seed:              engine.DefaultSeed,
		ContextLength:     2048,
		TopK:              40,
		TopP:              0.95,
		MinP:              0.05,
		Temperature:       0.8,
		TemplateFromModel: true,
	}
}

// Validate checks string lengths and numeric ranges.
func (p Params) Validate() error {
	limits := []struct {
		name string
		val  string
		max  int
	}{
		{"grammar", p.Grammar, MaxGrammarLen},
		{"model_path", p.ModelPath, MaxModelPathLen},
		{"system_prompt", p.SystemPrompt, MaxSysPromptLen},
		{"prompt_begin", p.PromptBegin, MaxDelimLen},
		{"prompt_end", p.PromptEnd, MaxDelimLen},
		{"system_prompt_begin", p.SystemPromptBegin, MaxDelimLen},
		{"system_prompt_mid", p.SystemPromptMid, MaxDelimLen},
		{"system_prompt_end", p.SystemPromptEnd, MaxDelimLen},
		{"reverse_prompt", p.ReversePrompt, MaxRevPromptLen},
		{"think_begin", p.ThinkBegin, MaxThinkLen},
		{"think_end", p.ThinkEnd, MaxThinkLen},
	}
	for _, l := range limits {
		if len(l.val) > l.max {
			return fmt.Errorf("%w: %s is %d bytes, max %d", ErrInvalidArgument, l.name, len(l.val), l.max)
		}
	}
	if p.ModelPath == "" {
		return fmt.Errorf("%w: model_path is required", ErrInvalidArgument)
	}
	if p.ContextLength < 0 || p.Threads < 0 {
		return fmt.Errorf("%w: negative context_length or threads", ErrInvalidArgument)
	}
	if p.ThinkBegin != "" && p.ThinkEnd == "" {
		return fmt.Errorf("%w: think_end is required with think_begin", ErrInvalidArgument)
	}
	return nil
}

// applyTemplate overwrites the delimiter fields. The system prompt is kept.
func (p *Params) applyTemplate(t templates.Template) {
	p.PromptBegin = t.PromptBegin
	p.PromptEnd = t.PromptEnd
	p.SystemPromptBegin = t.SystemPromptBegin
	p.SystemPromptMid = t.SystemPromptMid
	p.SystemPromptEnd = t.SystemPromptEnd
	p.ReversePrompt = t.ReversePrompt
	p.ThinkBegin = t.ThinkBegin
	p.ThinkEnd = t.ThinkEnd
}

func (p Params) modelParams() engine.ModelParams {
	return engine.ModelParams{GPULayers: p.GPULayers}
}

func (p Params) samplerParams() engine.SamplerParams {
	return engine.SamplerParams{
		Seed:        p.Seed,
		TopK:        p.TopK,
		TopP:        p.TopP,
		MinP:        p.MinP,
		Temperature: p.Temperature,
		Grammar:     p.Grammar,
	}
}

func (p Params) contextParams() engine.ContextParams {
	return engine.ContextParams{
		ContextLength:  p.ContextLength,
		Threads:        p.Threads,
		FlashAttention: p.FlashAttention,
	}
}

// MarshalZerologObject logs every parameter except the handler, which is
// reported only as present or missing.
func (p Params) MarshalZerologObject(e *zerolog.Event) {
	e.Int("gpu_layers", p.GPULayers).
		Uint32("seed", p.Seed).
		Int("context_length", p.ContextLength).
		Int("threads", p.Threads).
		Bool("flash_attention", p.FlashAttention).
		Int("top_k", p.TopK).
		Float32("top_p", p.TopP).
		Float32("min_p", p.MinP).
		Float32("temperature", p.Temperature).
		Str("grammar", p.Grammar).
		Str("model_path", p.ModelPath).
		Str("system_prompt", p.SystemPrompt).
		Str("prompt_begin", p.PromptBegin).
		Str("prompt_end", p.PromptEnd).
		Str("system_prompt_begin", p.SystemPromptBegin).
		Str("system_prompt_mid", p.SystemPromptMid).
		Str("system_prompt_end", p.SystemPromptEnd).
		Str("reverse_prompt", p.ReversePrompt).
		Str("think_begin", p.ThinkBegin).
		Str("think_end", p.ThinkEnd).
		Bool("template_from_model", p.TemplateFromModel).
		Bool("handler", p.OnToken != nil)
}

// physicalCores returns the number of physical cores, falling back to the
// logical CPU count.
func physicalCores() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
