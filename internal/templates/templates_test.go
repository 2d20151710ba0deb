package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownModels(t *testing.T) {
	cases := []struct {
		name      string
		family    string
		rev       string
		thinkBeg  string
		promptBeg string
	}{
		{"Phi 3.5 Mini Instruct", "phi3", "<|end|>", "", "\n<|user|>\n"},
		{"Phi 4", "phi4", "", "", "<|im_start|>user<|im_sep|>"},
		{"Meta Llama 3.1 8B Instruct", "llama3", "", "", "<|start_header_id|>user<|end_header_id|>\n\n"},
		{"Qwen2.5 3B Instruct", "chatml", "", "", "<|im_start|>user\n"},
		{"Qwen3-0.6B", "qwen3", "", "<think>", "<|im_start|>user\n"},
		{"Gemma 3 1b It", "gemma", "", "", "<start_of_turn>user\n"},
		{"Aya Expanse 8b", "cohere", "", "", "<|START_OF_TURN_TOKEN|><|USER_TOKEN|>"},
		{"OLMo 2 0425 1B Instruct", "olmo2", "", "", "\n<|user|>\n"},
	}
	for _, c := range cases {
		tpl, ok := Lookup(c.name)
		require.True(t, ok, c.name)
		assert.Equal(t, c.family, tpl.Family, c.name)
		assert.Equal(t, c.rev, tpl.ReversePrompt, c.name)
		assert.Equal(t, c.thinkBeg, tpl.ThinkBegin, c.name)
		assert.Equal(t, c.promptBeg, tpl.PromptBegin, c.name)
	}
}

func TestTurnsComposesDelimiters(t *testing.T) {
	tpl, ok := Lookup("SmolLM2 360M Instruct")
	require.True(t, ok)
	assert.Equal(t, "<|im_start|>system\n", tpl.SystemPromptBegin)
	assert.Equal(t, "<|im_end|>\n<|im_start|>user\n", tpl.SystemPromptMid)
	assert.Equal(t, "<|im_end|>\n<|im_start|>assistant\n", tpl.SystemPromptEnd)
	assert.Equal(t, tpl.SystemPromptEnd, tpl.PromptEnd)
}

func TestQwen3SharesChatMLDelimiters(t *testing.T) {
	q3, _ := Lookup("Qwen3 8B")
	q2, _ := Lookup("Qwen2-0.5B-Instruct")
	assert.Equal(t, q2.PromptBegin, q3.PromptBegin)
	assert.Equal(t, q2.SystemPromptEnd, q3.SystemPromptEnd)
	assert.Equal(t, "</think>", q3.ThinkEnd)
	assert.Empty(t, q2.ThinkEnd)
}

func TestLookupIsExact(t *testing.T) {
	_, ok := Lookup("phi 4")
	assert.False(t, ok)
	_, ok = Lookup("")
	assert.False(t, ok)
}

func TestDelimitersFitParameterLimits(t *testing.T) {
	for _, n := range Names() {
		tpl, _ := Lookup(n)
		for _, d := range []string{tpl.SystemPromptBegin, tpl.SystemPromptMid, tpl.SystemPromptEnd, tpl.PromptBegin, tpl.PromptEnd} {
			if len(d) > 128 {
				t.Fatalf("%s: delimiter %q exceeds 128 bytes", n, d)
			}
		}
		for _, d := range []string{tpl.ReversePrompt, tpl.ThinkBegin, tpl.ThinkEnd} {
			if len(d) > 64 || strings.ContainsRune(d, 0) {
				t.Fatalf("%s: %q exceeds 64 bytes", n, d)
			}
		}
	}
}
