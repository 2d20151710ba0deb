// Package templates maps model names, as declared in a model's "general.name"
// metadata, to the prompt delimiters of their chat format.
package templates

// Template holds the delimiters wrapped around system and user prompts, the
// reverse prompt that ends a turn and the thinking-mode delimiters.
type Template struct {
	Family            string
	SystemPromptBegin string
	SystemPromptMid   string
	SystemPromptEnd   string
	PromptBegin       string
	PromptEnd         string
	ReversePrompt     string
	ThinkBegin        string
	ThinkEnd          string
}

// turns builds a template for formats that frame every turn as
// begin+role ... end.
func turns(family, beg, sys, user, bot, end string) Template {
	return Template{
		Family:            family,
		SystemPromptBegin: beg + sys,
		SystemPromptMid:   end + beg + user,
		SystemPromptEnd:   end + beg + bot,
		PromptBegin:       beg + user,
		PromptEnd:         end + beg + bot,
	}
}

func withThinking(t Template, family, beg, end string) Template {
	t.Family = family
	t.ThinkBegin = beg
	t.ThinkEnd = end
	return t
}

var (
	phi3 = Template{
		Family:            "phi3",
		SystemPromptBegin: "<|system|>\n",
		SystemPromptMid:   "<|end|>\n<|user|>\n",
		SystemPromptEnd:   "<|end|>\n<|assistant|>\n",
		PromptBegin:       "\n<|user|>\n",
		PromptEnd:         "<|end|>\n<|assistant|>\n",
		ReversePrompt:     "<|end|>",
	}
	phi4 = Template{
		Family:            "phi4",
		SystemPromptBegin: "<|im_start|>system<|im_sep|>",
		SystemPromptMid:   "<|im_end|><|im_start|>user<|im_sep|>",
		SystemPromptEnd:   "<|im_end|><|im_start|>assistant<|im_sep|>",
		PromptBegin:       "<|im_start|>user<|im_sep|>",
		PromptEnd:         "<|im_end|><|im_start|>assistant<|im_sep|>",
	}
	llama2 = Template{
		Family:            "llama2",
		SystemPromptBegin: "[INST] <<SYS>>\n",
		SystemPromptMid:   "\n<</SYS>>\n\n",
		SystemPromptEnd:   " [/INST] ",
		PromptBegin:       "\n<s>[INST] ",
		PromptEnd:         " [/INST]",
	}
	llama3 = Template{
		Family:            "llama3",
		SystemPromptBegin: "<|start_header_id|>system<|end_header_id|>\n\n",
		SystemPromptMid:   "<|eot_id|><|start_header_id|>user<|end_header_id|>\n\n",
		SystemPromptEnd:   "<|eot_id|><|start_header_id|>assistant<|end_header_id|>",
		PromptBegin:       "<|start_header_id|>user<|end_header_id|>\n\n",
		PromptEnd:         "<|eot_id|><|start_header_id|>assistant<|end_header_id|>",
	}
	chatML = turns("chatml", "<|im_start|>", "system\n", "user\n", "assistant\n", "<|im_end|>\n")
	qwen3  = withThinking(chatML, "qwen3", "<think>", "</think>")
	gemma  = Template{
		Family:            "gemma",
		SystemPromptBegin: "<start_of_turn>user\n",
		SystemPromptMid:   "\n\n",
		SystemPromptEnd:   "<end_of_turn>\n<start_of_turn>model\n",
		PromptBegin:       "<start_of_turn>user\n",
		PromptEnd:         "<end_of_turn>\n<start_of_turn>model\n",
	}
	exaone3 = Template{
		Family:            "exaone3",
		SystemPromptBegin: "[|system|]",
		SystemPromptMid:   "[|endofturn|]\n[|user|]",
		SystemPromptEnd:   "\n[|assistant|]",
		PromptBegin:       "[|user|]",
		PromptEnd:         "\n[|assistant|]",
	}
	cohere = turns("cohere",
		"<|START_OF_TURN_TOKEN|>", "<|SYSTEM_TOKEN|>", "<|USER_TOKEN|>",
		"<|CHATBOT_TOKEN|>", "<|END_OF_TURN_TOKEN|>")
	mistralSmall = Template{
		Family:            "mistral",
		SystemPromptBegin: "[SYSTEM_PROMPT]",
		SystemPromptMid:   "[/SYSTEM_PROMPT][INST]",
		SystemPromptEnd:   "[/INST]",
		PromptBegin:       "[INST]",
		PromptEnd:         "[/INST]",
	}
	mistral7B = Template{
		Family:            "mistral7b",
		SystemPromptBegin: "[INST]",
		SystemPromptMid:   "\n",
		SystemPromptEnd:   " [/INST]",
		PromptBegin:       "[INST]",
		PromptEnd:         " [/INST]",
	}
	olmo2 = Template{
		Family:            "olmo2",
		SystemPromptBegin: "<|system|>\n",
		SystemPromptMid:   "\n<|user|>\n",
		SystemPromptEnd:   "\n<|assistant|>\n",
		PromptBegin:       "\n<|user|>\n",
		PromptEnd:         "\n<|assistant|>\n",
	}
)

// byName is matched exactly against "general.name".
var byName = map[string]Template{}

func register(t Template, names ...string) {
	for _, n := range names {
		byName[n] = t
	}
}

func init() {
	register(phi3, "Phi3", "Phi 3 Mini 4k Instruct", "Phi 3.5 Mini Instruct")
	register(phi4, "Phi 4")
	register(llama2, "LLaMA v2")
	register(llama3,
		"Meta-Llama-3-8B-Instruct",
		"Meta Llama 3 8B Instruct",
		"Llama 3.1 SauerkrautLM 8b Instruct",
		"Meta Llama 3.1 8B Instruct",
		"Llama 3.2 3B Instruct",
		"Llama 3.2 1B Instruct")
	register(chatML,
		"Qwen2-0.5B-Instruct",
		"Qwen2-1.5B-Instruct",
		"Qwen2.5 0.5B Instruct",
		"Qwen2.5 1.5B Instruct",
		"Qwen2.5 3B Instruct",
		"Qwen2.5 7B Instruct",
		"Virtuoso Small v2",
		"Finalize Slerp",
		"MiniCPM3 4B",
		"SmolLM 135M",
		"SmolLM2 135M Instruct",
		"SmolLM2 360M Instruct",
		"SmolLM2 1.7B Instruct")
	register(qwen3,
		"Qwen3-0.6B",
		"Qwen3 8B",
		"Qwen3 14B",
		"Qwen3-30B-A3B",
		"Qwen3-32B",
		"SmolLM3 3B")
	register(gemma,
		"Gemma 2 2b It",
		"Gemma 3 1b It",
		"Gemma-3-1B-It",
		"Gemma 3 4b It",
		"Gemma-3-4B-It",
		"Gemma 3 12b It")
	register(exaone3, "EXAONE 3.0 7.8B Instruct")
	register(cohere, "CohereForAI.aya Expanse 8b", "Aya Expanse 8b", "C4Ai Command R7B 12 2024")
	register(mistralSmall, "Mistral Small 24B Instruct 2501")
	register(mistral7B, "mistralai_mistral-7b-instruct-v0.2")
	register(olmo2, "OLMo 2 0425 1B Instruct")
}

// Lookup returns the template registered for a model name.
func Lookup(name string) (Template, bool) {
	t, ok := byName[name]
	return t, ok
}

// Names returns every registered model name.
func Names() []string {
	out := make([]string, 0, len(byName))
	for n := range byName {
		out = append(out, n)
	}
	return out
}
