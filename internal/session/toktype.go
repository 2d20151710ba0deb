package session

import "fmt"

// TokenType classifies a delivered token. The numeric values are stable and
// appear in persisted snapshots.
type TokenType int

const (
	TypeNone TokenType = iota
	TypePrompt
	TypeIrq
	TypeRevPrompt
	TypeSampledVisible
	TypeSampledEOG
	TypeDelim
	TypeSysPrompt
	TypeSampledControl
	TypeSampledThink
)

var tokenTypeNames = [...]string{
	TypeNone:           "none",
	TypePrompt:         "prompt",
	TypeIrq:            "irq",
	TypeRevPrompt:      "rev_prompt",
	TypeSampledVisible: "sampled_visible",
	TypeSampledEOG:     "sampled_eog",
	TypeDelim:          "delim",
	TypeSysPrompt:      "sys_prompt",
	TypeSampledControl: "sampled_control",
	TypeSampledThink:   "sampled_think",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Sampled reports whether the token came from the sampler rather than from
// the prompt assembler or the interrupt path.
func (t TokenType) Sampled() bool {
	switch t {
	case TypeSampledVisible, TypeSampledEOG, TypeSampledControl, TypeSampledThink:
		return true
	}
	return false
}

// MarshalText encodes the type by name.
func (t TokenType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (t *TokenType) UnmarshalText(b []byte) error {
	for i, n := range tokenTypeNames {
		if n == string(b) {
			*t = TokenType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown token type %q", b)
}
