package session

import (
	"strings"

	"genloop/internal/engine"
)

// classify assigns a type to a sampled token. End-of-generation wins over
// control, control over thinking.
func classify(v engine.Vocab, tok engine.Token, eog, thinking bool) TokenType {
	switch {
	case eog:
		return TypeSampledEOG
	case v.IsControl(tok):
		return TypeSampledControl
	case thinking:
		return TypeSampledThink
	default:
		return TypeSampledVisible
	}
}

// isBlank reports whether s is empty or only ASCII whitespace.
func isBlank(s string) bool {
	return strings.TrimLeft(s, asciiSpace) == ""
}

const asciiSpace = " \t\n\v\f\r"
