package session

import (
	"math"
	"strings"

	"genloop/internal/engine"
)

// DigitProbs holds, per decimal digit, the summed probability of all tokens
// that spell that digit.
type DigitProbs [10]float32

// Sum of all ten entries.
func (d DigitProbs) Sum() float32 {
	var s float32
	for _, p := range d {
		s += p
	}
	return s
}

// Argmax returns the most probable digit.
func (d DigitProbs) Argmax() int {
	best := 0
	for i, p := range d {
		if p > d[best] {
			best = i
		}
	}
	return best
}

// digitGroups lists, per digit, the tokens whose vocabulary text is that
// digit with optional surrounding whitespace.
type digitGroups [10][]engine.Token

func buildDigitGroups(v engine.Vocab) *digitGroups {
	var g digitGroups
	n := v.Len()
	for i := 0; i < n; i++ {
		tok := engine.Token(i)
		if d, ok := digitOf(v.Text(tok)); ok {
			g[d] = append(g[d], tok)
		}
	}
	return &g
}

// digitOf parses text as a single decimal digit padded by ASCII whitespace.
func digitOf(text string) (int, bool) {
	t := strings.Trim(text, asciiSpace)
	if len(t) != 1 || t[0] < '0' || t[0] > '9' {
		return 0, false
	}
	return int(t[0] - '0'), true
}

// maxLogit returns the largest logit, or -Inf for an empty slice.
func maxLogit(logits []float32) float32 {
	m := float32(math.Inf(-1))
	for _, l := range logits {
		if l > m {
			m = l
		}
	}
	return m
}

// softmax computes exp(l-max)/sum(exp(l_j-max)) in float64 and returns
// float32 probabilities.
func softmax(logits []float32, peak float32) []float32 {
	out := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l - peak))
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

func (g *digitGroups) probabilities(probs []float32) DigitProbs {
	var d DigitProbs
	for digit, toks := range g {
		for _, t := range toks {
			if int(t) < len(probs) {
				d[digit] += probs[t]
			}
		}
	}
	return d
}

// digitProbs evaluates the digit distribution of the current logits. Groups
// are built once per Session.
func (s *Session) digitProbs() DigitProbs {
	if s.digitGroups == nil {
		s.digitGroups = buildDigitGroups(s.vocab)
	}
	logits := s.ctx.Logits()
	return s.digitGroups.probabilities(softmax(logits, maxLogit(logits)))
}
