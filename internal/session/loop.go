package session

import (
	"context"
	"fmt"
	"time"

	"genloop/internal/engine"
)

// StopReason tells why generation ended.
type StopReason string

const (
	StopEOG           StopReason = "eog"
	StopReversePrompt StopReason = "reverse_prompt"
	StopInterrupt     StopReason = "interrupt"
)

// Result summarizes one Query.
type Result struct {
	Reason       StopReason
	PromptTokens int
	// Generated counts tokens decoded by the loop, interrupt tokens included.
	Generated  int
	TokenCount int
	Duration   time.Duration
}

// TokensPerSecond is the generation throughput.
func (r Result) TokensPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Generated) / r.Duration.Seconds()
}

// Query decodes prompt, framed by the configured delimiters, and generates a
// response token by token until end of generation, a reverse prompt match or
// an interrupt. Interrupts come from the handler's return value or from ctx;
// both take effect at the start of the next iteration.
//
// On error TokenCount is not advanced past the last completed stage.
func (s *Session) Query(ctx context.Context, prompt string) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	if prompt == "" {
		return Result{}, fmt.Errorf("%w: empty prompt", ErrInvalidArgument)
	}
	start := time.Now()
	before := s.tokCount

	if err := s.decodePrompt(prompt); err != nil {
		queriesTotal.WithLabelValues("decode_error").Inc()
		return Result{}, err
	}
	res := Result{PromptTokens: s.tokCount - before}

	genStart := time.Now()
	reason, n, err := s.generate(ctx)
	if err != nil {
		queriesTotal.WithLabelValues(outcomeOf(err)).Inc()
		return Result{}, err
	}
	res.Reason = reason
	res.Generated = n - s.tokCount
	res.Duration = time.Since(genStart)
	s.tokCount = n
	res.TokenCount = n

	queriesTotal.WithLabelValues(string(reason)).Inc()
	queryDuration.Observe(time.Since(start).Seconds())
	contextTokens.Set(float64(n))
	s.log.Info().
		Int("decoded", res.Generated).
		Dur("elapsed", res.Duration).
		Float64("tokens_per_sec", res.TokensPerSecond()).
		Str("reason", string(reason)).
		Msg("generation done")
	return res, nil
}

// interruptTokens are decoded when generation is interrupted so the
// conversation ends on a turn boundary: the reverse prompt if configured,
// otherwise end-of-turn (or end-of-sequence).
func (s *Session) interruptTokens() []engine.Token {
	if s.params.ReversePrompt != "" {
		return s.vocab.Tokenize(s.params.ReversePrompt, false)
	}
	toks := s.vocab.Tokenize("", false)
	eot := s.vocab.EOT()
	if eot == engine.NoToken {
		eot = s.vocab.EOS()
	}
	return append(toks, eot)
}

// generate runs the per-token loop from the current token count and returns
// the next free position.
func (s *Session) generate(ctx context.Context) (StopReason, int, error) {
	var det *revPromptDetector
	if s.params.ReversePrompt != "" {
		det = newRevPromptDetector(s.params.ReversePrompt)
	}
	irqToks := s.interruptTokens()
	think := thinkTracker{begin: s.params.ThinkBegin, end: s.params.ThinkEnd}
	capacity := s.ctx.Capacity()
	digitsDone := false
	irq := false

	for n := s.tokCount; n < capacity; n++ {
		if det != nil && det.matched() {
			// The reverse prompt was already delivered piece by piece; it
			// is delivered once more as a whole so consumers can act on it.
			s.lastType = TypeRevPrompt
			s.deliver(Event{Token: 0, Piece: s.params.ReversePrompt, Type: TypeRevPrompt})
			return StopReversePrompt, n, nil
		}

		if irq || ctx.Err() != nil {
			if n+len(irqToks) > capacity {
				s.log.Error().Int("pos", n).Int("irq_tokens", len(irqToks)).Msg("no room for interrupt tokens")
				return "", 0, fmt.Errorf("%w: no room for interrupt tokens", ErrContextExhausted)
			}
			s.lastType = TypeIrq
			if err := s.decodeTokens(irqToks, n, TypeIrq); err != nil {
				return "", 0, err
			}
			return StopInterrupt, n + len(irqToks), nil
		}

		tok := s.sampler.Sample(s.ctx)
		eog := s.vocab.IsEOG(tok)
		piece := s.vocab.Piece(tok)

		think.enter(piece)
		typ := classify(s.vocab, tok, eog, think.active)
		s.lastType = typ

		ev := Event{Token: tok, Piece: piece, Type: typ}
		if typ == TypeSampledVisible && !digitsDone && !isBlank(piece) {
			d := s.digitProbs()
			ev.Digits = &d
			digitsDone = true
		}
		irq = s.deliver(ev)
		think.leave(piece)

		if err := s.ctx.Decode(tok, n, true); err != nil {
			s.log.Error().Err(err).Int("pos", n).Msg("decode failed")
			return "", 0, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		s.sampler.Accept(tok)

		if eog {
			return StopEOG, n + 1, nil
		}
		if det != nil {
			det.push(piece)
		}
	}
	s.log.Error().Int("capacity", capacity).Msg("context length reached before end of generation")
	return "", 0, ErrContextExhausted
}
