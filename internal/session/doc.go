// Package session implements the generation state machine over a single
// engine context. Files by concern:
//
//   - session.go: Session, Open/Close/Reset, handler delivery.
//   - params.go: Params, defaults, validation, log marshaling.
//   - prompt.go: prompt framing and segment decoding.
//   - loop.go: Query and the per-token generation loop.
//   - classify.go, thinking.go, revprompt.go: token typing, thinking-mode
//     tracking and reverse-prompt detection used by the loop.
//   - digits.go: digit probability extraction from logits.
//   - state.go: engine state capture/restore and the snapshot slot.
//   - metrics.go: Prometheus collectors.
//
// A Session is single-threaded and lock-free. Callers that share one, such
// as the manager, must serialize access.
package session
