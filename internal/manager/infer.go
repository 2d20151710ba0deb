package manager

import (
	"context"
	"encoding/json"
	"io"

	"genloop/internal/session"
	"genloop/pkg/types"
)

// withSession runs fn on the open session while holding the in-flight slot
// and refreshes the status counters afterwards.
func (m *Manager) withSession(ctx context.Context, op string, fn func(*session.Session) error) error {
	release, err := m.beginGeneration(ctx, op)
	if err != nil {
		return err
	}
	defer release()
	if m.sess == nil {
		return ErrNoSession
	}
	err = fn(m.sess)
	m.refresh()
	return err
}

// Infer runs one query and streams NDJSON to w: one types.TokenEvent line per
// delivered token, then a types.DoneEvent line. A failed write interrupts
// generation at the next token. An error that occurs after the first line is
// also written as the final line and returned wrapped so IsStreamed reports
// true.
func (m *Manager) Infer(ctx context.Context, req types.QueryRequest, w io.Writer, flusher func()) error {
	enc := json.NewEncoder(w)
	wrote := false
	emit := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		wrote = true
		m.safeFlush(flusher)
		return nil
	}

	return m.withSession(ctx, "query", func(s *session.Session) error {
		var werr error
		m.sink = func(ev session.Event) bool {
			if werr == nil {
				werr = emit(tokenEvent(ev))
			}
			return werr != nil
		}
		defer func() { m.sink = nil }()

		res, err := s.Query(ctx, req.Prompt)
		m.queriesTotal.Add(1)
		if werr != nil {
			m.log.Debug().Err(werr).Msg("stream write failed; generation interrupted")
			return werr
		}
		usage := types.Usage{
			PromptTokens:    res.PromptTokens,
			GeneratedTokens: res.Generated,
			ContextTokens:   s.TokenCount(),
			TokensPerSecond: res.TokensPerSecond(),
		}
		if err != nil {
			m.publish(Event{Name: "query_error", Fields: map[string]any{"error": err.Error()}})
			if !wrote {
				return err
			}
			_ = emit(types.DoneEvent{Done: true, Usage: usage, Error: err.Error()})
			return ErrStreamed(err)
		}
		m.publish(Event{Name: "query_done", Fields: map[string]any{
			"reason":    string(res.Reason),
			"generated": res.Generated,
			"tokens":    res.TokenCount,
		}})
		return emit(types.DoneEvent{Done: true, Reason: string(res.Reason), Usage: usage})
	})
}

// safeFlush calls flusher, containing panics from writers that were torn
// down mid-stream.
func (m *Manager) safeFlush(flusher func()) {
	if flusher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn().Interface("panic", r).Msg("flusher panicked")
		}
	}()
	flusher()
}
