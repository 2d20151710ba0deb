package manager

import (
	"context"

	"genloop/internal/session"
)

// Reset clears the conversation held by the session. The current snapshot
// is kept and can still be restored.
func (m *Manager) Reset(ctx context.Context) error {
	return m.withSession(ctx, "reset", func(s *session.Session) error {
		if err := s.Reset(); err != nil {
			return err
		}
		m.publish(Event{Name: "reset", Fields: map[string]any{}})
		return nil
	})
}

// CountTokens tokenizes text with the session's model without decoding it.
func (m *Manager) CountTokens(ctx context.Context, text string, addSpecial bool) (int, error) {
	var n int
	err := m.withSession(ctx, "tokens", func(s *session.Session) error {
		var err error
		n, err = s.CountTokens(text, addSpecial)
		return err
	})
	return n, err
}
