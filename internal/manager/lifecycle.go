package manager

import (
	"context"
	"errors"

	"genloop/internal/engine"
	"genloop/internal/session"
	"genloop/pkg/types"
)

// Reinit replaces the current session with a new one built from the base
// parameters overridden by req. The old session is closed first, together
// with the current snapshot, so at most one session exists at any time.
func (m *Manager) Reinit(ctx context.Context, req types.ReinitRequest) error {
	params, info, err := m.resolveParams(req)
	if err != nil {
		return err
	}
	release, err := m.beginGeneration(ctx, "reinit")
	if err != nil {
		return err
	}
	defer release()

	m.publish(Event{Name: "reinit_start", ModelID: info.ID, Fields: map[string]any{"path": info.Path}})
	m.mu.Lock()
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	if cerr := m.closeSession(); cerr != nil {
		m.log.Warn().Err(cerr).Msg("closing previous session")
	}

	sess, err := session.Open(m.newBackend(), params, session.WithLogger(m.log))
	if err != nil {
		if errors.Is(err, engine.ErrUnavailable) {
			err = dependencyUnavailableError{msg: "llama.cpp runtime unavailable", err: err}
		}
		m.mu.Lock()
		m.state = StateError
		m.err = err.Error()
		m.cur = nil
		m.mu.Unlock()
		m.refresh()
		m.log.Error().Err(err).Str("model", info.ID).Msg("reinit failed")
		m.publish(Event{Name: "reinit_error", ModelID: info.ID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	m.sess = sess
	m.reinitsTotal.Add(1)
	m.mu.Lock()
	m.state = StateReady
	m.cur = info
	m.mu.Unlock()
	m.refresh()
	m.log.Info().Str("model", info.ID).Str("path", info.Path).Int("context", sess.Capacity()).Msg("session ready")
	m.publish(Event{Name: "reinit_ready", ModelID: info.ID, Fields: map[string]any{"context_length": sess.Capacity()}})
	return nil
}

// Deinit closes the current session and drops the current snapshot. It is a
// no-op without a session.
func (m *Manager) Deinit(ctx context.Context) error {
	release, err := m.beginGeneration(ctx, "deinit")
	if err != nil {
		return err
	}
	defer release()
	return m.deinitLocked()
}

// Close deinitializes, waiting for the in-flight operation without queue
// limits. Used at shutdown.
func (m *Manager) Close() error {
	m.genCh <- struct{}{}
	defer func() { <-m.genCh }()
	return m.deinitLocked()
}

func (m *Manager) deinitLocked() error {
	m.mu.RLock()
	id := ""
	if m.cur != nil {
		id = m.cur.ID
	}
	m.mu.RUnlock()
	err := m.closeSession()
	m.mu.Lock()
	m.state = StateEmpty
	m.cur = nil
	m.err = ""
	m.mu.Unlock()
	m.refresh()
	m.publish(Event{Name: "deinit", ModelID: id, Fields: map[string]any{}})
	return err
}

// closeSession releases the snapshot and the session. Caller holds genCh.
func (m *Manager) closeSession() error {
	m.slot.Clear()
	if m.sess == nil {
		return nil
	}
	err := m.sess.Close()
	m.sess = nil
	return err
}
