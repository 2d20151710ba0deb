package manager

import (
	"time"

	"genloop/pkg/types"
)

// View returns a read-only view of the manager state.
func (m *Manager) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return View{State: m.state, CurrentModel: m.cur, Err: m.err}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		State:          string(m.state),
		ContextLength:  m.capacity,
		TokenCount:     m.tokenCount,
		LastTokenType:  m.lastType.String(),
		Inflight:       len(m.genCh),
		MaxQueueDepth:  cap(m.queueCh),
		LastError:      m.err,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		QueriesTotal:   m.queriesTotal.Load(),
		ReinitsTotal:   m.reinitsTotal.Load(),
	}
	if q := len(m.queueCh) - len(m.genCh); q > 0 {
		resp.QueueLen = q
	}
	if m.cur != nil {
		resp.ModelPath = m.cur.Path
	}
	if m.snapInfo != nil {
		si := *m.snapInfo
		resp.Snapshot = &si
	}
	return resp
}
