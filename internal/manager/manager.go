package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"genloop/internal/session"
	"genloop/internal/snapstore"
	"genloop/pkg/types"
)

// Manager owns the single session of the process and serializes every
// operation on it.
type Manager struct {
	mu           sync.RWMutex
	state        State
	cur          *ModelInfo
	err          string
	registry     []types.Model
	defaultModel string

	newBackend BackendFactory
	libPath    string
	base       session.Params
	store      *snapstore.Store
	log        zerolog.Logger
	publisher  EventPublisher

	// Owned by whoever holds genCh.
	sess *session.Session
	slot session.SnapshotSlot
	sink session.Handler

	// Copies of session counters for Status, guarded by mu.
	tokenCount int
	capacity   int
	lastType   session.TokenType
	snapInfo   *types.SnapshotInfo

	// Queueing primitives
	genCh         chan struct{} // size 1: single in-flight operation
	queueCh       chan struct{} // buffered: queue slots
	maxQueueDepth int
	maxWait       time.Duration

	startTime    time.Time
	queriesTotal atomic.Uint64
	reinitsTotal atomic.Uint64
}

// New returns a Manager with package defaults.
func New(reg []types.Model, backend BackendFactory, params session.Params) *Manager {
	return NewWithConfig(ManagerConfig{Registry: reg, Backend: backend, Params: params})
}

// SetEventPublisher installs p; nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

// Ready reports whether a session is open.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// dispatch is the session's token handler. It forwards to the sink of the
// operation currently holding the session.
func (m *Manager) dispatch(ev session.Event) bool {
	if m.sink == nil {
		return false
	}
	return m.sink(ev)
}

// refresh copies the session counters for Status. Caller holds genCh.
func (m *Manager) refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		m.tokenCount, m.capacity, m.lastType = 0, 0, session.TypeNone
		m.snapInfo = nil
		return
	}
	m.tokenCount = m.sess.TokenCount()
	m.capacity = m.sess.Capacity()
	m.lastType = m.sess.LastTokenType()
	if st := m.slot.Current(); st != nil {
		m.snapInfo = stateInfo(st)
	} else {
		m.snapInfo = nil
	}
}
