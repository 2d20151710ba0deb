package manager

import (
	"time"

	"github.com/rs/zerolog"

	"genloop/internal/engine"
	"genloop/internal/session"
	"genloop/internal/snapstore"
	"genloop/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// BackendFactory returns a fresh, uninitialized engine backend. Each
// session owns the backend it was opened with.
type BackendFactory func() engine.Backend

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	DefaultModel string
	Backend      BackendFactory
	// LibPath locates the llama.cpp shared libraries for the default
	// backend factory and SanityCheck.
	LibPath string
	// Params are the base session parameters; Reinit requests override
	// individual fields. OnToken is ignored.
	Params session.Params
	// Store enables named snapshots when set. The caller closes it.
	Store         *snapstore.Store
	MaxQueueDepth int
	MaxWait       time.Duration
	Logger        zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateEmpty,
		registry:     cfg.Registry,
		defaultModel: cfg.DefaultModel,
		newBackend:   cfg.Backend,
		libPath:      cfg.LibPath,
		base:         cfg.Params,
		store:        cfg.Store,
		log:          cfg.Logger.With().Str("component", "manager").Logger(),
		publisher:    noopPublisher{},
		lastType:     session.TypeNone,
	}
	if m.newBackend == nil {
		m.newBackend = func() engine.Backend { return engine.NewLlamaBackend(cfg.LibPath) }
	}
	m.base.OnToken = nil
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, m.maxQueueDepth)
	m.startTime = time.Now()
	return m
}
