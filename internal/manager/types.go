package manager

// State represents the lifecycle state of the managed session.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ModelInfo is a minimal view of the loaded model.
type ModelInfo struct {
	ID   string
	Path string
}

// View is a read-only projection of the manager state.
type View struct {
	State        State
	CurrentModel *ModelInfo
	Err          string
}
