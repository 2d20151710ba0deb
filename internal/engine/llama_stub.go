//go:build !llama

package engine

// NewLlamaBackend returns a backend that refuses to run without the 'llama'
// build tag. No mocked behavior is compiled into production binaries.
func NewLlamaBackend(libPath string) Backend { return unavailableBackend{} }

// Available reports whether the llama.cpp backend is compiled in.
func Available() bool { return false }

type unavailableBackend struct{}

func (unavailableBackend) Init() error { return ErrUnavailable }

func (unavailableBackend) LoadModel(string, ModelParams) (Model, error) {
	return nil, ErrUnavailable
}

func (unavailableBackend) Close() error { return nil }
