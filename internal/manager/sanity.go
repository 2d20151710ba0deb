package manager

import (
	"os"

	"genloop/internal/engine"
	"genloop/internal/registry"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	EngineAvailable bool   `json:"engine_available"`
	LibPath         string `json:"lib_path,omitempty"`
	LibFound        bool   `json:"lib_found"`
	DefaultModel    string `json:"default_model,omitempty"`
	ModelFound      bool   `json:"model_found"`
	SnapshotStore   bool   `json:"snapshot_store"`
	Error           string `json:"error,omitempty"`
}

// OK reports whether a session can be opened with the configured defaults.
func (r SanityReport) OK() bool { return r.Error == "" }

// SanityCheck validates that the engine build, its shared libraries and the
// default model are present. It does not mutate state and is safe to call at
// any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{
		EngineAvailable: engine.Available(),
		LibPath:         m.libPath,
		DefaultModel:    m.defaultModel,
		SnapshotStore:   m.store != nil,
	}
	if m.libPath == "" {
		r.LibFound = r.EngineAvailable
	} else if fi, err := os.Stat(m.libPath); err == nil {
		r.LibFound = fi.IsDir()
	}
	path := m.base.ModelPath
	if m.defaultModel != "" {
		if mdl, ok := registry.Find(m.ListModels(), m.defaultModel); ok {
			path = mdl.Path
		} else {
			path = ""
		}
	}
	if path != "" {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			r.ModelFound = true
		}
	}

	switch {
	case !r.EngineAvailable:
		r.Error = "built without the llama tag"
	case !r.LibFound:
		r.Error = "llama.cpp libraries not found at " + m.libPath
	case (m.defaultModel != "" || m.base.ModelPath != "") && !r.ModelFound:
		r.Error = "default model not found"
	}
	return r
}
