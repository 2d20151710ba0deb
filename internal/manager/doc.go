// Package manager owns the process-wide session and coordinates every
// operation on it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, ModelInfo and the View projection.
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, IsNoSession).
//   - helpers.go: request to parameter mapping and DTO conversion.
//   - admission.go: queueing and the single in-flight slot.
//   - lifecycle.go: Reinit, Deinit and Close.
//   - infer.go: query streaming as NDJSON.
//   - ops.go: Reset and CountTokens.
//   - snapshots.go: the current snapshot and named, persisted snapshots.
//   - status_report.go: Status/View reporting helpers.
//
// The session itself is single-threaded. Every operation that touches it
// first takes the in-flight slot, so callers on different goroutines are
// served one at a time in arrival order, bounded by MaxQueueDepth and MaxWait.
package manager
