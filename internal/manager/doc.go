// Package manager owns the single inference session and serialises access
// to it. It is structured into small files by concern:
//
//   - manager.go: core Manager type and simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: state types (State, ModelInfo, Snapshot, GenerateRequest).
//   - engine.go: placeholder engine used when no backend could be opened.
//   - admission.go: bounded queue plus the single in-flight slot.
//   - ensure.go: EnsureModel; locate, fetch and load.
//   - infer.go: Generate with optional streaming callback.
//   - ops.go: sampling, cache, hardware and stats operations, Switch.
//   - status_report.go: Status/Snapshot and API views.
//   - unload.go: graceful drain and release.
//   - events.go, eventpub_*.go: lifecycle events and their sinks.
//
// Every call that touches the session goes through beginGeneration, so the
// session itself needs no locking. Status and Snapshot read a mirror kept
// under the manager mutex and never wait for the slot.
package manager
