package manager

// Event represents a manager lifecycle event: a name, the model it concerns
// and optional fields. Names in use:
//
//	ensure_start, ensure_ready, ensure_error
//	generate_start, generate_done
//	unload_start, unload_timeout, unload_done
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Publish is called
// synchronously and must not block or panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
