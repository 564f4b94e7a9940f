package manager

import "github.com/rs/zerolog"

// LogPublisher writes every event as one structured log line.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Info()
	if e.Name == "ensure_error" || e.Name == "unload_timeout" {
		ev = p.Log.Warn()
	}
	ev = ev.Str("event", e.Name)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	ev.Fields(e.Fields).Msg("manager event")
}
