package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lmrun/internal/hardware"
	"lmrun/internal/locator"
	"lmrun/internal/monitor"
	"lmrun/internal/session"
)

type Manager struct {
	mu    sync.RWMutex
	state State
	cur   *ModelInfo
	err   string
	// draining rejects new admissions while Unload waits.
	draining bool
	loads    uint64
	lastTPS  float64
	sampling session.SamplingParams

	// sess is only touched while holding the generation slot.
	sess         *session.Session
	engineName   string
	loc          *locator.Locator
	ownsLocator  bool
	prober       *hardware.Prober
	mon          *monitor.Monitor
	hw           hardware.Config
	defaultModel string
	publisher    EventPublisher
	log          zerolog.Logger
	startTime    time.Time

	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight session call
	queueCh chan struct{} // buffered: queue slots

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration
}

// New builds a manager over the given engine with package defaults.
func New(cfg ManagerConfig) *Manager { return NewWithConfig(cfg) }

// Ready reports whether a model is loaded and accepting work.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.draining || m.cur == nil {
		return false
	}
	return m.state == StateReady || m.state == StateGenerating
}

// SetEventPublisher replaces the event sink. Nil restores the no-op sink.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(name, modelID string, fields map[string]any) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if fields == nil {
		fields = map[string]any{}
	}
	p.Publish(Event{Name: name, ModelID: modelID, Fields: fields})
}

// Locator exposes the locator for resolve/pull commands.
func (m *Manager) Locator() *locator.Locator { return m.loc }

// EngineName names the backend in status output.
func (m *Manager) EngineName() string { return m.engineName }

func (m *Manager) lastThroughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTPS
}

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	m.state = s
	m.err = errMsg
	m.mu.Unlock()
}
