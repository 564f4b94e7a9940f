package manager

import (
	"time"

	"github.com/rs/zerolog"

	"lmrun/internal/engine"
	"lmrun/internal/errs"
	"lmrun/internal/hardware"
	"lmrun/internal/locator"
	"lmrun/internal/monitor"
	"lmrun/internal/session"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 10 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Engine backs the session. Nil means no backend is available and every
	// load fails with DependencyUnavailable.
	Engine  engine.Engine
	Locator *locator.Locator
	Prober  *hardware.Prober
	// Monitor defaults to one sharing Prober's device probe.
	Monitor *monitor.Monitor
	// Hardware is the config every load uses; AUTO is resolved per load.
	Hardware hardware.Config
	Sampling *session.SamplingParams
	// DefaultModel is loaded by EnsureModel("").
	DefaultModel  string
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	Publisher     EventPublisher
	Logger        zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateUnloaded,
		loc:          cfg.Locator,
		prober:       cfg.Prober,
		mon:          cfg.Monitor,
		hw:           cfg.Hardware.Clone(),
		defaultModel: cfg.DefaultModel,
		publisher:    cfg.Publisher,
		log:          cfg.Logger,
	}
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
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.prober == nil {
		m.prober = hardware.NewProber(m.log)
	}
	if m.loc == nil {
		m.loc = locator.New(locator.Options{Logger: m.log})
		m.ownsLocator = true
	}
	if m.mon == nil {
		m.mon = monitor.New(monitor.Options{
			Devices:    m.prober.Devices,
			Throughput: m.lastThroughput,
			Logger:     m.log,
		})
	}
	eng := cfg.Engine
	if eng == nil {
		eng = Unavailable(errs.DependencyUnavailable("no inference engine configured"))
	}
	m.engineName = eng.Name()
	m.sess = session.New(eng, session.Options{
		Prober:   m.prober,
		Logger:   m.log,
		Sampling: cfg.Sampling,
	})
	m.sampling = m.sess.Sampling()
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, m.maxQueueDepth)
	m.startTime = time.Now()
	return m
}
