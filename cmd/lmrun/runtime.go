package main

import (
	"io"

	"lmrun/internal/engine"
	"lmrun/internal/hardware"
	"lmrun/internal/locator"
	"lmrun/internal/manager"
)

// newLocator builds a locator from the registry section. Registry tool output
// goes to out; nil discards it.
func newLocator(out io.Writer) *locator.Locator {
	reg := locator.NewShellRegistry(cfg.Registry.ListScript, cfg.Registry.PullScript)
	reg.Stdout = out
	reg.Stderr = out
	return locator.New(locator.Options{
		RegistryDir: cfg.Registry.Dir,
		Registry:    reg,
		CacheTTL:    cfg.Registry.CacheTTL.Std(),
		Logger:      log,
	})
}

// newManager opens the engine and wires a manager around it. A missing
// engine is not fatal: the manager reports it on every load.
func newManager(loc *locator.Locator, pub manager.EventPublisher) *manager.Manager {
	eng, err := engine.Open(engine.Options{LibPath: cfg.Engine.LibPath})
	if err != nil {
		log.Warn().Err(err).Msg("inference engine unavailable")
		eng = manager.Unavailable(err)
	}
	sampling := cfg.Sampling
	return manager.New(manager.ManagerConfig{
		Engine:        eng,
		Locator:       loc,
		Prober:        hardware.NewProber(log),
		Hardware:      cfg.Hardware,
		Sampling:      &sampling,
		DefaultModel:  cfg.Model,
		MaxQueueDepth: cfg.Server.MaxQueueDepth,
		MaxWait:       cfg.Server.MaxWait.Std(),
		DrainTimeout:  cfg.Server.DrainTimeout.Std(),
		Publisher:     pub,
		Logger:        log,
	})
}
