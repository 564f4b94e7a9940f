package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"lmrun/internal/httpapi"
	"lmrun/internal/manager"
)

var (
	serveAddr string
	serveHW   hardwareFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if cmd.Flags().Changed("addr") {
			c.Server.Addr = serveAddr
		}
		if err := serveHW.apply(cmd, &c.Hardware); err != nil {
			return err
		}
		if err := applyConfig(c); err != nil {
			return err
		}
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	serveHW.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	loc := newLocator(nil)
	defer loc.Close()
	mgr := newManager(loc, manager.LogPublisher{Log: log})

	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.Log.HTTP)
	httpapi.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)
	httpapi.SetGenerateTimeout(cfg.Server.GenerateTimeout.Std())
	httpapi.SetCORSOptions(len(cfg.Server.CORSOrigins) > 0, cfg.Server.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("engine", mgr.EngineName()).
			Str("registry", loc.RegistryDirectory()).Msg("lmrun listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if cfg.Model != "" {
		mgr.Switch(cfg.Model)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.DrainTimeout.Std()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("unload on shutdown failed")
	}
	return serveErr
}
