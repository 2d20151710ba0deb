package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"genloop/internal/engine"
	"genloop/internal/httpapi"
	"genloop/internal/manager"
	"genloop/internal/registry"
	"genloop/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr         string
		modelsDir    string
		defaultModel string
		libPath      string
		snapDir      string
		snapMem      bool
		corsEnabled  bool
		corsOrigins  string
		maxBody      int64
		queryTimeout time.Duration
		maxQueue     int
		maxWait      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			cfg := &a.cfg
			if f.Changed("addr") {
				cfg.Addr = addr
			}
			if f.Changed("models-dir") {
				cfg.ModelsDir = modelsDir
			}
			if f.Changed("default-model") {
				cfg.DefaultModel = defaultModel
			}
			if f.Changed("lib-path") {
				cfg.LibPath = libPath
			}
			if f.Changed("snapshots-dir") {
				cfg.Snapshots.Dir = snapDir
			}
			if f.Changed("snapshots-in-memory") {
				cfg.Snapshots.InMemory = snapMem
			}
			if f.Changed("cors-enabled") {
				cfg.CORS.Enabled = corsEnabled
			}
			if f.Changed("cors-origins") {
				cfg.CORS.AllowedOrigins = splitCSV(corsOrigins)
			}
			if f.Changed("max-body-bytes") {
				cfg.MaxBodyBytes = maxBody
			}
			if f.Changed("max-queue-depth") {
				cfg.Queue.MaxDepth = maxQueue
			}
			if f.Changed("max-wait") {
				cfg.Queue.MaxWaitMS = int(maxWait / time.Millisecond)
			}
			return a.serve(queryTimeout)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (env GENLOOP_ADDR)")
	f.StringVar(&modelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	f.StringVar(&defaultModel, "default-model", "", "Model id loaded at startup and when a reinit omits model")
	f.StringVar(&libPath, "lib-path", "", "Directory holding the llama.cpp shared libraries (env GENLOOP_LIB)")
	f.StringVar(&snapDir, "snapshots-dir", "", "Directory for named snapshots")
	f.BoolVar(&snapMem, "snapshots-in-memory", false, "Keep named snapshots in memory only")
	f.BoolVar(&corsEnabled, "cors-enabled", false, "Enable CORS")
	f.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed origins")
	f.Int64Var(&maxBody, "max-body-bytes", 0, "Maximum JSON request body size (default 1MiB)")
	f.DurationVar(&queryTimeout, "query-timeout", 0, "Upper bound for a /query request (0 disables)")
	f.IntVar(&maxQueue, "max-queue-depth", 0, "Requests allowed to wait for the session")
	f.DurationVar(&maxWait, "max-wait", 0, "How long a request may wait for the session")
	return cmd
}

func (a *app) serve(queryTimeout time.Duration) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("model registry unavailable")
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		DefaultModel:  cfg.DefaultModel,
		Backend:       func() engine.Backend { return a.backend() },
		LibPath:       cfg.LibPath,
		Params:        cfg.Session,
		Store:         store,
		MaxQueueDepth: cfg.Queue.MaxDepth,
		MaxWait:       time.Duration(cfg.Queue.MaxWaitMS) * time.Millisecond,
		Logger:        a.log,
	})
	mgr.SetEventPublisher(manager.LogPublisher{Log: a.log})
	if r := mgr.SanityCheck(); !r.OK() {
		a.log.Warn().Str("problem", r.Error).Bool("engine", r.EngineAvailable).Str("lib_path", r.LibPath).
			Str("default_model", r.DefaultModel).Msg("sanity check failed; sessions may not open")
	}

	httpapi.SetLogger(a.log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetQueryTimeout(queryTimeout)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	if cfg.DefaultModel != "" || cfg.Session.ModelPath != "" {
		go func() {
			if err := mgr.Reinit(baseCtx, types.ReinitRequest{}); err != nil {
				a.log.Error().Err(err).Msg("initial model load failed")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Int("models", len(reg)).Msg("genloop listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case <-stop:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info().Msg("shutting down")
	// Interrupt running queries first so streams end with a done line.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(ctx)
	err = multierr.Append(err, mgr.Close())
	if store != nil {
		err = multierr.Append(err, store.Close())
	}
	return err
}
