// Command genloop serves and drives a single llama.cpp generation session.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"genloop/internal/common/fsutil"
	"genloop/internal/config"
	"genloop/internal/engine"
	"genloop/internal/session"
	"genloop/internal/snapstore"
)

// app carries the loaded configuration to subcommands.
type app struct {
	cfgPath   string
	logLevel  string
	logFormat string
	cfg       config.Config
	log       zerolog.Logger
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "genloop",
		Short:         "Single-session llama.cpp generation server and console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", os.Getenv("GENLOOP_CONFIG"), "Config file (.yaml, .yml, .json, .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console|json")

	root.AddCommand(newServeCmd(a), newChatCmd(a), newTokensCmd(a), newModelsCmd(a), newSnapshotCmd(a))
	return root
}

// load reads the config file, applies flag overrides and defaults, and
// installs the process logger.
func (a *app) load() error {
	cfg := config.Default()
	if a.cfgPath != "" {
		var err error
		if cfg, err = config.Load(a.cfgPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	a.log = newLogger(cfg.Log)
	log.Logger = a.log
	return nil
}

func applyDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
		if v := os.Getenv("GENLOOP_ADDR"); v != "" {
			cfg.Addr = v
		}
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/models/llm"
	}
	if cfg.LibPath == "" {
		cfg.LibPath = os.Getenv("GENLOOP_LIB")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Content-Type", "X-Log-Level"}
	}
}

func newLogger(c config.Log) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	var l zerolog.Logger
	if c.Format == "json" || (c.Format == "" && !term.IsTerminal(int(os.Stderr.Fd()))) {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	return l.With().Timestamp().Logger()
}

// backend returns the engine factory for the configured library path.
func (a *app) backend() engine.Backend { return engine.NewLlamaBackend(a.cfg.LibPath) }

// openStore opens the snapshot store, or returns nil when none is configured.
func (a *app) openStore() (*snapstore.Store, error) {
	sc := a.cfg.Snapshots
	if sc.Dir == "" && !sc.InMemory {
		return nil, nil
	}
	dir := sc.Dir
	if !sc.InMemory {
		var err error
		if dir, err = fsutil.Resolve(dir); err != nil {
			return nil, err
		}
		if err := fsutil.EnsureDir(dir); err != nil {
			return nil, err
		}
	}
	return snapstore.Open(snapstore.Options{Dir: dir, InMemory: sc.InMemory, Logger: a.log})
}

// sessionParams resolves the model path from --model, which may be a file
// path or a registry id under the models directory.
func (a *app) sessionParams(model string) (session.Params, error) {
	p := a.cfg.Session
	if model == "" {
		model = a.cfg.DefaultModel
	}
	if model != "" {
		path, err := resolveModel(a.cfg.ModelsDir, model)
		if err != nil {
			return p, err
		}
		p.ModelPath = path
	}
	if p.ModelPath == "" {
		return p, fmt.Errorf("no model: pass --model or set default_model")
	}
	return p, nil
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
