package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/YuminosukeSato/caretstudio/artifact"
	"github.com/YuminosukeSato/caretstudio/automl/remote"
	"github.com/YuminosukeSato/caretstudio/config"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
	"github.com/YuminosukeSato/caretstudio/server"
)

func serveCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runServe,
		UsageLine: "serve [-c config.yaml]",
		Short:     "start the web wizard",
		Long: `
start the web wizard

	$ caretstudio serve -c caretstudio.yaml

Every setting may be overridden with a CARETSTUDIO_* environment variable.
`,
		Flag: *flag.NewFlagSet("serve", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configFile, "c", "", "configuration file (YAML)")
	return cmd
}

// setup loads the configuration and installs the logger.
func setup() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}
	if err := log.SetupLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newBackend(cfg config.Config) (*remote.Client, error) {
	return remote.New(cfg.Backend.URL,
		remote.WithTimeout(cfg.Backend.Timeout),
		remote.WithLogger(log.GetLoggerWithName("remote")),
	)
}

func runServe(cmd *commander.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	logger := log.GetLoggerWithName("caretstudio")

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	store, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return err
	}
	srv, err := server.New(backend, store, server.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TopN:           cfg.Wizard.TopN,
		SessionTTL:     cfg.Server.SessionTTL,
		MaxSessions:    cfg.Server.MaxSessions,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := backend.Ping(ctx); err != nil {
		logger.Warn("automl service not reachable", err, log.URLKey, cfg.Backend.URL)
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
