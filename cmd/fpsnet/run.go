package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vovakirdan/fpsnet/internal/config"
	"github.com/vovakirdan/fpsnet/internal/session"
	"github.com/vovakirdan/fpsnet/internal/storage"
)

// runSession builds the controller for cfg and runs it until interrupted.
// Configuration errors print and exit 1.
func runSession(cfg config.SessionConfig) {
	logger, logCloser, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	sessCfg, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	deps := session.Deps{
		Input:  inputFor(cfg),
		Sink:   &session.LogSink{Logger: logger.WithPrefix("fpsnet-frame"), Every: uint64(cfg.Movement.TickRate)},
		Events: session.LogEvents{Logger: logger.WithPrefix("fpsnet-events")},
		Logger: logger,
	}

	// History is optional; a broken database never stops a session
	if cfg.History.Enabled {
		store, err := storage.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("could not open history database", "error", err)
		} else {
			defer store.Close()
			deps.History = store
		}
	}

	ctrl, err := session.New(sessCfg, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	if err := ctrl.Run(ctx); err != nil {
		logger.Error("session failed", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("done", "ticks", ctrl.Ticks(), "elapsed", time.Since(started).Round(time.Millisecond))
}

func inputFor(cfg config.SessionConfig) session.InputSource {
	if cfg.Client.Input == "wander" {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return session.NewWanderInput(seed, cfg.Movement.TickRate)
	}
	return session.IdleInput{}
}
