package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sadewadee/safety-observer/runner"
	"github.com/sadewadee/safety-observer/runner/migraterunner"
	"github.com/sadewadee/safety-observer/runner/serverrunner"
	"github.com/sadewadee/safety-observer/tlmt"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner.Banner()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan

		log.Println("Received signal, shutting down...")

		cancel()
	}()

	cfg := runner.ParseConfig()

	runnerInstance, err := runnerFactory(cfg)
	if err != nil {
		cancel()
		os.Stderr.WriteString(err.Error() + "\n")

		runner.Telemetry().Close()

		os.Exit(1)
	}

	if cfg.RunMode == runner.RunModeServer {
		_ = runner.Telemetry().Send(ctx, tlmt.NewEvent("server_started", map[string]any{
			"version":  runner.Version,
			"postgres": cfg.IsPostgres(),
		}))
	}

	if err := runnerInstance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Stderr.WriteString(err.Error() + "\n")
		_ = runnerInstance.Close(ctx)
		runner.Telemetry().Close()
		os.Exit(1)
	}

	_ = runnerInstance.Close(ctx)
	runner.Telemetry().Close()

	os.Exit(0)
}

func runnerFactory(cfg *runner.Config) (runner.Runner, error) {
	switch cfg.RunMode {
	case runner.RunModeMigrate, runner.RunModeMigrateStatus:
		return migraterunner.New(cfg)
	case runner.RunModeServer:
		return serverrunner.New(cfg)
	default:
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}
}
