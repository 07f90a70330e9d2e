package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/lyra/pkg/lyra"
	"github.com/harunnryd/lyra/pkg/runner"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := lyra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_error", "error", err.Error())
		os.Exit(1)
	}

	eng, err := lyra.NewEngine(lyra.EngineOptions{Config: cfg})
	if err != nil {
		slog.Error("engine_init_error", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hooks := runner.Hooks{
		OnStart: func() {
			go func() {
				if err := eng.Run(ctx); err != nil {
					slog.Error("engine_run_error", "error", err.Error())
					stop()
				}
			}()
		},
		OnStop: func() {
			slog.Info("lyra_stopped")
		},
	}
	lr := runner.NewLifecycleRunner(eng, hooks, 30*time.Second)
	if err := lr.Run(ctx); err != nil {
		slog.Error("runner_error", "error", err.Error())
		os.Exit(1)
	}
}
