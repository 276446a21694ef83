package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/network"
	"github.com/HannahMarsh/simple-onion-routing/pkg/infrastructure/logger"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level")
	configPath := flag.String("config", "", "Path to the config file (default config/config.yml)")

	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0]); err != nil {
			slog.Error("failed to print usage", "error", err)
		}
		flag.PrintDefaults()
	}

	flag.Parse()

	logger.SetUpLogrusAndSlog(*logLevel)

	// set GOMAXPROCS
	if _, err := maxprocs.Set(); err != nil {
		slog.Error("failed set max procs", "error", err)
		os.Exit(1)
	}

	if _, err := config.InitGlobalFrom(*configPath); err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	n, err := network.Launch(context.Background(), config.GlobalConfig)
	if err != nil {
		slog.Error("failed to launch network", "error", err)
		os.Exit(1)
	}
	slog.Info("🌏 network is up", "relays", len(n.Relays), "users", len(n.Users))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	v := <-quit
	slog.Info("", "signal.Notify", v)
	n.Close()
}
