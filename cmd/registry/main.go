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
	"github.com/HannahMarsh/simple-onion-routing/internal/model/registry"
	"github.com/HannahMarsh/simple-onion-routing/internal/network"
	"github.com/HannahMarsh/simple-onion-routing/pkg/infrastructure/logger"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	logLevel := flag.String("log-level", "debug", "Log level")
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

	if path, err := config.InitGlobalFrom(*configPath); err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	} else {
		slog.Info("loaded config", "path", path)
	}
	cfg := config.GlobalConfig

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ks, err := network.NewKeyService(cfg)
	if err != nil {
		slog.Error("failed to set up crypto", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := network.NewStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open registry store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	reg := registry.NewRegistry(store, ks)
	server, err := network.Serve(cfg.Registry.Host, cfg.Registry.Port, reg.Routes())
	if err != nil {
		slog.Error("failed to start HTTP server", "error", err)
		os.Exit(1)
	}

	metricsPort, shutdownMetrics, err := network.ServeMetrics(cfg, cfg.Registry.PrometheusPort)
	if err != nil {
		slog.Error("failed to start metrics server", "error", err)
		os.Exit(1)
	}
	if metricsPort != 0 {
		slog.Info("serving metrics", "registry", cfg.Registry.Port, "port", metricsPort)
	}

	slog.Info("🌏 start registry...", "address", cfg.RegistryURL(), "store", cfg.Registry.Store.Kind)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	v := <-quit
	slog.Info("", "signal.Notify", v)
	network.Shutdown(server)
	shutdownMetrics()
}
