package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/directory"
	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/HannahMarsh/simple-onion-routing/internal/metrics"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/registry"
	"github.com/HannahMarsh/simple-onion-routing/internal/transport"
	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
	pkgerrors "github.com/pkg/errors"
)

func NewKeyService(cfg *config.Config) (*keys.Service, error) {
	return keys.New(cfg.Crypto.Asymmetric, cfg.Crypto.Symmetric)
}

// NewStore opens the registry store named by the config. The returned function
// releases it.
func NewStore(ctx context.Context, cfg *config.Config) (registry.Store, func(), error) {
	switch cfg.Registry.Store.Kind {
	case config.StorePostgres:
		store, err := registry.OpenPostgres(ctx, cfg.Registry.Store.DSN, cfg.Registry.Store.Table)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close postgres store", "error", err)
			}
		}, nil
	case config.StoreBolt:
		store, err := registry.OpenBolt(cfg.Registry.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close bolt store", "error", err)
			}
		}, nil
	default:
		return registry.NewMemoryStore(), func() {}, nil
	}
}

// NewDirectory returns the file directory if one is configured and the registry client
// otherwise.
func NewDirectory(cfg *config.Config) directory.Directory {
	if cfg.DirectoryFile != "" {
		return directory.NewFileDirectory(cfg.DirectoryFile)
	}
	return directory.NewHTTPDirectory(cfg.RegistryURL(), cfg.TransportTimeout())
}

// Transport is a transport.Transport that may also feed local handlers from a broker.
type Transport struct {
	transport.Transport
	amqp *transport.AMQPTransport
}

func NewTransport(cfg *config.Config) (*Transport, error) {
	switch cfg.Transport.Kind {
	case config.TransportAMQP:
		t, err := transport.DialAMQP(cfg.Transport.AMQPURL)
		if err != nil {
			return nil, err
		}
		return &Transport{Transport: t, amqp: t}, nil
	default:
		return &Transport{Transport: transport.NewHTTPTransport(cfg.TransportTimeout(), cfg.URL, cfg.GzipEnabled())}, nil
	}
}

// Listen feeds blobs queued for address to h when running over a broker. Over HTTP the
// node's own /message route does this and Listen is a no-op.
func (t *Transport) Listen(ctx context.Context, address int, h transport.Handler) {
	if t.amqp == nil {
		return
	}
	go func() {
		if err := t.amqp.Consume(ctx, address, h); err != nil {
			slog.Error("Stopped consuming", "address", address, "error", err)
		}
	}()
}

func (t *Transport) Close() error {
	if t.amqp != nil {
		return t.amqp.Close()
	}
	return nil
}

// Serve starts an HTTP server for handler on host:port. The listener is bound before
// Serve returns.
func Serve(host string, port int, handler http.Handler) (*http.Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s:%d", host, port)
	}
	server := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped", "addr", listener.Addr().String(), "error", err)
		}
	}()
	return server, nil
}

func Shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
}

// ServeMetrics exposes /metrics on port when metrics are enabled in cfg. A port of 0
// gets a free one. It returns the port in use, 0 if metrics are disabled.
func ServeMetrics(cfg *config.Config, port int) (int, func(), error) {
	if !cfg.Metrics.Enabled {
		return 0, func() {}, nil
	}
	if port == 0 {
		free, err := utils.FreePort(cfg.Host)
		if err != nil {
			return 0, nil, pkgerrors.Wrap(err, "failed to pick a metrics port")
		}
		port = free
	}
	return port, metrics.ServeMetrics(port), nil
}
