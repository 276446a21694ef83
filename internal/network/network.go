// Package network runs a whole onion network (registry, relays and users) in one
// process.
package network

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/circuit"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/client"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/registry"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/relay"
	"github.com/pkg/errors"
)

type Network struct {
	Config   *config.Config
	Registry *registry.Registry
	Relays   []*relay.Relay
	Users    []*client.Client

	// MetricsPort serves /metrics for every node of the process, 0 when disabled.
	MetricsPort int

	servers []*http.Server
	closers []func()
	cancel  context.CancelFunc
}

// Launch starts the registry, then every configured relay, then every configured user.
// On error everything started so far is stopped again.
func Launch(ctx context.Context, cfg *config.Config) (n *Network, err error) {
	ctx, cancel := context.WithCancel(ctx)
	n = &Network{Config: cfg, cancel: cancel}
	defer func() {
		if err != nil {
			n.Close()
			n = nil
		}
	}()

	ks, err := NewKeyService(cfg)
	if err != nil {
		return n, err
	}

	store, closeStore, err := NewStore(ctx, cfg)
	if err != nil {
		return n, errors.Wrap(err, "failed to open registry store")
	}
	n.closers = append(n.closers, closeStore)
	n.Registry = registry.NewRegistry(store, ks)
	if err := n.serve(cfg.Registry.Host, cfg.Registry.Port, n.Registry.Routes()); err != nil {
		return n, err
	}
	slog.Info("Registry is listening", "url", cfg.RegistryURL())

	tr, err := NewTransport(cfg)
	if err != nil {
		return n, errors.Wrap(err, "failed to set up transport")
	}
	n.closers = append(n.closers, func() {
		if err := tr.Close(); err != nil {
			slog.Error("Failed to close transport", "error", err)
		}
	})
	dir := NewDirectory(cfg)

	for _, rc := range cfg.Relays {
		address := cfg.RelayAddress(rc.ID)
		r, err := relay.NewRelay(ctx, rc.ID, address, ks, dir, tr, rc.MaxInboundPerSecond)
		if err != nil {
			return n, errors.Wrapf(err, "failed to start relay %d", rc.ID)
		}
		if err := n.serve(cfg.Host, address, r.Routes()); err != nil {
			return n, err
		}
		tr.Listen(ctx, address, r.Receive)
		n.Relays = append(n.Relays, r)
		slog.Info("Relay is listening", "id", rc.ID, "url", cfg.URL(address))
	}

	for _, uc := range cfg.Users {
		address := cfg.UserAddress(uc.ID)
		c := client.NewClient(uc.ID, address, ks, dir, tr, circuit.NewBuilder(nil), cfg)
		if err := n.serve(cfg.Host, address, c.Routes()); err != nil {
			return n, err
		}
		tr.Listen(ctx, address, c.ReceiveMessage)
		n.Users = append(n.Users, c)
		slog.Info("User is listening", "id", uc.ID, "url", cfg.URL(address))
	}

	metricsPort, shutdownMetrics, err := ServeMetrics(cfg, cfg.Registry.PrometheusPort)
	if err != nil {
		return n, err
	}
	n.closers = append(n.closers, shutdownMetrics)
	n.MetricsPort = metricsPort
	return n, nil
}

func (n *Network) serve(host string, port int, handler http.Handler) error {
	server, err := Serve(host, port, handler)
	if err != nil {
		return err
	}
	n.servers = append(n.servers, server)
	return nil
}

func (n *Network) GetRelay(id int) (*relay.Relay, bool) {
	for _, r := range n.Relays {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

func (n *Network) GetUser(id int) (*client.Client, bool) {
	for _, u := range n.Users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// Close stops every server in reverse start order.
func (n *Network) Close() {
	n.cancel()
	for i := len(n.servers) - 1; i >= 0; i-- {
		Shutdown(n.servers[i])
	}
	for i := len(n.closers) - 1; i >= 0; i-- {
		n.closers[i]()
	}
	n.servers, n.closers = nil, nil
}
