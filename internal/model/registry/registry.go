// Package registry is the directory service relays register with and senders read from.
package registry

import (
	"context"
	"log/slog"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/pkg/errors"
)

type Registry struct {
	store Store
	keys  keys.KeyService
}

// NewRegistry returns a Registry backed by store. If keyService is not nil, public keys
// that it cannot import are refused.
func NewRegistry(store Store, keyService keys.KeyService) *Registry {
	return &Registry{store: store, keys: keyService}
}

func (r *Registry) Register(ctx context.Context, relay structs.RelayDescriptor) error {
	if relay.ID < 0 {
		return errors.Errorf("node id %d is negative", relay.ID)
	}
	if relay.PublicKey == "" {
		return errors.Errorf("node %d has no public key", relay.ID)
	}
	if r.keys != nil {
		if _, err := r.keys.ImportPublicKey(relay.PublicKey); err != nil {
			return errors.Wrapf(err, "node %d has an unusable public key", relay.ID)
		}
	}
	if err := r.store.Register(ctx, relay); err != nil {
		return err
	}
	slog.Info("Registered relay", "id", relay.ID)
	return nil
}

func (r *Registry) GetAllRelays(ctx context.Context) ([]structs.RelayDescriptor, error) {
	return r.store.List(ctx)
}
