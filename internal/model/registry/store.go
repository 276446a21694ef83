package registry

import (
	"context"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/pkg/cm"
	"github.com/jfcg/sorty/v2"
	"github.com/pkg/errors"
)

var ErrAlreadyRegistered = errors.New("registry: node already registered with a different key")

// Store persists relay descriptors. Register must be idempotent for an identical
// descriptor and return ErrAlreadyRegistered for a known id with a different key.
type Store interface {
	Register(ctx context.Context, relay structs.RelayDescriptor) error
	List(ctx context.Context) ([]structs.RelayDescriptor, error)
}

type MemoryStore struct {
	relays cm.ConcurrentMap[int, structs.RelayDescriptor]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Register(_ context.Context, relay structs.RelayDescriptor) error {
	if existing, loaded := s.relays.GetOrSet(relay.ID, relay); loaded && existing.PublicKey != relay.PublicKey {
		return errors.Wrapf(ErrAlreadyRegistered, "node %d", relay.ID)
	}
	return nil
}

// List returns every relay ordered by id.
func (s *MemoryStore) List(_ context.Context) ([]structs.RelayDescriptor, error) {
	relays := make([]structs.RelayDescriptor, 0)
	s.relays.Range(func(_ int, relay structs.RelayDescriptor) bool {
		relays = append(relays, relay)
		return true
	})
	sortByID(relays)
	return relays, nil
}

func sortByID(relays []structs.RelayDescriptor) {
	sorty.Sort(len(relays), func(i, k, r, s int) bool {
		if relays[i].ID < relays[k].ID {
			if r != s {
				relays[r], relays[s] = relays[s], relays[r]
			}
			return true
		}
		return false
	})
}
