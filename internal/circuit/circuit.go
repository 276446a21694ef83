// Package circuit picks the relays an onion travels through.
package circuit

import (
	"math/rand"
	"sync"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/jfcg/sorty/v2"
	"github.com/pkg/errors"
)

// Length is the number of relays in every circuit.
const Length = 3

var ErrInsufficientRelays = errors.New("circuit: not enough distinct relays")

type Circuit []structs.RelayDescriptor

// IDs returns the relay ids in circuit order.
func (c Circuit) IDs() []int {
	return utils.Map(c, func(r structs.RelayDescriptor) int { return r.ID })
}

// Builder draws circuits uniformly at random. It is safe for concurrent use.
type Builder struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewBuilder returns a Builder drawing from source, or from a time seeded source if
// source is nil.
func NewBuilder(source rand.Source) *Builder {
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	return &Builder{rand: rand.New(source)}
}

// Build samples Length distinct relays from the snapshot without replacement. Duplicate
// ids are collapsed, keeping the first descriptor seen.
func (b *Builder) Build(relays []structs.RelayDescriptor) (Circuit, error) {
	candidates := distinct(relays)
	if len(candidates) < Length {
		return nil, errors.Wrapf(ErrInsufficientRelays, "have %d, need %d", len(candidates), Length)
	}

	// a fixed order makes a seeded source reproducible regardless of snapshot order
	sorty.Sort(len(candidates), func(i, k, r, s int) bool {
		if candidates[i].ID < candidates[k].ID {
			if r != s {
				candidates[r], candidates[s] = candidates[s], candidates[r]
			}
			return true
		}
		return false
	})

	b.mu.Lock()
	perm := b.rand.Perm(len(candidates))
	b.mu.Unlock()

	selected := make(Circuit, Length)
	for i := 0; i < Length; i++ {
		selected[i] = candidates[perm[i]]
	}
	return selected, nil
}

// Validate reports whether c has Length relays with distinct ids.
func Validate(c Circuit) error {
	if len(c) != Length {
		return errors.Errorf("circuit has %d relays, want %d", len(c), Length)
	}
	seen := hashset.New()
	for _, r := range c {
		if seen.Contains(r.ID) {
			return errors.Errorf("relay %d appears twice in circuit", r.ID)
		}
		seen.Add(r.ID)
	}
	return nil
}

func distinct(relays []structs.RelayDescriptor) []structs.RelayDescriptor {
	seen := hashset.New()
	out := make([]structs.RelayDescriptor, 0, len(relays))
	for _, r := range relays {
		if seen.Contains(r.ID) {
			continue
		}
		seen.Add(r.ID)
		out = append(out, r)
	}
	return out
}
