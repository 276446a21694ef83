package directory

import (
	"context"
	"os"
	"sync"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/registry"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type snapshotNode struct {
	ID        int    `yaml:"nodeId"`
	PublicKey string `yaml:"pubKey"`
}

type snapshot struct {
	Nodes []snapshotNode `yaml:"nodes"`
}

// FileDirectory keeps the relay list in a YAML file, for networks without a registry
// service. The file is re-read on every call.
type FileDirectory struct {
	path string
	mu   sync.Mutex
}

func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

func (d *FileDirectory) GetAllRelays(_ context.Context) ([]structs.RelayDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ReadSnapshot(d.path)
}

func (d *FileDirectory) Register(_ context.Context, relay structs.RelayDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	relays, err := ReadSnapshot(d.path)
	if err != nil {
		return err
	}
	for _, r := range relays {
		if r.ID != relay.ID {
			continue
		}
		if r.PublicKey != relay.PublicKey {
			return errors.Wrapf(registry.ErrAlreadyRegistered, "node %d", relay.ID)
		}
		return nil
	}
	return WriteSnapshot(d.path, append(relays, relay))
}

// ReadSnapshot loads a YAML relay list. A missing file is an empty list.
func ReadSnapshot(path string) ([]structs.RelayDescriptor, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []structs.RelayDescriptor{}, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var s snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	relays := make([]structs.RelayDescriptor, len(s.Nodes))
	for i, n := range s.Nodes {
		relays[i] = structs.RelayDescriptor{ID: n.ID, PublicKey: n.PublicKey}
	}
	return relays, nil
}

func WriteSnapshot(path string, relays []structs.RelayDescriptor) error {
	s := snapshot{Nodes: make([]snapshotNode, len(relays))}
	for i, r := range relays {
		s.Nodes[i] = snapshotNode{ID: r.ID, PublicKey: r.PublicKey}
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
