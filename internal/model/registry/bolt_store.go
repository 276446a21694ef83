package registry

import (
	"context"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	relaysBucket   = "relays"
	metadataBucket = "metadata"
	versionKey     = "version"
)

// BoltStore keeps descriptors in a single bbolt file. Keys are zero padded ids, so the
// bucket iterates in id order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt creates or loads the store at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists([]byte(relaysBucket)); err != nil {
			return err
		}
		if v := meta.Get([]byte(versionKey)); v != nil {
			if len(v) != 1 || v[0] != 0 {
				return errors.Errorf("incompatible store version %v", v)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{0})
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to initialise %s", path)
	}
	return &BoltStore{db: db}, nil
}

func relayKey(id int) ([]byte, error) {
	s, err := onion.FormatAddress(id)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (s *BoltStore) Register(_ context.Context, relay structs.RelayDescriptor) error {
	key, err := relayKey(relay.ID)
	if err != nil {
		return errors.Wrapf(err, "bad node id %d", relay.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(relaysBucket))
		if existing := bkt.Get(key); existing != nil {
			if string(existing) != relay.PublicKey {
				return errors.Wrapf(ErrAlreadyRegistered, "node %d", relay.ID)
			}
			return nil
		}
		if err := bkt.Put(key, []byte(relay.PublicKey)); err != nil {
			return errors.Wrapf(err, "failed to store node %d", relay.ID)
		}
		return nil
	})
}

// List returns every relay ordered by id.
func (s *BoltStore) List(_ context.Context) ([]structs.RelayDescriptor, error) {
	relays := make([]structs.RelayDescriptor, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(relaysBucket)).ForEach(func(k, v []byte) error {
			id, err := onion.ParseAddress(string(k))
			if err != nil {
				return errors.Wrapf(err, "corrupt key %q", k)
			}
			relays = append(relays, structs.RelayDescriptor{ID: id, PublicKey: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list nodes")
	}
	return relays, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
