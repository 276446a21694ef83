package directory

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/registry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDirectory(t *testing.T) {
	server := httptest.NewServer(registry.NewRegistry(registry.NewMemoryStore(), nil).Routes())
	defer server.Close()

	d := NewHTTPDirectory(server.URL, 5*time.Second)
	ctx := context.Background()

	relays, err := d.GetAllRelays(ctx)
	require.NoError(t, err)
	assert.Empty(t, relays)

	require.NoError(t, d.Register(ctx, structs.RelayDescriptor{ID: 3, PublicKey: "k3"}))
	require.NoError(t, d.Register(ctx, structs.RelayDescriptor{ID: 1, PublicKey: "k1"}))
	require.NoError(t, d.Register(ctx, structs.RelayDescriptor{ID: 1, PublicKey: "k1"}))

	err = d.Register(ctx, structs.RelayDescriptor{ID: 1, PublicKey: "other"})
	assert.True(t, errors.Is(err, registry.ErrAlreadyRegistered), "got %v", err)

	relays, err = d.GetAllRelays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []structs.RelayDescriptor{{ID: 1, PublicKey: "k1"}, {ID: 3, PublicKey: "k3"}}, relays)
}

func TestHTTPDirectoryUnreachable(t *testing.T) {
	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()

	_, err := NewHTTPDirectory(url, time.Second).GetAllRelays(context.Background())
	assert.Error(t, err)
}

func TestFileDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relays.yml")
	d := NewFileDirectory(path)
	ctx := context.Background()

	relays, err := d.GetAllRelays(ctx)
	require.NoError(t, err)
	assert.Empty(t, relays)

	require.NoError(t, d.Register(ctx, structs.RelayDescriptor{ID: 0, PublicKey: "k0"}))
	require.NoError(t, d.Register(ctx, structs.RelayDescriptor{ID: 4, PublicKey: "k4"}))
	require.NoError(t, d.Register(ctx, structs.RelayDescriptor{ID: 4, PublicKey: "k4"}))
	assert.True(t, errors.Is(d.Register(ctx, structs.RelayDescriptor{ID: 0, PublicKey: "x"}), registry.ErrAlreadyRegistered))

	relays, err = NewFileDirectory(path).GetAllRelays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []structs.RelayDescriptor{{ID: 0, PublicKey: "k0"}, {ID: 4, PublicKey: "k4"}}, relays)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "nodeId: 4")
	assert.Contains(t, string(data), "pubKey: k4")
}

func TestReadSnapshotBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relays.yml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: [::"), 0o644))
	_, err := ReadSnapshot(path)
	assert.Error(t, err)
}
