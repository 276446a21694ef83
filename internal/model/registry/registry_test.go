package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreSemantics(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, structs.RelayDescriptor{ID: 2, PublicKey: "b"}))
	require.NoError(t, store.Register(ctx, structs.RelayDescriptor{ID: 0, PublicKey: "a"}))
	require.NoError(t, store.Register(ctx, structs.RelayDescriptor{ID: 1, PublicKey: "c"}))

	// same key again is a no-op
	require.NoError(t, store.Register(ctx, structs.RelayDescriptor{ID: 2, PublicKey: "b"}))

	err := store.Register(ctx, structs.RelayDescriptor{ID: 2, PublicKey: "other"})
	assert.True(t, errors.Is(err, ErrAlreadyRegistered), "got %v", err)

	relays, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []structs.RelayDescriptor{{ID: 0, PublicKey: "a"}, {ID: 1, PublicKey: "c"}, {ID: 2, PublicKey: "b"}}, relays)
}

func TestMemoryStore(t *testing.T) {
	testStoreSemantics(t, NewMemoryStore())
}

func TestMemoryStoreEmptyList(t *testing.T) {
	relays, err := NewMemoryStore().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, relays)
	assert.Empty(t, relays)
}

func TestMemoryStoreConcurrentConflict(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if store.Register(context.Background(), structs.RelayDescriptor{ID: 1, PublicKey: fmt.Sprintf("k%d", i)}) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ONION_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ONION_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn, "onion_registry_test")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Reset(ctx))

	testStoreSemantics(t, store)
}

func newTestRegistry(t *testing.T) (*Registry, *httptest.Server, keys.KeyService) {
	ks, err := keys.New(keys.BoxName, keys.GCMName)
	require.NoError(t, err)
	r := NewRegistry(NewMemoryStore(), ks)
	server := httptest.NewServer(r.Routes())
	t.Cleanup(server.Close)
	return r, server, ks
}

func publicKey(t *testing.T, ks keys.KeyService) string {
	kp, err := ks.GenerateKeyPair()
	require.NoError(t, err)
	pub, err := ks.ExportPublicKey(kp.Public)
	require.NoError(t, err)
	return pub
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegistryHandlers(t *testing.T) {
	_, server, ks := newTestRegistry(t)
	key0, key1 := publicKey(t, ks), publicKey(t, ks)

	resp := post(t, server.URL+"/registerNode", structs.RegisterNodeBody{ID: 1, PublicKey: key1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result structs.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "success", result.Result)

	resp = post(t, server.URL+"/registerNode", structs.RegisterNodeBody{ID: 0, PublicKey: key0})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, server.URL+"/registerNode", structs.RegisterNodeBody{ID: 1, PublicKey: key0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	getResp, err := http.Get(server.URL + "/getNodeRegistry")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var registry structs.GetNodeRegistryBody
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&registry))
	assert.Equal(t, []structs.RelayDescriptor{{ID: 0, PublicKey: key0}, {ID: 1, PublicKey: key1}}, registry.Nodes)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	_, server, ks := newTestRegistry(t)

	for _, body := range []interface{}{
		structs.RegisterNodeBody{ID: 1, PublicKey: ""},
		structs.RegisterNodeBody{ID: -1, PublicKey: publicKey(t, ks)},
		structs.RegisterNodeBody{ID: 1, PublicKey: "bm90IGEga2V5"},
		"not an object",
	} {
		resp := post(t, server.URL+"/registerNode", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %v", body)
	}
}

func TestRegistryStatusAndMethods(t *testing.T) {
	_, server, _ := newTestRegistry(t)

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "live", buf.String())

	getResp, err := http.Get(server.URL + "/registerNode")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestRegistryEmptyListIsArray(t *testing.T) {
	_, server, _ := newTestRegistry(t)
	resp, err := http.Get(server.URL + "/getNodeRegistry")
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", string(raw["nodes"]))
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer store.Close()
	testStoreSemantics(t, store)
}

func TestBoltStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	store, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, store.Register(ctx, structs.RelayDescriptor{ID: 12, PublicKey: "x"}))
	require.NoError(t, store.Register(ctx, structs.RelayDescriptor{ID: 3, PublicKey: "y"}))
	require.NoError(t, store.Close())

	store, err = OpenBolt(path)
	require.NoError(t, err)
	defer store.Close()
	relays, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []structs.RelayDescriptor{{ID: 3, PublicKey: "y"}, {ID: 12, PublicKey: "x"}}, relays)

	err = store.Register(ctx, structs.RelayDescriptor{ID: 12, PublicKey: "z"})
	assert.True(t, errors.Is(err, ErrAlreadyRegistered), "got %v", err)
}

func TestBoltStoreRejectsNegativeID(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.Error(t, store.Register(context.Background(), structs.RelayDescriptor{ID: -1, PublicKey: "x"}))
}
