// Package directory is how relays and senders reach the node registry.
package directory

import (
	"context"
	"net/http"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/api_functions"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/registry"
	"github.com/pkg/errors"
)

type Directory interface {
	GetAllRelays(ctx context.Context) ([]structs.RelayDescriptor, error)
	Register(ctx context.Context, relay structs.RelayDescriptor) error
}

// HTTPDirectory talks to a registry service.
type HTTPDirectory struct {
	client  *http.Client
	baseURL string
}

func NewHTTPDirectory(baseURL string, timeout time.Duration) *HTTPDirectory {
	return &HTTPDirectory{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (d *HTTPDirectory) GetAllRelays(ctx context.Context) ([]structs.RelayDescriptor, error) {
	var body structs.GetNodeRegistryBody
	if err := api_functions.GetJSON(ctx, d.client, d.baseURL+"/getNodeRegistry", &body); err != nil {
		return nil, errors.Wrap(err, "failed to fetch node registry")
	}
	return body.Nodes, nil
}

func (d *HTTPDirectory) Register(ctx context.Context, relay structs.RelayDescriptor) error {
	_, err := api_functions.PostJSON(ctx, d.client, d.baseURL+"/registerNode", relay, false)
	if err == nil {
		return nil
	}
	var statusErr *api_functions.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return errors.Wrapf(registry.ErrAlreadyRegistered, "node %d", relay.ID)
	}
	return errors.Wrapf(err, "failed to register node %d", relay.ID)
}
