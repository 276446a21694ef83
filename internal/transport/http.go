package transport

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/api_functions"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/metrics"
)

// Resolver maps an address to the base URL of the node listening on it.
type Resolver func(address int) string

// HTTPTransport POSTs {"message": base64(blob)} to <base>/message.
type HTTPTransport struct {
	client  *http.Client
	resolve Resolver
	gzip    bool
}

func NewHTTPTransport(timeout time.Duration, resolve Resolver, gzip bool) *HTTPTransport {
	return &HTTPTransport{
		client:  &http.Client{Timeout: timeout},
		resolve: resolve,
		gzip:    gzip,
	}
}

func (t *HTTPTransport) Deliver(ctx context.Context, address int, blob []byte) error {
	url := t.resolve(address) + "/message"
	slog.Debug("Sending onion...", "to", url, "size", len(blob))
	metrics.Observe(metrics.ONION_SIZE, float64(len(blob)))

	body := structs.MessageBody{Message: base64.StdEncoding.EncodeToString(blob)}
	if _, err := api_functions.PostJSON(ctx, t.client, url, body, t.gzip); err != nil {
		return &DeliveryError{Address: address, Err: err}
	}
	slog.Debug("Successfully sent onion", "to", url)
	return nil
}
