package relay

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/directory"
	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/HannahMarsh/simple-onion-routing/internal/metrics"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
	"github.com/HannahMarsh/simple-onion-routing/internal/transport"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("relay: inbound rate limit exceeded")

// Relay peels one layer off every onion it receives and forwards the rest.
type Relay struct {
	ID         int    // Unique identifier for the relay.
	Address    int    // Address the relay receives onions on.
	PublicKey  string // Exported public key, as registered.
	privateKey crypto.PrivateKey
	keys       keys.KeyService
	codec      *onion.Codec
	transport  transport.Transport
	limiter    *rate.Limiter // nil when inbound traffic is unlimited
	status     *structs.RelayStatus
	name       string
}

// NewRelay generates the relay's key pair and registers it with the directory. A
// maxInboundPerSecond of zero or less disables rate limiting.
func NewRelay(ctx context.Context, id, address int, keyService keys.KeyService, dir directory.Directory, tr transport.Transport, maxInboundPerSecond float64) (*Relay, error) {
	kp, err := keyService.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "relay.NewRelay(): failed to generate key pair")
	}
	publicKey, err := keyService.ExportPublicKey(kp.Public)
	if err != nil {
		return nil, errors.Wrap(err, "relay.NewRelay(): failed to export public key")
	}

	n := &Relay{
		ID:         id,
		Address:    address,
		PublicKey:  publicKey,
		privateKey: kp.Private,
		keys:       keyService,
		codec:      onion.NewCodec(keyService),
		transport:  tr,
		status:     structs.NewRelayStatus(id, address, publicKey),
		name:       fmt.Sprintf("relay-%d", id),
	}
	if maxInboundPerSecond > 0 {
		burst := int(maxInboundPerSecond)
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(maxInboundPerSecond), burst)
	}

	slog.Info("Sending relay registration request.", "id", id)
	if err := dir.Register(ctx, structs.RelayDescriptor{ID: id, PublicKey: publicKey}); err != nil {
		return nil, errors.Wrap(err, "relay.NewRelay(): failed to register with registry")
	}
	return n, nil
}

// Receive peels one layer of blob and delivers the residual to the next hop. It returns
// only after that hop accepted it, so failures further down the circuit surface here.
func (n *Relay) Receive(ctx context.Context, blob []byte) error {
	n.status.SetReceived(blob)

	if n.limiter != nil && !n.limiter.Allow() {
		metrics.Inc(metrics.LAYERS_PEELED, n.name, metrics.OutcomeRateLimited)
		return errors.Wrapf(ErrRateLimited, "relay %d", n.ID)
	}

	start := time.Now()
	nextHop, residual, err := n.codec.DecodeLayer(n.privateKey, blob)
	metrics.Since(metrics.PEEL_TIME, start, n.name)
	if err != nil {
		n.status.AddRejected()
		metrics.Inc(metrics.LAYERS_PEELED, n.name, metrics.OutcomeRejected)
		return errors.Wrapf(err, "relay %d: failed to remove layer", n.ID)
	}
	n.status.SetPeeled(residual, nextHop)

	slog.Info("Received onion", "relay", n.ID, "nextHop", config.AddressToName(nextHop), "size", len(blob))

	if err := n.transport.Deliver(ctx, nextHop, residual); err != nil {
		metrics.Inc(metrics.LAYERS_PEELED, n.name, metrics.OutcomeForwardFailed)
		return errors.Wrapf(err, "relay %d: failed to forward to %d", n.ID, nextHop)
	}
	n.status.AddForwarded()
	metrics.Inc(metrics.LAYERS_PEELED, n.name, metrics.OutcomeForwarded)
	return nil
}

func (n *Relay) GetStatus() string {
	return n.status.GetStatus()
}

func (n *Relay) LastReceivedEncrypted() []byte {
	return n.status.GetLastReceivedEncrypted()
}

func (n *Relay) LastReceivedDecrypted() []byte {
	return n.status.GetLastReceivedDecrypted()
}

func (n *Relay) LastDestination() (int, bool) {
	return n.status.GetLastDestination()
}

// ExportPrivateKey is exposed for diagnostics only.
func (n *Relay) ExportPrivateKey() (string, error) {
	return n.keys.ExportPrivateKey(n.privateKey)
}
