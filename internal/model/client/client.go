package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/circuit"
	"github.com/HannahMarsh/simple-onion-routing/internal/directory"
	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/HannahMarsh/simple-onion-routing/internal/metrics"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
	"github.com/HannahMarsh/simple-onion-routing/internal/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AddressBook turns node ids into addresses.
type AddressBook interface {
	RelayAddress(id int) int
	UserAddress(id int) int
}

// Client is a user: it sends messages through random circuits and is the final
// recipient of messages addressed to it.
type Client struct {
	ID        int
	Address   int
	codec     *onion.Codec
	directory directory.Directory
	transport transport.Transport
	builder   *circuit.Builder
	addresses AddressBook
	status    *structs.UserStatus
	name      string
}

func NewClient(id, address int, keyService keys.KeyService, dir directory.Directory, tr transport.Transport, builder *circuit.Builder, addresses AddressBook) *Client {
	return &Client{
		ID:        id,
		Address:   address,
		codec:     onion.NewCodec(keyService),
		directory: dir,
		transport: tr,
		builder:   builder,
		addresses: addresses,
		status:    structs.NewUserStatus(id, address),
		name:      fmt.Sprintf("user-%d", id),
	}
}

// Send wraps message in one layer per relay of a fresh circuit and hands the onion to
// the first relay. The circuit is recorded even if delivery fails.
func (c *Client) Send(ctx context.Context, finalAddress int, message []byte) (err error) {
	id := uuid.New().String()
	defer func() {
		if err != nil {
			metrics.Inc(metrics.MSG_SENT, c.name, metrics.OutcomeFailed)
		} else {
			metrics.Inc(metrics.MSG_SENT, c.name, metrics.OutcomeSent)
		}
	}()

	relays, err := c.directory.GetAllRelays(ctx)
	if err != nil {
		return errors.Wrap(err, "client.Send(): failed to get relays")
	}
	selected, err := c.builder.Build(relays)
	if err != nil {
		return errors.Wrap(err, "client.Send(): failed to build circuit")
	}
	ids := selected.IDs()
	c.status.SetLastCircuit(ids)

	hops := make([]onion.Hop, len(selected))
	for i, r := range selected {
		hops[i] = onion.Hop{Address: c.addresses.RelayAddress(r.ID), PublicKey: r.PublicKey}
	}
	blob, err := c.codec.EncodeCircuit(hops, finalAddress, message)
	if err != nil {
		return errors.Wrap(err, "client.Send(): failed to form onion")
	}

	slog.Info("Sending message", "id", id, "from", c.ID, "to", config.AddressToName(finalAddress), "circuit", ids)
	if err := c.transport.Deliver(ctx, hops[0].Address, blob); err != nil {
		return errors.Wrapf(err, "client.Send(): message %s", id)
	}
	c.status.AddSent(id, finalAddress, ids, string(message))
	return nil
}

// SendToUser sends message to the user with the given id.
func (c *Client) SendToUser(ctx context.Context, userID int, message string) error {
	return c.Send(ctx, c.addresses.UserAddress(userID), []byte(message))
}

// ReceiveMessage is called when a message reaches this user.
func (c *Client) ReceiveMessage(_ context.Context, message []byte) error {
	c.status.AddReceived(string(message))
	metrics.Inc(metrics.MSG_RECEIVED, c.name)
	slog.Info("Received message", "user", c.ID, "size", len(message))
	return nil
}

func (c *Client) GetStatus() string {
	return c.status.GetStatus()
}

func (c *Client) LastCircuit() []int {
	return c.status.GetLastCircuit()
}

func (c *Client) LastSentMessage() (string, bool) {
	return c.status.GetLastSent()
}

func (c *Client) LastReceivedMessage() (string, bool) {
	return c.status.GetLastReceived()
}
