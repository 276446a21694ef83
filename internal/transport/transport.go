// Package transport delivers onion blobs to addresses.
package transport

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var ErrTransport = errors.New("transport: delivery failed")

type Transport interface {
	// Deliver hands blob to whatever listens on address and returns once the receiver
	// has processed it.
	Deliver(ctx context.Context, address int, blob []byte) error
}

// Handler processes a blob delivered to a local address.
type Handler func(ctx context.Context, blob []byte) error

// DeliveryError matches ErrTransport and unwraps to the underlying cause.
type DeliveryError struct {
	Address int
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("transport: delivery to %d failed: %v", e.Address, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrTransport
}
