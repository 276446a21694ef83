package transport

import (
	"context"
	"sync"

	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
	"github.com/pkg/errors"
)

// Loopback delivers blobs to handlers registered in the same process.
type Loopback struct {
	mu       sync.RWMutex
	handlers map[int]Handler
}

func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[int]Handler)}
}

func (l *Loopback) Register(address int, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[address] = h
}

func (l *Loopback) Unregister(address int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, address)
}

func (l *Loopback) Deliver(ctx context.Context, address int, blob []byte) error {
	l.mu.RLock()
	h, ok := l.handlers[address]
	l.mu.RUnlock()
	if !ok {
		return &DeliveryError{Address: address, Err: errors.New("no handler registered")}
	}
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Address: address, Err: err}
	}
	if err := h(ctx, utils.Clone(blob)); err != nil {
		return &DeliveryError{Address: address, Err: err}
	}
	return nil
}
