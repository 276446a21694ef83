package structs

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
)

// RelayStatus holds a relay's diagnostics. Every setter overwrites the previous value.
type RelayStatus struct {
	Relay                 RelayDescriptor
	Address               int
	LastReceivedEncrypted []byte
	LastReceivedDecrypted []byte
	LastDestination       *int
	Received              int
	Forwarded             int
	Rejected              int
	LastUpdated           time.Time
	mu                    sync.RWMutex
}

func NewRelayStatus(id, address int, publicKey string) *RelayStatus {
	return &RelayStatus{
		Relay: RelayDescriptor{
			ID:        id,
			PublicKey: publicKey,
		},
		Address:     address,
		LastUpdated: time.Now(),
	}
}

func (rs *RelayStatus) SetReceived(blob []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastReceivedEncrypted = utils.Clone(blob)
	rs.Received++
	rs.LastUpdated = time.Now()
}

func (rs *RelayStatus) SetPeeled(decrypted []byte, destination int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastReceivedDecrypted = utils.Clone(decrypted)
	rs.LastDestination = &destination
	rs.LastUpdated = time.Now()
}

func (rs *RelayStatus) AddForwarded() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Forwarded++
}

func (rs *RelayStatus) AddRejected() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Rejected++
}

func (rs *RelayStatus) GetLastReceivedEncrypted() []byte {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return utils.Clone(rs.LastReceivedEncrypted)
}

func (rs *RelayStatus) GetLastReceivedDecrypted() []byte {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return utils.Clone(rs.LastReceivedDecrypted)
}

// GetLastDestination returns false until the relay has peeled its first layer.
func (rs *RelayStatus) GetLastDestination() (int, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if rs.LastDestination == nil {
		return 0, false
	}
	return *rs.LastDestination, true
}

func (rs *RelayStatus) GetStatus() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if str, err := json.Marshal(rs); err != nil {
		slog.Error("Error marshalling relay status", "error", err)
		return ""
	} else {
		return string(str)
	}
}
