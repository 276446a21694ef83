package structs

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
)

// HistoryLimit bounds how many sent and received messages a UserStatus remembers.
const HistoryLimit = 100

type UserStatus struct {
	ID               int
	Address          int
	MessagesSent     []SentMessage
	MessagesReceived []ReceivedMessage
	LastCircuit      []int
	mu               sync.RWMutex
}

func NewUserStatus(id, address int) *UserStatus {
	return &UserStatus{
		ID:               id,
		Address:          address,
		MessagesSent:     make([]SentMessage, 0),
		MessagesReceived: make([]ReceivedMessage, 0),
	}
}

func (us *UserStatus) SetLastCircuit(circuit []int) {
	us.mu.Lock()
	defer us.mu.Unlock()
	us.LastCircuit = utils.Clone(circuit)
}

func (us *UserStatus) AddSent(id string, destination int, circuit []int, message string) {
	us.mu.Lock()
	defer us.mu.Unlock()
	us.MessagesSent = utils.AppendBounded(us.MessagesSent, SentMessage{
		ID:          id,
		Destination: destination,
		Circuit:     utils.Clone(circuit),
		Message:     message,
		TimeSent:    time.Now(),
	}, HistoryLimit)
}

func (us *UserStatus) AddReceived(message string) {
	us.mu.Lock()
	defer us.mu.Unlock()
	us.MessagesReceived = utils.AppendBounded(us.MessagesReceived, ReceivedMessage{
		Message:      message,
		TimeReceived: time.Now(),
	}, HistoryLimit)
}

func (us *UserStatus) GetLastCircuit() []int {
	us.mu.RLock()
	defer us.mu.RUnlock()
	return utils.Clone(us.LastCircuit)
}

// GetLastSent returns false if nothing has been sent yet.
func (us *UserStatus) GetLastSent() (string, bool) {
	us.mu.RLock()
	defer us.mu.RUnlock()
	if len(us.MessagesSent) == 0 {
		return "", false
	}
	return us.MessagesSent[len(us.MessagesSent)-1].Message, true
}

func (us *UserStatus) GetLastReceived() (string, bool) {
	us.mu.RLock()
	defer us.mu.RUnlock()
	if len(us.MessagesReceived) == 0 {
		return "", false
	}
	return us.MessagesReceived[len(us.MessagesReceived)-1].Message, true
}

func (us *UserStatus) GetStatus() string {
	us.mu.RLock()
	defer us.mu.RUnlock()
	if str, err := json.Marshal(us); err != nil {
		slog.Error("Error marshalling user status", "error", err)
		return ""
	} else {
		return string(str)
	}
}
