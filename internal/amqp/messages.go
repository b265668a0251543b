package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"homeledger/internal/ledger"
)

// LedgerEventMessage is the wire form of a ledger.Event. It carries only the
// periods to refresh; consumers rebuild reports from the database.
type LedgerEventMessage struct {
	MessageID string       `json:"message_id"`
	Event     ledger.Event `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewLedgerEventMessage wraps ev with a fresh message id.
func NewLedgerEventMessage(ev ledger.Event) *LedgerEventMessage {
	return &LedgerEventMessage{
		MessageID: uuid.NewString(),
		Event:     ev,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
