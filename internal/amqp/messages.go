package amqp

import (
	"encoding/json"
	"time"

	"cassa/internal/core"
)

// Entry event actions carried on the wire.
const (
	ActionPosted  = "posted"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EntryEventMessage is a lightweight notification that a ledger entry
// changed. It carries only the identity; the export worker fetches the full
// row from storage, so a stale message can never overwrite newer data.
type EntryEventMessage struct {
	ID        int64     `json:"id"`
	Kind      core.Kind `json:"kind"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryEventMessage creates an event for one entry lifecycle transition.
func NewEntryEventMessage(id int64, kind core.Kind, action string) *EntryEventMessage {
	return &EntryEventMessage{
		ID:        id,
		Kind:      kind,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventMessageFromJSON creates a message from JSON bytes.
func EntryEventMessageFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
