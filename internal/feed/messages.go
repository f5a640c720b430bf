package feed

import (
	"encoding/json"
	"time"
)

// Actions a change message can carry.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ChangeMessage announces that a row in one of the synced tables changed.
// It carries only the table and record id; receivers resync rather than
// patching state from the message.
type ChangeMessage struct {
	Table     string    `json:"table"`
	RecordID  string    `json:"record_id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(table, recordID, action, actorID string) *ChangeMessage {
	return &ChangeMessage{
		Table:     table,
		RecordID:  recordID,
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
