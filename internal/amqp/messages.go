package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried by RecordsChangedMessage.
const (
	OpPut    = "put"
	OpDelete = "delete"
	OpSeed   = "seed"
)

// RecordsChangedMessage announces that budget records changed. It carries
// no record data: subscribers re-run their own queries.
type RecordsChangedMessage struct {
	Op        string    `json:"op"`
	RecordID  string    `json:"record_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordsChangedMessage(op, recordID, userID string) *RecordsChangedMessage {
	return &RecordsChangedMessage{
		Op:        op,
		RecordID:  recordID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *RecordsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordsChangedMessageFromJSON(data []byte) (*RecordsChangedMessage, error) {
	var msg RecordsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
