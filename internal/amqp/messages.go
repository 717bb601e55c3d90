package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransferEvent announces one persisted scheduled transfer. Consumers use
// MessageID to recognise redeliveries.
type TransferEvent struct {
	MessageID     string    `json:"messageId"`
	UserID        string    `json:"userId"`
	ScheduleID    string    `json:"scheduleId"`
	BinID         string    `json:"binId"`
	BinName       string    `json:"binName"`
	AmountCents   int64     `json:"amountCents"`
	NewTotalCents int64     `json:"newTotalCents"`
	Frequency     string    `json:"frequency"`
	Date          string    `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransferEvent fills in a fresh message id and timestamp.
func NewTransferEvent(e TransferEvent) *TransferEvent {
	if e.MessageID == "" {
		e.MessageID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return &e
}

// ToJSON converts the message to JSON bytes
func (m *TransferEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransferEventFromJSON creates a message from JSON bytes
func TransferEventFromJSON(data []byte) (*TransferEvent, error) {
	var msg TransferEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
