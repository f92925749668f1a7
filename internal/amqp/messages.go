package amqp

import (
	"encoding/json"
	"time"
)

// Entities and actions carried by ledger events.
const (
	EntityExpense = "expense"
	EntityIncome  = "income"

	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionRecorded = "recorded"
)

// LedgerEvent is a lightweight notification that a ledger row changed.
// It carries only the identity of the change; consumers fetch current
// row state from storage when they need it.
type LedgerEvent struct {
	Entity    string    `json:"entity"`
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(entity string, id int64, action string) *LedgerEvent {
	return &LedgerEvent{
		Entity:    entity,
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
