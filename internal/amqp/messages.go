package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/source"
)

const (
	KindBudgetWarning      = "budget.warning"
	KindTransactionChanged = "transaction.changed"
)

// Message is the envelope of everything published on the exchange. Exactly
// one of Warning and Change is set, according to Kind.
type Message struct {
	Kind      string          `json:"kind"`
	Warning   *budget.Warning `json:"warning,omitempty"`
	Change    *source.Change  `json:"change,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewWarningMessage(w budget.Warning) *Message {
	return &Message{Kind: KindBudgetWarning, Warning: &w, Timestamp: time.Now().UTC()}
}

func NewChangeMessage(c source.Change) *Message {
	return &Message{Kind: KindTransactionChanged, Change: &c, Timestamp: time.Now().UTC()}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate checks that the payload matches the kind.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindBudgetWarning:
		if m.Warning == nil {
			return errors.New("budget warning message without warning")
		}
	case KindTransactionChanged:
		if m.Change == nil {
			return errors.New("transaction change message without change")
		}
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	return nil
}

// MessageFromJSON decodes and validates a message body.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
