package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// Reasons carried by ExpensesChangedMessage.
const (
	ReasonCreated   = "created"
	ReasonUpdated   = "updated"
	ReasonDeleted   = "deleted"
	ReasonImported  = "imported"
	ReasonRecurring = "recurring"
)

// ExpensesChangedMessage tells consumers which calendar months have new or
// modified records. An empty Months list means "anything may have changed".
type ExpensesChangedMessage struct {
	Months    []string  `json:"months"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpensesChangedMessage creates a change message stamped with the current time
func NewExpensesChangedMessage(reason string, months []core.YearMonth) *ExpensesChangedMessage {
	m := &ExpensesChangedMessage{
		Months:    make([]string, 0, len(months)),
		Reason:    reason,
		Timestamp: time.Now(),
	}
	for _, ym := range months {
		m.Months = append(m.Months, ym.String())
	}
	return m
}

// YearMonths parses Months back into calendar months.
func (m *ExpensesChangedMessage) YearMonths() ([]core.YearMonth, error) {
	out := make([]core.YearMonth, 0, len(m.Months))
	for _, s := range m.Months {
		ym, err := core.ParseYearMonth(s)
		if err != nil {
			return nil, fmt.Errorf("month %q: %w", s, err)
		}
		out = append(out, ym)
	}
	return out, nil
}

// ToJSON converts the message to JSON bytes
func (m *ExpensesChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpensesChangedMessageFromJSON decodes a message from JSON bytes
func ExpensesChangedMessageFromJSON(data []byte) (*ExpensesChangedMessage, error) {
	var msg ExpensesChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
