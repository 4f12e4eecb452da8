package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"fleetbudget/internal/core"
)

// InvoiceCreatedMessage announces a stored invoice. It only carries what the
// budget worker needs to decide which month to re-check; the worker reads
// spending from the database.
type InvoiceCreatedMessage struct {
	OrderID   string    `json:"order_id"`
	VehicleID string    `json:"vehicle_id"`
	OrderDate string    `json:"order_date"`
	Period    string    `json:"period"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceCreatedMessage(order core.Order) *InvoiceCreatedMessage {
	return &InvoiceCreatedMessage{
		OrderID:   order.ID,
		VehicleID: string(order.VehicleID),
		OrderDate: order.OrderDate.String(),
		Period:    core.PeriodOf(order.OrderDate.Time).Key(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *InvoiceCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetPeriod is the month whose budget the invoice may have pushed over.
func (m *InvoiceCreatedMessage) BudgetPeriod() (core.Period, error) {
	return core.ParsePeriod(m.Period)
}

func InvoiceCreatedMessageFromJSON(data []byte) (*InvoiceCreatedMessage, error) {
	var msg InvoiceCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Period == "" {
		return nil, errors.New("message has no period")
	}
	return &msg, nil
}
