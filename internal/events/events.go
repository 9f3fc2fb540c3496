// Package events publishes payment match-state changes for downstream consumers
// such as the notification system.
package events

import (
	"context"
	"time"

	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeMatched   Type = "bank_payment.matched"
	TypeUnmatched Type = "bank_payment.unmatched"
)

// Event describes one transition of a bank payment between Unmatched and Matched.
type Event struct {
	Type          Type                `json:"type"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	PaymentType   *models.PaymentType `json:"payment_type,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Source        string              `json:"source"`
	Actor         string              `json:"actor,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
