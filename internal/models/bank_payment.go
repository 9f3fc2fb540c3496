package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeDonation     PaymentType = "donation"
	PaymentTypeShop         PaymentType = "shop"
	PaymentTypeSubscription PaymentType = "subscription"
)

// PaymentTypes lists every accepted payment purpose.
var PaymentTypes = []PaymentType{
	PaymentTypeDonation,
	PaymentTypeShop,
	PaymentTypeSubscription,
}

func (p PaymentType) Valid() bool {
	for _, t := range PaymentTypes {
		if p == t {
			return true
		}
	}
	return false
}

// ParsePaymentType accepts the lower-case wire name of a payment type.
func ParsePaymentType(s string) (PaymentType, error) {
	p := PaymentType(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown payment type %q", s)
	}
	return p, nil
}

// BankPayment is a single incoming bank-statement line.
type BankPayment struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ImportBatchID       *uuid.UUID      `gorm:"type:uuid;index" json:"import_batch_id,omitempty"`
	ImportKey           *string         `gorm:"size:128;uniqueIndex" json:"-"`
	TransactionDate     time.Time       `gorm:"column:transaction_date;index" json:"transaction_date"`
	Amount              decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Currency            string          `gorm:"size:3" json:"currency"`
	PayerReference      string          `gorm:"index" json:"payer_reference"`
	CounterpartyName    string          `json:"counterparty_name"`
	CounterpartyAccount string          `json:"counterparty_account"`
	CounterpartyBank    string          `json:"counterparty_bank"`
	Message             string          `json:"message"`
	Matched             bool            `gorm:"index;not null;default:false" json:"matched"`
	PaymentType         *PaymentType    `gorm:"size:16" json:"payment_type"`
	RelatedID           *uuid.UUID      `gorm:"type:uuid;index" json:"related_id"`
	CreatedAt           time.Time       `json:"created_at"`
}

var (
	errMissingID          = errors.New("missing id")
	errMatchedWithoutUser = errors.New("matched without related user")
	errUnmatchedWithState = errors.New("unmatched but carries match state")
)

// Validate checks the match-state invariant of a row read from the store.
func (p *BankPayment) Validate() error {
	if p.ID == uuid.Nil {
		return errMissingID
	}
	if p.Matched && p.RelatedID == nil {
		return errMatchedWithoutUser
	}
	if !p.Matched && (p.RelatedID != nil || p.PaymentType != nil) {
		return errUnmatchedWithState
	}
	return nil
}
