package reconciliation

import (
	"errors"

	"bank-payments-backend/internal/repository"
)

// A match can only be replaced by unmatching first, and clearing a match that
// does not exist is reported rather than ignored.
var (
	ErrAlreadyMatched     = errors.New("transaction is already matched")
	ErrNotMatched         = errors.New("transaction is not matched")
	ErrNotFound           = repository.ErrNotFound
	ErrInvalidPaymentType = errors.New("invalid payment type")
)
