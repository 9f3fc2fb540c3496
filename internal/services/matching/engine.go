package matching

import (
	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
)

// Outcome is the engine's verdict for one transaction.
type Outcome string

const (
	OutcomeMatched            Outcome = "matched"
	OutcomeAlreadyMatched     Outcome = "already_matched"
	OutcomeNoReference        Outcome = "no_reference"
	OutcomeMalformedReference Outcome = "malformed_reference"
	OutcomeNoCandidate        Outcome = "no_candidate"
	OutcomeAmbiguous          Outcome = "ambiguous"
)

// Decision pairs a transaction with the user it should be attributed to.
// UserID is set only when Outcome is OutcomeMatched.
type Decision struct {
	TransactionID uuid.UUID
	Outcome       Outcome
	Reference     string
	UserID        *uuid.UUID
	PaymentType   models.PaymentType
	Candidates    int
}

// Proposed reports whether the decision should be committed to the store.
func (d Decision) Proposed() bool {
	return d.Outcome == OutcomeMatched
}

// Index maps normalized variable symbols to the users carrying them.
type Index struct {
	bySymbol map[string][]uuid.UUID
}

func NewIndex(users []models.User) *Index {
	ix := &Index{bySymbol: make(map[string][]uuid.UUID, len(users))}
	for i := range users {
		sym, err := Normalize(users[i].Symbol())
		if err != nil {
			continue
		}
		ix.bySymbol[sym] = append(ix.bySymbol[sym], users[i].ID)
	}
	return ix
}

// Lookup returns the ids of every user whose symbol equals the normalized reference.
func (ix *Index) Lookup(normalized string) []uuid.UUID {
	return ix.bySymbol[normalized]
}

// Len returns the number of distinct symbols.
func (ix *Index) Len() int {
	return len(ix.bySymbol)
}

// Decide attributes a single transaction. Only an exact, unique symbol match
// yields OutcomeMatched; everything else leaves the transaction for manual review.
func Decide(tx *models.BankPayment, ix *Index, defaultType models.PaymentType) Decision {
	d := Decision{TransactionID: tx.ID, Reference: tx.PayerReference}

	if tx.Matched {
		d.Outcome = OutcomeAlreadyMatched
		return d
	}

	ref, err := Normalize(tx.PayerReference)
	switch err {
	case nil:
	case ErrEmptyReference:
		d.Outcome = OutcomeNoReference
		return d
	default:
		d.Outcome = OutcomeMalformedReference
		return d
	}
	d.Reference = ref

	ids := ix.Lookup(ref)
	d.Candidates = len(ids)
	switch len(ids) {
	case 0:
		d.Outcome = OutcomeNoCandidate
	case 1:
		uid := ids[0]
		d.Outcome = OutcomeMatched
		d.UserID = &uid
		d.PaymentType = defaultType
	default:
		d.Outcome = OutcomeAmbiguous
	}
	return d
}
