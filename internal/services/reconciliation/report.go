package reconciliation

import "github.com/google/uuid"

// MatchReport summarises one auto-match run. Skipped counts transactions that
// were already matched when the run started; Unmatched counts those considered
// but left unmatched, including ambiguous references and failed commits.
type MatchReport struct {
	Matched   int            `json:"matched"`
	Unmatched int            `json:"unmatched"`
	Skipped   int            `json:"skipped"`
	Ambiguous int            `json:"ambiguous"`
	Failed    int            `json:"failed"`
	Failures  []MatchFailure `json:"failures,omitempty"`
}

type MatchFailure struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Error         string    `json:"error"`
}
