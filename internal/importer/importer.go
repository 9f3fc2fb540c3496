package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"bank-payments-backend/internal/models"
)

// Parser converts a bank statement export into unsaved BankPayments.
// Rows that cannot be used are reported in Result.Rejected; an error is
// returned only when the file as a whole is unreadable.
type Parser interface {
	Parse(r io.Reader) (Result, error)
	Format() string
}

// Result is what a parser produced from one file. Payments carry no ID yet;
// ImportKey identifies the statement line across re-imports.
type Result struct {
	Payments []models.BankPayment
	Rejected []RowError
	Rows     int
}

type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Err)
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(strings.TrimSpace(format))]
}

// Formats lists registered format names in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGenericParser())
	r.Register(NewFioParser())
	return r
}

// DefaultFormat is used when the caller names none.
const DefaultFormat = "generic"

// importKey prefers the bank's own line id. Without one it hashes the fields
// that make a statement line unique, so the same file imported twice yields
// the same keys. seen counts identical lines within one file; every repeat
// after the first also hashes its occurrence number so it keeps its own key.
func importKey(format, bankID string, p *models.BankPayment, seen map[string]int) string {
	if bankID != "" {
		return format + ":" + bankID
	}
	h := sha256.New()
	for _, part := range []string{
		p.TransactionDate.Format("2006-01-02"),
		p.Amount.StringFixed(2),
		p.Currency,
		p.PayerReference,
		p.CounterpartyAccount,
		p.CounterpartyBank,
		p.Message,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	fingerprint := string(h.Sum(nil))
	n := seen[fingerprint]
	seen[fingerprint] = n + 1
	if n > 0 {
		h.Write([]byte(strconv.Itoa(n)))
	}
	return format + ":sha256:" + hex.EncodeToString(h.Sum(nil))
}
