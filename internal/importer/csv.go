package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bank-payments-backend/internal/models"

	"github.com/shopspring/decimal"
)

// field names a BankPayment attribute a CSV column can feed.
type field int

const (
	fieldID field = iota
	fieldDate
	fieldAmount
	fieldCurrency
	fieldReference
	fieldCounterpartyName
	fieldCounterpartyAccount
	fieldCounterpartyBank
	fieldMessage
)

// columnParser reads header-named CSV exports. Formats differ only in their
// header vocabulary, date layouts, and preamble.
type columnParser struct {
	format      string
	comma       rune // 0 sniffs the delimiter from the header line
	dateLayouts []string
	aliases     map[string]field
	// headerPrefix, when set, skips preamble lines until one starts with it.
	headerPrefix    string
	defaultCurrency string
}

func (p *columnParser) Format() string { return p.format }

var errNoHeader = errors.New("header row not found")

func (p *columnParser) Parse(r io.Reader) (Result, error) {
	br := bufio.NewReader(r)
	headerLine, err := p.findHeader(br)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s CSV: %w", p.format, err)
	}

	comma := p.comma
	if comma == 0 {
		comma = sniffDelimiter(headerLine)
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(headerLine), br))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("reading %s CSV header: %w", p.format, err)
	}
	cols, err := p.mapHeader(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	seen := make(map[string]int)
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Rows++
				res.Rejected = append(res.Rejected, RowError{Row: row, Err: perr.Err.Error()})
				continue
			}
			return Result{}, fmt.Errorf("reading %s CSV: %w", p.format, err)
		}
		if blank(rec) {
			continue
		}
		res.Rows++

		payment, err := p.parseRow(rec, cols, seen)
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Row: row, Err: err.Error()})
			continue
		}
		res.Payments = append(res.Payments, payment)
	}
	return res, nil
}

func (p *columnParser) findHeader(br *bufio.Reader) (string, error) {
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimPrefix(strings.TrimSpace(line), "\ufeff")
		if trimmed != "" && (p.headerPrefix == "" || strings.HasPrefix(strings.Trim(trimmed, `"`), p.headerPrefix)) {
			return strings.TrimPrefix(line, "\ufeff"), nil
		}
		if err == io.EOF {
			return "", errNoHeader
		}
		if err != nil {
			return "", err
		}
	}
}

func (p *columnParser) mapHeader(header []string) (map[field]int, error) {
	cols := make(map[field]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if f, ok := p.aliases[key]; ok {
			if _, dup := cols[f]; !dup {
				cols[f] = i
			}
		}
	}
	for _, required := range []field{fieldDate, fieldAmount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s CSV: missing required column for %s", p.format, required)
		}
	}
	return cols, nil
}

func (p *columnParser) parseRow(rec []string, cols map[field]int, seen map[string]int) (models.BankPayment, error) {
	get := func(f field) string {
		i, ok := cols[f]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, err := parseDate(get(fieldDate), p.dateLayouts)
	if err != nil {
		return models.BankPayment{}, err
	}
	amount, err := parseAmount(get(fieldAmount))
	if err != nil {
		return models.BankPayment{}, err
	}
	if !amount.IsPositive() {
		return models.BankPayment{}, fmt.Errorf("amount %s is not an incoming payment", amount.String())
	}

	currency := strings.ToUpper(get(fieldCurrency))
	if currency == "" {
		currency = p.defaultCurrency
	}

	payment := models.BankPayment{
		TransactionDate:     date,
		Amount:              amount.Round(2),
		Currency:            currency,
		PayerReference:      get(fieldReference),
		CounterpartyName:    get(fieldCounterpartyName),
		CounterpartyAccount: get(fieldCounterpartyAccount),
		CounterpartyBank:    get(fieldCounterpartyBank),
		Message:             get(fieldMessage),
	}
	key := importKey(p.format, get(fieldID), &payment, seen)
	payment.ImportKey = &key
	return payment, nil
}

func (f field) String() string {
	switch f {
	case fieldDate:
		return "date"
	case fieldAmount:
		return "amount"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func parseDate(s string, layouts []string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// parseAmount accepts "1234.50", "1 234,50" and "1,234.50".
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("missing amount")
	}
	clean := strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	switch {
	case strings.Contains(clean, ",") && strings.Contains(clean, "."):
		clean = strings.ReplaceAll(clean, ",", "")
	case strings.Contains(clean, ","):
		clean = strings.ReplaceAll(clean, ",", ".")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

func sniffDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
