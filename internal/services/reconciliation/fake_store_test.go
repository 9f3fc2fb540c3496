package reconciliation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"bank-payments-backend/internal/models"
	"bank-payments-backend/internal/repository"

	"github.com/google/uuid"
)

// fakeStore keeps payments and users in memory and counts calls that matter
// to the tests.
type fakeStore struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.BankPayment
	order    []uuid.UUID
	users    map[uuid.UUID]*models.User
	audit    []models.MatchAuditLog

	searchCalls int
	updateCalls int
	failUpdate  map[uuid.UUID]error
	failAudit   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments:   map[uuid.UUID]*models.BankPayment{},
		users:      map[uuid.UUID]*models.User{},
		failUpdate: map[uuid.UUID]error{},
	}
}

func (f *fakeStore) addPayment(p models.BankPayment) *models.BankPayment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.payments[p.ID] = &p
	f.order = append(f.order, p.ID)
	return &p
}

func (f *fakeStore) addUser(u models.User) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = &u
	return u
}

func (f *fakeStore) payment(id uuid.UUID) models.BankPayment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.payments[id]
}

func (f *fakeStore) ListUnmatchedTransactions(ctx context.Context) ([]models.BankPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BankPayment
	for _, id := range f.order {
		if p := f.payments[id]; !p.Matched {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) CountMatchedTransactions(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.payments {
		if p.Matched {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, flt repository.PaymentFilter) (repository.PaymentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var page repository.PaymentPage
	for _, id := range f.order {
		p := f.payments[id]
		if flt.Status == repository.StatusMatched && !p.Matched {
			continue
		}
		if flt.Status == repository.StatusUnmatched && p.Matched {
			continue
		}
		page.Items = append(page.Items, *p)
	}
	return page, nil
}

func (f *fakeStore) TransactionStats(ctx context.Context) (repository.PaymentStats, error) {
	return repository.PaymentStats{}, errors.New("not implemented")
}

func (f *fakeStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) UpdateTransaction(ctx context.Context, id uuid.UUID, expectMatched bool, state repository.MatchState) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if err := f.failUpdate[id]; err != nil {
		return false, err
	}
	p, ok := f.payments[id]
	if !ok || p.Matched != expectMatched {
		return false, nil
	}
	p.Matched = state.Matched
	p.RelatedID = state.RelatedID
	p.PaymentType = state.PaymentType
	return true, nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeStore) SearchUsersByText(ctx context.Context, query string, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	q := strings.ToLower(query)
	var out []models.User
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.DisplayName), q) ||
			strings.Contains(strings.ToLower(u.Symbol()), q) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) AppendAudit(ctx context.Context, entry *models.MatchAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAudit != nil {
		return f.failAudit
	}
	f.audit = append(f.audit, *entry)
	return nil
}

func (f *fakeStore) ListAudit(ctx context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MatchAuditLog
	for _, e := range f.audit {
		if e.TransactionID == txID {
			out = append(out, e)
		}
	}
	return out, nil
}
