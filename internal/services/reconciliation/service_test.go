package reconciliation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"bank-payments-backend/internal/events"
	"bank-payments-backend/internal/models"
	"bank-payments-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func newService(store Store, opts ...Option) *ReconciliationService {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		withClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	}
	return NewReconciliationService(store, append(base, opts...)...)
}

func symbolUser(symbol string) models.User {
	s := symbol
	return models.User{ID: uuid.New(), Email: symbol + "@example.com", DisplayName: "User " + symbol, VariableSymbol: &s}
}

func unmatched(ref string) models.BankPayment {
	return models.BankPayment{
		ID:             uuid.New(),
		PayerReference: ref,
		Amount:         decimal.RequireFromString("20.00"),
		Currency:       "CZK",
	}
}

func TestAutoMatch_SingleMatchScenario(t *testing.T) {
	store := newFakeStore()
	u1 := store.addUser(symbolUser("VS1001"))
	t1 := store.addPayment(unmatched("VS1001"))
	pub := &recordingPublisher{}
	svc := newService(store, WithPublisher(pub))

	report, err := svc.AutoMatch(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 0, report.Unmatched)
	assert.Equal(t, 0, report.Skipped)

	got := store.payment(t1.ID)
	assert.True(t, got.Matched)
	require.NotNil(t, got.RelatedID)
	assert.Equal(t, u1.ID, *got.RelatedID)
	require.NotNil(t, got.PaymentType)
	assert.Equal(t, models.PaymentTypeDonation, *got.PaymentType)

	require.Len(t, store.audit, 1)
	assert.Equal(t, models.AuditActionAutoMatch, store.audit[0].Action)
	assert.Equal(t, "system", store.audit[0].PerformedBy)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeMatched, pub.events[0].Type)
	assert.Equal(t, "auto", pub.events[0].Source)
}

func TestAutoMatch_SharedSymbolIsAmbiguous(t *testing.T) {
	store := newFakeStore()
	store.addUser(symbolUser("VS1001"))
	store.addUser(symbolUser("VS1001"))
	tx := store.addPayment(unmatched("VS1001"))
	svc := newService(store)

	report, err := svc.AutoMatch(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.Ambiguous)

	got := store.payment(tx.ID)
	assert.False(t, got.Matched)
	assert.Nil(t, got.RelatedID)
	assert.Nil(t, got.PaymentType)
	assert.Zero(t, store.updateCalls)
}

func TestAutoMatch_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.addUser(symbolUser("A1"))
	store.addUser(symbolUser("B2"))
	store.addUser(symbolUser("C3"))
	store.addPayment(unmatched("a1"))
	store.addPayment(unmatched("B2"))
	store.addPayment(unmatched("C3"))
	store.addPayment(unmatched("ZZ"))
	store.addPayment(unmatched(""))
	svc := newService(store)

	first, err := svc.AutoMatch(context.Background(), models.PaymentTypeSubscription)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Matched)
	assert.Equal(t, 2, first.Unmatched)

	snapshot := map[uuid.UUID]models.BankPayment{}
	for id := range store.payments {
		snapshot[id] = store.payment(id)
	}

	second, err := svc.AutoMatch(context.Background(), models.PaymentTypeSubscription)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Matched)
	assert.Equal(t, first.Matched, second.Skipped)
	assert.Equal(t, 2, second.Unmatched)

	for id, before := range snapshot {
		assert.Equal(t, before, store.payment(id))
	}
}

func TestAutoMatch_ExistingMatchesNeverOverwritten(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	other := uuid.New()
	shop := models.PaymentTypeShop
	matched := unmatched("VS1")
	matched.Matched = true
	matched.RelatedID = &other
	matched.PaymentType = &shop
	m := store.addPayment(matched)
	fresh := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	report, err := svc.AutoMatch(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, other, *store.payment(m.ID).RelatedID)
	assert.Equal(t, models.PaymentTypeShop, *store.payment(m.ID).PaymentType)
	assert.Equal(t, u.ID, *store.payment(fresh.ID).RelatedID)
}

func TestAutoMatch_UpdateFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.addUser(symbolUser("A1"))
	store.addUser(symbolUser("B2"))
	bad := store.addPayment(unmatched("A1"))
	good := store.addPayment(unmatched("B2"))
	store.failUpdate[bad.ID] = errors.New("connection reset")
	svc := newService(store)

	report, err := svc.AutoMatch(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, bad.ID, report.Failures[0].TransactionID)
	assert.Contains(t, report.Failures[0].Error, "connection reset")
	assert.True(t, store.payment(good.ID).Matched)
	assert.False(t, store.payment(bad.ID).Matched)
}

func TestAutoMatch_InvalidRowIsReported(t *testing.T) {
	store := newFakeStore()
	store.addUser(symbolUser("A1"))
	broken := unmatched("A1")
	pt := models.PaymentTypeShop
	broken.PaymentType = &pt
	b := store.addPayment(broken)
	svc := newService(store)

	report, err := svc.AutoMatch(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Matched)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, store.payment(b.ID).Matched)
}

func TestAutoMatch_RejectsUnknownPaymentType(t *testing.T) {
	svc := newService(newFakeStore())
	_, err := svc.AutoMatch(context.Background(), "gift")
	assert.ErrorIs(t, err, ErrInvalidPaymentType)
}

func TestAutoMatch_UsesConfiguredDefault(t *testing.T) {
	store := newFakeStore()
	store.addUser(symbolUser("A1"))
	tx := store.addPayment(unmatched("A1"))
	svc := newService(store, WithDefaultPaymentType(models.PaymentTypeShop))

	_, err := svc.AutoMatch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeShop, *store.payment(tx.ID).PaymentType)
}

func TestAutoMatch_StopsOnCancelledContext(t *testing.T) {
	store := newFakeStore()
	store.addUser(symbolUser("A1"))
	tx := store.addPayment(unmatched("A1"))
	svc := newService(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.AutoMatch(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.payment(tx.ID).Matched)
}

func TestManualMatch_AlreadyMatchedRegardlessOfInput(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	_, err := svc.ManualMatch(context.Background(), tx.ID, u.ID, models.PaymentTypeDonation)
	require.NoError(t, err)

	cases := []struct {
		user uuid.UUID
		pt   models.PaymentType
	}{
		{u.ID, models.PaymentTypeShop},
		{uuid.New(), models.PaymentTypeDonation},
		{u.ID, "bogus"},
	}
	for _, c := range cases {
		_, err := svc.ManualMatch(context.Background(), tx.ID, c.user, c.pt)
		assert.ErrorIs(t, err, ErrAlreadyMatched)
	}
	assert.Equal(t, models.PaymentTypeDonation, *store.payment(tx.ID).PaymentType)
}

func TestManualMatch_NotFound(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	_, err := svc.ManualMatch(context.Background(), uuid.New(), u.ID, models.PaymentTypeDonation)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ManualMatch(context.Background(), tx.ID, uuid.New(), models.PaymentTypeDonation)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.payment(tx.ID).Matched)
}

func TestManualMatch_RequiresValidType(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	_, err := svc.ManualMatch(context.Background(), tx.ID, u.ID, "")
	assert.ErrorIs(t, err, ErrInvalidPaymentType)
	assert.Zero(t, store.updateCalls)
}

func TestManualMatch_LostRaceReportsAlreadyMatched(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	racer := &racingStore{fakeStore: store, before: func() {
		other := uuid.New()
		p := store.payments[tx.ID]
		p.Matched = true
		p.RelatedID = &other
	}}
	svc.store = racer

	_, err := svc.ManualMatch(context.Background(), tx.ID, u.ID, models.PaymentTypeShop)
	assert.ErrorIs(t, err, ErrAlreadyMatched)
}

// racingStore flips the row just before the conditional update runs.
type racingStore struct {
	*fakeStore
	before func()
}

func (r *racingStore) UpdateTransaction(ctx context.Context, id uuid.UUID, expectMatched bool, state repository.MatchState) (bool, error) {
	r.fakeStore.mu.Lock()
	r.before()
	r.fakeStore.mu.Unlock()
	return r.fakeStore.UpdateTransaction(ctx, id, expectMatched, state)
}

func TestUnmatch_NotMatched(t *testing.T) {
	store := newFakeStore()
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	_, err := svc.Unmatch(context.Background(), tx.ID)
	assert.ErrorIs(t, err, ErrNotMatched)

	_, err = svc.Unmatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManualMatchThenUnmatch_RoundTrip(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	before := store.payment(tx.ID)
	pub := &recordingPublisher{}
	svc := newService(store, WithPublisher(pub))
	ctx := WithActor(context.Background(), "admin@example.com")

	matched, err := svc.ManualMatch(ctx, tx.ID, u.ID, models.PaymentTypeDonation)
	require.NoError(t, err)
	assert.True(t, matched.Matched)

	cleared, err := svc.Unmatch(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, cleared.Matched)

	after := store.payment(tx.ID)
	assert.Equal(t, before, after)
	assert.Nil(t, after.RelatedID)
	assert.Nil(t, after.PaymentType)

	require.Len(t, store.audit, 2)
	assert.Equal(t, models.AuditActionManualMatch, store.audit[0].Action)
	assert.Equal(t, models.AuditActionUnmatch, store.audit[1].Action)
	assert.Equal(t, "admin@example.com", store.audit[1].PerformedBy)
	require.NotNil(t, store.audit[1].PreviousUser)
	assert.Equal(t, u.ID, *store.audit[1].PreviousUser)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.TypeUnmatched, pub.events[1].Type)
	require.NotNil(t, pub.events[1].UserID)
	assert.Equal(t, u.ID, *pub.events[1].UserID)
}

func TestSideEffectFailuresDoNotFailMatch(t *testing.T) {
	store := newFakeStore()
	store.failAudit = errors.New("audit table missing")
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store, WithPublisher(&recordingPublisher{err: errors.New("nats down")}))

	_, err := svc.ManualMatch(context.Background(), tx.ID, u.ID, models.PaymentTypeShop)
	require.NoError(t, err)
	assert.True(t, store.payment(tx.ID).Matched)
}

func TestSearchUsers_Guard(t *testing.T) {
	store := newFakeStore()
	store.addUser(models.User{Email: "anna@example.com", DisplayName: "Anna"})
	store.addUser(models.User{Email: "bob@example.com", DisplayName: "Bob"})
	svc := newService(store)

	got, err := svc.SearchUsers(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, 0, store.searchCalls)

	_, err = svc.SearchUsers(context.Background(), "  b ")
	require.NoError(t, err)
	assert.Equal(t, 0, store.searchCalls)

	got, err = svc.SearchUsers(context.Background(), "AN")
	require.NoError(t, err)
	assert.Equal(t, 1, store.searchCalls)
	require.Len(t, got, 1)
	assert.Equal(t, "anna@example.com", got[0].Email)
}

func TestSearchUsers_MatchesSymbol(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1001"))
	svc := newService(store)

	got, err := svc.SearchUsers(context.Background(), "s10")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, u.ID, got[0].ID)
}

func TestSuggestions(t *testing.T) {
	store := newFakeStore()
	near := store.addUser(symbolUser("VS1002"))
	store.addUser(symbolUser("XX9999"))
	tx := store.addPayment(unmatched("VS1001"))
	svc := newService(store, WithSuggestionDistance(1))

	got, err := svc.Suggestions(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].User.ID)
	assert.False(t, store.payment(tx.ID).Matched)
}

func TestGetPayment_IncludesMatchedUser(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(symbolUser("VS1"))
	tx := store.addPayment(unmatched("VS1"))
	svc := newService(store)

	_, err := svc.ManualMatch(context.Background(), tx.ID, u.ID, models.PaymentTypeShop)
	require.NoError(t, err)

	detail, err := svc.GetPayment(context.Background(), tx.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.User)
	assert.Equal(t, u.Email, detail.User.Email)

	trail, err := svc.AuditTrail(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}
