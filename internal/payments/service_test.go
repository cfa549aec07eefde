package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/integrations/checkout"
	"github.com/assetverse/assetverse/internal/shared"
)

type memPayments struct {
	mu        sync.Mutex
	packages  map[int64]Package
	bySession map[string]Payment
	nextID    int64
}

func newMemPayments() *memPayments {
	return &memPayments{
		packages: map[int64]Package{
			1: {ID: 1, Name: "Starter", MemberLimit: 5, Price: decimal.NewFromInt(5), Currency: "usd"},
			2: {ID: 2, Name: "Growth", MemberLimit: 10, Price: decimal.NewFromInt(8), Currency: "usd"},
		},
		bySession: map[string]Payment{},
		nextID:    1,
	}
}

func (m *memPayments) ListPackages(context.Context) ([]Package, error) {
	var out []Package
	for _, p := range m.packages {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPayments) GetPackage(_ context.Context, id int64) (*Package, error) {
	p, ok := m.packages[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (m *memPayments) CreatePayment(_ context.Context, p Payment) (int64, error) {
	p.ID = m.nextID
	m.nextID++
	p.PackageName = m.packages[p.PackageID].Name
	m.bySession[p.SessionID] = p
	return p.ID, nil
}

func (m *memPayments) FindBySession(_ context.Context, sessionID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.bySession[sessionID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (m *memPayments) MarkPaid(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.bySession[sessionID]
	if !ok || p.Status != PaymentPending {
		return ErrAlreadyRecorded
	}
	p.Status = PaymentPaid
	m.bySession[sessionID] = p
	return nil
}

func (m *memPayments) ListPending(_ context.Context, olderThan time.Time) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, p := range m.bySession {
		if p.Status == PaymentPending && p.CreatedAt.Before(olderThan) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) ListPayments(_ context.Context, hrID int64, _ shared.ListQuery) ([]Payment, int, error) {
	var out []Payment
	for _, p := range m.bySession {
		if p.HRID == hrID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type memAccounts struct {
	mu        sync.Mutex
	packageOf map[int64]int64
	upgrades  int
}

func (m *memAccounts) Create(context.Context, accounts.Account) (int64, error) { return 0, nil }
func (m *memAccounts) FindByEmail(context.Context, string) (*accounts.Account, error) {
	return nil, shared.ErrNotFound
}
func (m *memAccounts) FindByID(context.Context, int64) (*accounts.Account, error) {
	return nil, shared.ErrNotFound
}
func (m *memAccounts) RoleByEmail(context.Context, string) (string, error) { return "", nil }
func (m *memAccounts) UpdateProfile(context.Context, int64, string, string) error {
	return nil
}
func (m *memAccounts) UpdatePassword(context.Context, int64, string) error { return nil }
func (m *memAccounts) UpdatePackage(_ context.Context, id, packageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packageOf[id] = packageID
	m.upgrades++
	return nil
}
func (m *memAccounts) Delete(context.Context, int64) error { return nil }

type stubProvider struct {
	mu       sync.Mutex
	sessions map[string]*checkout.Session
	created  int
}

func (p *stubProvider) CreateSession(_ context.Context, req checkout.SessionRequest) (*checkout.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	id := "cs_test_1"
	sess := &checkout.Session{
		ID: id, URL: "https://pay.example.com/" + id,
		Amount: req.Amount, Currency: req.Currency, Status: "open",
	}
	p.sessions[id] = sess
	return sess, nil
}

func (p *stubProvider) VerifySession(_ context.Context, sessionID string) (*checkout.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[sessionID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return sess, nil
}

func newCheckoutFixture() (*Service, *memPayments, *memAccounts, *stubProvider) {
	repo := newMemPayments()
	accts := &memAccounts{packageOf: map[int64]int64{}}
	provider := &stubProvider{sessions: map[string]*checkout.Session{}}
	return NewService(repo, accts, provider), repo, accts, provider
}

func TestStartCheckoutRecordsPendingPayment(t *testing.T) {
	svc, repo, _, _ := newCheckoutFixture()

	resp, err := svc.StartCheckout(context.Background(), 10, 2,
		"https://app.example.com/ok", "https://app.example.com/cancel")
	require.NoError(t, err)
	require.NotEmpty(t, resp.URL)

	payment, err := repo.FindBySession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Equal(t, PaymentPending, payment.Status)
	require.True(t, payment.Amount.Equal(decimal.NewFromInt(8)))
}

func TestStartCheckoutUnknownPackage(t *testing.T) {
	svc, _, _, provider := newCheckoutFixture()

	_, err := svc.StartCheckout(context.Background(), 10, 99,
		"https://app.example.com/ok", "https://app.example.com/cancel")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Zero(t, provider.created, "no session may be opened for an unknown package")
}

func TestConfirmUpgradesPackage(t *testing.T) {
	svc, _, accts, provider := newCheckoutFixture()
	ctx := context.Background()

	resp, err := svc.StartCheckout(ctx, 10, 2,
		"https://app.example.com/ok", "https://app.example.com/cancel")
	require.NoError(t, err)

	// The provider has not settled yet: confirmation must not upgrade.
	_, err = svc.Confirm(ctx, 10, resp.SessionID)
	require.ErrorIs(t, err, ErrNotSettled)
	require.Zero(t, accts.upgrades)

	provider.sessions[resp.SessionID].Status = "paid"
	payment, err := svc.Confirm(ctx, 10, resp.SessionID)
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, payment.Status)
	require.Equal(t, int64(2), accts.packageOf[10])

	// Replaying the confirmation is a no-op success.
	_, err = svc.Confirm(ctx, 10, resp.SessionID)
	require.NoError(t, err)
	require.Equal(t, 1, accts.upgrades)
}

func TestReconcileSettlesAbandonedCheckouts(t *testing.T) {
	svc, repo, accts, provider := newCheckoutFixture()
	ctx := context.Background()

	// One checkout the provider settled but nobody confirmed, one still open.
	repo.bySession["cs_old_paid"] = Payment{
		ID: 1, HRID: 10, PackageID: 2, Amount: decimal.NewFromInt(8), Currency: "usd",
		SessionID: "cs_old_paid", Status: PaymentPending,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	repo.bySession["cs_old_open"] = Payment{
		ID: 2, HRID: 11, PackageID: 1, Amount: decimal.NewFromInt(5), Currency: "usd",
		SessionID: "cs_old_open", Status: PaymentPending,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	provider.sessions["cs_old_paid"] = &checkout.Session{ID: "cs_old_paid", Status: "paid"}
	provider.sessions["cs_old_open"] = &checkout.Session{ID: "cs_old_open", Status: "open"}

	settled, err := svc.Reconcile(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, settled)
	require.Equal(t, int64(2), accts.packageOf[10])
	require.Equal(t, PaymentPaid, repo.bySession["cs_old_paid"].Status)
	require.Equal(t, PaymentPending, repo.bySession["cs_old_open"].Status)
}

func TestConfirmRejectsForeignSession(t *testing.T) {
	svc, _, _, provider := newCheckoutFixture()
	ctx := context.Background()

	resp, err := svc.StartCheckout(ctx, 10, 1,
		"https://app.example.com/ok", "https://app.example.com/cancel")
	require.NoError(t, err)
	provider.sessions[resp.SessionID].Status = "paid"

	_, err = svc.Confirm(ctx, 11, resp.SessionID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
