package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/integrations/checkout"
	"github.com/assetverse/assetverse/internal/shared"
)

// reconcileWorkers bounds concurrent provider lookups during a sweep.
const reconcileWorkers = 4

// Service drives the package upgrade flow: start a hosted checkout, then
// confirm it and move the manager onto the purchased package.
type Service struct {
	repo     Repository
	accounts accounts.Repository
	provider checkout.Provider
}

// NewService constructs a new Service.
func NewService(repo Repository, accountRepo accounts.Repository, provider checkout.Provider) *Service {
	return &Service{repo: repo, accounts: accountRepo, provider: provider}
}

// Packages lists the purchasable tiers.
func (s *Service) Packages(ctx context.Context) ([]Package, error) {
	pkgs, err := s.repo.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	if pkgs == nil {
		pkgs = []Package{}
	}
	return pkgs, nil
}

// StartCheckout opens a hosted checkout session for the package and records
// the pending payment. The returned URL is where the client redirects.
func (s *Service) StartCheckout(ctx context.Context, hrID, packageID int64, successURL, cancelURL string) (*CheckoutResponse, error) {
	pkg, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	sess, err := s.provider.CreateSession(ctx, checkout.SessionRequest{
		Amount:      pkg.Price,
		Currency:    pkg.Currency,
		Description: pkg.Name + " package",
		CustomerRef: strconv.FormatInt(hrID, 10),
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("start checkout: %w", err)
	}

	_, err = s.repo.CreatePayment(ctx, Payment{
		HRID:      hrID,
		PackageID: pkg.ID,
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		SessionID: sess.ID,
		Status:    PaymentPending,
	})
	if err != nil {
		return nil, fmt.Errorf("record pending payment: %w", err)
	}

	return &CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// Confirm verifies a returned checkout session with the provider, settles
// the payment and upgrades the manager's package. Replays of an already
// settled session succeed without side effects.
func (s *Service) Confirm(ctx context.Context, hrID int64, sessionID string) (*Payment, error) {
	payment, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if payment.HRID != hrID {
		return nil, shared.ErrNotFound
	}
	if payment.Status == PaymentPaid {
		return payment, nil
	}

	sess, err := s.provider.VerifySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}
	if !sess.Paid() {
		return nil, ErrNotSettled
	}

	if err := s.repo.MarkPaid(ctx, sessionID); err != nil && !errors.Is(err, ErrAlreadyRecorded) {
		return nil, fmt.Errorf("settle payment: %w", err)
	}
	if err := s.accounts.UpdatePackage(ctx, hrID, payment.PackageID); err != nil {
		return nil, fmt.Errorf("upgrade package: %w", err)
	}

	return s.repo.FindBySession(ctx, sessionID)
}

// Reconcile re-checks pending checkouts that the client never confirmed,
// usually because the browser was closed on the provider's success page.
// Settled sessions are recorded and the package upgrade applied; sessions
// the provider cannot vouch for stay pending. Returns how many settled.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	pending, err := s.repo.ListPending(ctx, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		settled int
		errs    []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileWorkers)
	for _, p := range pending {
		g.Go(func() error {
			// Failures are collected, not returned, so one bad session
			// never stops the rest of the sweep.
			switch err := s.reconcileOne(ctx, p); {
			case errors.Is(err, errNotSettledYet):
				return nil
			case err != nil:
				mu.Lock()
				errs = append(errs, fmt.Errorf("session %s: %w", p.SessionID, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			settled++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return settled, errors.Join(errs...)
}

// errNotSettledYet marks a session the provider has not settled; the sweep
// leaves it pending without counting it as an error.
var errNotSettledYet = errors.New("payments: session not settled yet")

func (s *Service) reconcileOne(ctx context.Context, p Payment) error {
	sess, err := s.provider.VerifySession(ctx, p.SessionID)
	if err != nil {
		return err
	}
	if !sess.Paid() {
		return errNotSettledYet
	}
	if err := s.repo.MarkPaid(ctx, p.SessionID); err != nil && !errors.Is(err, ErrAlreadyRecorded) {
		return err
	}
	return s.accounts.UpdatePackage(ctx, p.HRID, p.PackageID)
}

// History lists the manager's payments, newest first.
func (s *Service) History(ctx context.Context, hrID int64, q shared.ListQuery) (*HistoryResponse, error) {
	items, total, err := s.repo.ListPayments(ctx, hrID, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Payment{}
	}
	return &HistoryResponse{
		Payments:   items,
		Pagination: shared.NewPagination(q.Page, q.Limit(), total),
	}, nil
}
