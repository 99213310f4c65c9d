package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/provider"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentService sells credit packages through Stripe checkout. The webhook
// path is the trust boundary: a verified checkout.session.completed event is
// the only thing that mints purchased credits, and the session ID keys the
// idempotency so webhook retries credit once.
type PaymentService struct {
	pool      *pgxpool.Pool
	engine    *ledger.Engine
	purchases repository.PurchaseRepository
	outbox    repository.OutboxRepository
	stripe    *provider.StripeProvider
	logger    *slog.Logger

	successURL string
	cancelURL  string
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	pool *pgxpool.Pool,
	engine *ledger.Engine,
	purchases repository.PurchaseRepository,
	outbox repository.OutboxRepository,
	stripe *provider.StripeProvider,
	successURL, cancelURL string,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		pool:       pool,
		engine:     engine,
		purchases:  purchases,
		outbox:     outbox,
		stripe:     stripe,
		logger:     logger,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// Packages returns the fixed shop catalog.
func (s *PaymentService) Packages() []domain.CreditPackage {
	keys := []string{"small", "medium", "large", "xl", "mega"}
	out := make([]domain.CreditPackage, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.CreditPackages[k])
	}
	return out
}

// CreateCheckout opens a Stripe checkout session for a credit package and
// returns the hosted payment URL.
func (s *PaymentService) CreateCheckout(ctx context.Context, accountID uuid.UUID, packageKey string) (*provider.CheckoutSession, error) {
	pkg, ok := domain.CreditPackages[packageKey]
	if !ok {
		return nil, domain.ErrValidation("unknown credit package " + packageKey)
	}

	session, err := s.stripe.CreateCheckoutSession(pkg, accountID, s.successURL, s.cancelURL)
	if err != nil {
		return nil, domain.ErrInternal("create checkout session", err)
	}

	s.logger.Info("checkout session created",
		"account_id", accountID, "package", packageKey, "session_id", session.ID)
	return session, nil
}

// HandleCheckoutCompleted credits an account for a verified completed
// checkout session. Safe to call repeatedly with the same session: the
// purchases table and the ledger's idempotency key both dedupe on session ID.
func (s *PaymentService) HandleCheckoutCompleted(ctx context.Context, session *provider.CheckoutSessionData) error {
	accountID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return domain.ErrValidation("checkout session missing account reference")
	}

	packageKey := session.Metadata["package_key"]
	credits, err := strconv.ParseInt(session.Metadata["credits"], 10, 64)
	if err != nil || credits <= 0 {
		pkg, ok := domain.CreditPackages[packageKey]
		if !ok {
			return domain.ErrValidation("checkout session missing credit amount")
		}
		credits = pkg.Credits
	}

	existing, err := s.purchases.FindBySessionID(ctx, s.pool, session.ID)
	if err != nil {
		return domain.ErrInternal("find purchase", err)
	}
	if existing != nil {
		s.logger.Info("duplicate checkout webhook ignored", "session_id", session.ID)
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	meta, _ := json.Marshal(map[string]interface{}{
		"package":           packageKey,
		"amount_paid_cents": session.AmountTotal,
	})
	if _, err := s.engine.ExecutePurchaseCredit(ctx, tx, domain.PurchaseCreditParams{
		AccountID: accountID,
		Credits:   credits,
		SessionID: session.ID,
		Metadata:  meta,
	}); err != nil {
		return err
	}

	purchase := &domain.Purchase{
		ID:              uuid.New(),
		AccountID:       accountID,
		PackageKey:      packageKey,
		Credits:         credits,
		AmountPaidCents: session.AmountTotal,
		SessionID:       session.ID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.purchases.Create(ctx, tx, purchase); err != nil {
		return domain.ErrInternal("create purchase", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewCreditPurchasedEvent(purchase)); err != nil {
		return domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("credits purchased",
		"account_id", accountID, "credits", credits, "session_id", session.ID)
	return nil
}

// ListPurchases returns an account's purchase history, newest first.
func (s *PaymentService) ListPurchases(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Purchase, error) {
	purchases, err := s.purchases.ListByAccount(ctx, s.pool, accountID, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list purchases", err)
	}
	return purchases, nil
}
