package app

import (
	"log/slog"
	"time"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/guard"
	"github.com/bookieverse/platform/internal/handler"
	"github.com/bookieverse/platform/internal/infra"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/projection"
	"github.com/bookieverse/platform/internal/provider"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/bookieverse/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps holds everything New needs to assemble the application.
type Deps struct {
	Pool   *pgxpool.Pool
	Cfg    *infra.Config
	JWTMgr *auth.JWTManager
	Logger *slog.Logger
}

// App is the wired application: the HTTP router plus the services that
// background loops and other binaries drive directly.
type App struct {
	Router  chi.Router
	Accrual *service.AccrualService
	Markets *service.MarketService
}

// New assembles repositories, guards, services, handlers, and routes.
func New(deps Deps) *App {
	pool := deps.Pool
	cfg := deps.Cfg
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Repositories
	accountRepo := repository.NewAccountRepository()
	entryRepo := repository.NewLedgerEntryRepository()
	marketRepo := repository.NewMarketRepository()
	offerRepo := repository.NewOfferRepository()
	wagerRepo := repository.NewWagerRepository()
	outboxRepo := repository.NewOutboxRepository()
	authUserRepo := repository.NewAuthUserRepository()
	purchaseRepo := repository.NewPurchaseRepository()

	// Ledger engine
	ledgerEngine := ledger.NewEngine(accountRepo, entryRepo, outboxRepo)

	// Guards
	writeLimiter := guard.NewRateLimiter(30, time.Minute)
	feedReplay := guard.NewReplayGuard()

	// Projections
	statsCache := projection.NewMemoryStore()

	// External providers
	stripeProvider := provider.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	// Services
	accrualSvc := service.NewAccrualService(pool, ledgerEngine, accountRepo, logger)
	authSvc := service.NewAuthService(pool, authUserRepo, accountRepo, outboxRepo, accrualSvc, jwtMgr)
	accountSvc := service.NewAccountService(pool, entryRepo, accrualSvc)
	settleSvc := service.NewSettleService(pool, ledgerEngine, wagerRepo, offerRepo, outboxRepo, logger)
	marketSvc := service.NewMarketService(pool, marketRepo, outboxRepo, settleSvc, feedReplay, logger)
	offerSvc := service.NewOfferService(pool, ledgerEngine, offerRepo, marketRepo, wagerRepo, entryRepo, outboxRepo, accrualSvc, writeLimiter, logger)
	parlaySvc := service.NewParlayService(pool, ledgerEngine, offerRepo, marketRepo, wagerRepo, entryRepo, outboxRepo, accrualSvc, writeLimiter, logger)
	wagerSvc := service.NewWagerService(pool, wagerRepo)
	socialSvc := service.NewSocialService(pool, accountRepo, wagerRepo, statsCache, logger)
	paymentSvc := service.NewPaymentService(pool, ledgerEngine, purchaseRepo, outboxRepo, stripeProvider,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	marketHandler := handler.NewMarketHandler(marketSvc)
	offerHandler := handler.NewOfferHandler(offerSvc)
	wagerHandler := handler.NewWagerHandler(wagerSvc, settleSvc)
	parlayHandler := handler.NewParlayHandler(parlaySvc)
	socialHandler := handler.NewSocialHandler(socialSvc)
	shopHandler := handler.NewShopHandler(paymentSvc)
	webhookHandler := handler.NewWebhookHandler(stripeProvider, paymentSvc, logger)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Webhooks (no auth, raw body required for signature verification)
	r.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)

		// Auth routes (no auth)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Public reads; a token widens the offer feed to group lines
		r.Group(func(r chi.Router) {
			r.Use(auth.MaybeAuthenticate(jwtMgr))

			r.Get("/markets", marketHandler.List)
			r.Get("/markets/{marketID}", marketHandler.Get)
			r.Get("/offers", offerHandler.List)
			r.Get("/offers/{offerID}", offerHandler.Get)
			r.Get("/users", socialHandler.Search)
			r.Get("/users/{accountID}/stats", socialHandler.Stats)
			r.Get("/leaderboard", socialHandler.Leaderboard)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(jwtMgr))

			r.Get("/users/me", accountHandler.Me)
			r.Get("/users/me/entries", accountHandler.Entries)
			r.Get("/users/me/following", socialHandler.Following)

			r.Post("/markets", marketHandler.Create)

			r.Route("/offers", func(r chi.Router) {
				r.Post("/", offerHandler.Create)
				r.Get("/mine", offerHandler.ListMine)
				r.Patch("/{offerID}", offerHandler.Edit)
				r.Delete("/{offerID}", offerHandler.Cancel)
				r.Post("/{offerID}/take", offerHandler.Take)
			})

			r.Route("/wagers", func(r chi.Router) {
				r.Get("/mine", wagerHandler.ListMine)
				r.Get("/{wagerID}", wagerHandler.Get)
				r.Post("/{wagerID}/settle", wagerHandler.Settle)
			})

			r.Route("/parlays", func(r chi.Router) {
				r.Post("/", parlayHandler.Create)
				r.Get("/mine", parlayHandler.ListMine)
				r.Get("/{parlayID}", parlayHandler.Get)
			})

			r.Route("/users/{accountID}", func(r chi.Router) {
				r.Post("/ratings", socialHandler.RateBookie)
				r.Post("/follow", socialHandler.Follow)
				r.Delete("/follow", socialHandler.Unfollow)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", socialHandler.CreateGroup)
				r.Get("/", socialHandler.ListGroups)
				r.Post("/{groupID}/invite", socialHandler.Invite)
			})

			r.Route("/shop", func(r chi.Router) {
				r.Get("/packages", shopHandler.Packages)
				r.Post("/checkout", shopHandler.Checkout)
				r.Get("/purchases", shopHandler.Purchases)
			})
		})
	})

	return &App{
		Router:  r,
		Accrual: accrualSvc,
		Markets: marketSvc,
	}
}
