package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/hyperbill/cashier/internal/api/v1"
	"github.com/hyperbill/cashier/internal/cache"
	"github.com/hyperbill/cashier/internal/config"
	"github.com/hyperbill/cashier/internal/domain/customer"
	"github.com/hyperbill/cashier/internal/domain/subscription"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	"github.com/hyperbill/cashier/internal/gateway/chip"
	"github.com/hyperbill/cashier/internal/logger"
	"github.com/hyperbill/cashier/internal/repository/memory"
	"github.com/hyperbill/cashier/internal/router"
	sentryService "github.com/hyperbill/cashier/internal/sentry"
	"github.com/hyperbill/cashier/internal/service"
	"github.com/hyperbill/cashier/internal/webhook"
	"go.uber.org/fx"
)

// @title Cashier API
// @version 1.0
// @description Billing-state reconciliation service between an application and the CHIP payment gateway
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		sentryService.Module(),
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			newCache,

			// Storage
			newCustomerRepo,
			newSubscriptionRepo,
			newTransactionRepo,

			// Gateway
			newGateway,

			// Webhook pipeline
			newVerifier,
			newProcessor,

			// Services
			newServiceParams,
			service.NewCustomerService,
			service.NewSubscriptionService,
			service.NewBillingService,
			service.NewInvoiceService,

			// Handlers
			v1.NewHealthHandler,
			v1.NewCustomerHandler,
			v1.NewSubscriptionHandler,
			v1.NewTransactionHandler,
			v1.NewInvoiceHandler,
			v1.NewWebhookHandler,
			newHandlers,
			router.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func newCache() cache.Cache {
	return cache.NewInMemoryCache()
}

func newCustomerRepo() customer.Repository {
	return memory.NewCustomerStore()
}

func newSubscriptionRepo() subscription.Repository {
	return memory.NewSubscriptionStore()
}

func newTransactionRepo() transaction.Repository {
	return memory.NewTransactionStore()
}

func newGateway(cfg *config.Configuration, log *logger.Logger, sentry *sentryService.Service) chip.Gateway {
	return chip.NewGateway(cfg.Chip, log, sentry)
}

func newVerifier(cfg *config.Configuration, log *logger.Logger) *webhook.Verifier {
	return webhook.NewVerifier(cfg.Webhook, log)
}

func newProcessor(
	txnRepo transaction.Repository,
	subRepo subscription.Repository,
	c cache.Cache,
	log *logger.Logger,
	sentry *sentryService.Service,
) *webhook.Processor {
	return webhook.NewProcessor(txnRepo, subRepo, c, log, sentry)
}

func newServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	customerRepo customer.Repository,
	subscriptionRepo subscription.Repository,
	transactionRepo transaction.Repository,
	gateway chip.Gateway,
	c cache.Cache,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		CustomerRepo:     customerRepo,
		SubscriptionRepo: subscriptionRepo,
		TransactionRepo:  transactionRepo,
		Gateway:          gateway,
		Cache:            c,
	}
}

func newHandlers(
	health *v1.HealthHandler,
	customer *v1.CustomerHandler,
	subscription *v1.SubscriptionHandler,
	transaction *v1.TransactionHandler,
	invoice *v1.InvoiceHandler,
	webhook *v1.WebhookHandler,
) router.Handlers {
	return router.Handlers{
		Health:       health,
		Customer:     customer,
		Subscription: subscription,
		Transaction:  transaction,
		Invoice:      invoice,
		Webhook:      webhook,
	}
}

func startServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
