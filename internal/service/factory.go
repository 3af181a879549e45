package service

import (
	"github.com/hyperbill/cashier/internal/cache"
	"github.com/hyperbill/cashier/internal/config"
	"github.com/hyperbill/cashier/internal/domain/customer"
	"github.com/hyperbill/cashier/internal/domain/subscription"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	"github.com/hyperbill/cashier/internal/gateway/chip"
	"github.com/hyperbill/cashier/internal/logger"
)

// ServiceParams bundles the dependencies every service draws from. A single
// params struct keeps constructor signatures stable as services grow.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	CustomerRepo     customer.Repository
	SubscriptionRepo subscription.Repository
	TransactionRepo  transaction.Repository

	Gateway chip.Gateway
	Cache   cache.Cache
}
