package testutil

import (
	"context"
	"time"

	"github.com/hyperbill/cashier/internal/cache"
	"github.com/hyperbill/cashier/internal/config"
	"github.com/hyperbill/cashier/internal/domain/customer"
	"github.com/hyperbill/cashier/internal/domain/subscription"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	"github.com/hyperbill/cashier/internal/logger"
	"github.com/hyperbill/cashier/internal/repository/memory"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/hyperbill/cashier/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	CustomerRepo     customer.Repository
	SubscriptionRepo subscription.Repository
	TransactionRepo  transaction.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites: fresh in-memory stores per test, a quiet logger, and a default
// configuration with a known plan amount table.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	cache   cache.Cache
	gateway *MockGateway
	logger  *logger.Logger
	config  *config.Configuration
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	cfg.Billing.PlanAmounts = map[string]int64{
		"plan_basic": 4900,
		"plan_pro":   9900,
	}

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetRequestID(context.Background(), types.GenerateUUID())
	s.stores = Stores{
		CustomerRepo:     memory.NewCustomerStore(),
		SubscriptionRepo: memory.NewSubscriptionStore(),
		TransactionRepo:  memory.NewTransactionStore(),
	}
	s.cache = cache.NewInMemoryCache()
	s.gateway = NewMockGateway()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.CustomerRepo.(*memory.CustomerStore).Clear()
	s.stores.SubscriptionRepo.(*memory.SubscriptionStore).Clear()
	s.stores.TransactionRepo.(*memory.TransactionStore).Clear()
	s.cache.Flush()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetGateway() *MockGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
