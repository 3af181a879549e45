package router

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/hyperbill/cashier/internal/api/v1"
	"github.com/hyperbill/cashier/internal/config"
	"github.com/hyperbill/cashier/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Customer     *v1.CustomerHandler
	Subscription *v1.SubscriptionHandler
	Transaction  *v1.TransactionHandler
	Invoice      *v1.InvoiceHandler
	Webhook      *v1.WebhookHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// The webhook endpoint sits outside /v1: its path is registered at the
	// gateway and verified by signature, not versioned with the public API.
	router.POST("/webhooks/chip", handlers.Webhook.HandleWebhook)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	customers := router.Group("/customers")
	{
		customers.POST("", handlers.Customer.CreateCustomer)
		customers.GET("", handlers.Customer.ListCustomers)
		customers.GET("/:id", handlers.Customer.GetCustomer)
		customers.PUT("/:id", handlers.Customer.UpdateCustomer)
		customers.POST("/:id/sync", handlers.Customer.SyncCustomer)
		customers.GET("/:id/transactions", handlers.Transaction.ListCustomerTransactions)
		customers.GET("/:id/invoices", handlers.Invoice.ListInvoices)
		customers.GET("/:id/invoices/latest", handlers.Invoice.LatestInvoice)
		customers.GET("/:id/invoices/upcoming", handlers.Invoice.UpcomingInvoice)
	}

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
		subscriptions.POST("/:id/cancel", handlers.Subscription.CancelSubscription)
		subscriptions.POST("/:id/resume", handlers.Subscription.ResumeSubscription)
		subscriptions.PUT("/:id/quantity", handlers.Subscription.UpdateQuantity)
	}

	router.POST("/charges", handlers.Transaction.CreateCharge)
	router.POST("/charges/token", handlers.Transaction.ChargeWithToken)

	transactions := router.Group("/transactions")
	{
		transactions.GET("", handlers.Transaction.ListTransactions)
		transactions.GET("/:id", handlers.Transaction.GetTransaction)
		transactions.POST("/:id/refund", handlers.Transaction.Refund)
		transactions.POST("/:id/sync", handlers.Transaction.SyncTransaction)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/latest", handlers.Invoice.LatestInvoice)
		invoices.GET("/upcoming", handlers.Invoice.UpcomingInvoice)
		invoices.GET("/total", handlers.Invoice.InvoiceTotal)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
	}
}
