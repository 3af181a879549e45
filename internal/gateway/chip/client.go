package chip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperbill/cashier/internal/config"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/httpclient"
	"github.com/hyperbill/cashier/internal/logger"
	sentryService "github.com/hyperbill/cashier/internal/sentry"
)

// Gateway is the outbound surface to the CHIP payment gateway. Every call is
// bounded by the configured client timeout and retried at the transport
// layer; callers treat any returned error as "gateway unreachable or
// rejected" and decide per call site whether that blocks the local write.
type Gateway interface {
	CreateClient(ctx context.Context, req *ClientRequest) (*Client, error)
	UpdateClient(ctx context.Context, clientID string, req *ClientRequest) (*Client, error)
	CreatePurchase(ctx context.Context, req *PurchaseRequest) (*Purchase, error)
	GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error)
	RefundPurchase(ctx context.Context, purchaseID string, req *RefundRequest) (*Purchase, error)
	ChargePurchase(ctx context.Context, purchaseID string, req *ChargeRequest) (*Purchase, error)
	CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, req *UpdateSubscriptionRequest) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, req *CancelSubscriptionRequest) (*Subscription, error)
	ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

type gateway struct {
	client httpclient.Client
	cfg    config.ChipConfig
	logger *logger.Logger
	sentry *sentryService.Service
}

// NewGateway creates a CHIP gateway client on top of the retryable HTTP
// client.
func NewGateway(cfg config.ChipConfig, log *logger.Logger, sentry *sentryService.Service) Gateway {
	return &gateway{
		client: httpclient.NewRetryableClient(httpclient.ClientConfig{
			Timeout:   cfg.Timeout,
			RetryMax:  cfg.RetryMax,
			RetryWait: cfg.RetryWait,
		}),
		cfg:    cfg,
		logger: log,
		sentry: sentry,
	}
}

func (g *gateway) CreateClient(ctx context.Context, req *ClientRequest) (*Client, error) {
	var out Client
	if err := g.send(ctx, http.MethodPost, "/clients/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) UpdateClient(ctx context.Context, clientID string, req *ClientRequest) (*Client, error) {
	var out Client
	path := fmt.Sprintf("/clients/%s/", clientID)
	if err := g.send(ctx, http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) CreatePurchase(ctx context.Context, req *PurchaseRequest) (*Purchase, error) {
	if req.BrandID == "" {
		req.BrandID = g.cfg.BrandID
	}
	var out Purchase
	if err := g.send(ctx, http.MethodPost, "/purchases/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error) {
	var out Purchase
	path := fmt.Sprintf("/purchases/%s/", purchaseID)
	if err := g.send(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) RefundPurchase(ctx context.Context, purchaseID string, req *RefundRequest) (*Purchase, error) {
	var out Purchase
	path := fmt.Sprintf("/purchases/%s/refund/", purchaseID)
	if err := g.send(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) ChargePurchase(ctx context.Context, purchaseID string, req *ChargeRequest) (*Purchase, error) {
	var out Purchase
	path := fmt.Sprintf("/purchases/%s/charge/", purchaseID)
	if err := g.send(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*Subscription, error) {
	if req.BrandID == "" {
		req.BrandID = g.cfg.BrandID
	}
	var out Subscription
	if err := g.send(ctx, http.MethodPost, "/subscriptions/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) UpdateSubscription(ctx context.Context, subscriptionID string, req *UpdateSubscriptionRequest) (*Subscription, error) {
	var out Subscription
	path := fmt.Sprintf("/subscriptions/%s/", subscriptionID)
	if err := g.send(ctx, http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) CancelSubscription(ctx context.Context, subscriptionID string, req *CancelSubscriptionRequest) (*Subscription, error) {
	var out Subscription
	path := fmt.Sprintf("/subscriptions/%s/cancel/", subscriptionID)
	if err := g.send(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var out Subscription
	path := fmt.Sprintf("/subscriptions/%s/resume/", subscriptionID)
	if err := g.send(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// send performs one authenticated call against the gateway and decodes the
// JSON response into out when out is non-nil.
func (g *gateway) send(ctx context.Context, method, path string, payload any, out any) error {
	span, ctx := g.sentry.StartGatewaySpan(ctx, fmt.Sprintf("%s %s", method, path))
	if span != nil {
		defer span.Finish()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode gateway request").
				Mark(ierr.ErrGateway)
		}
	}

	resp, err := g.client.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    g.cfg.APIURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + g.cfg.APIKey,
		},
		Body: body,
	})
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			g.logger.Errorw("gateway request rejected",
				"method", method,
				"path", path,
				"status", httpErr.StatusCode,
			)
			return ierr.WithError(err).
				WithHintf("Gateway returned status %d", httpErr.StatusCode).
				WithReportableDetails(map[string]any{
					"status": httpErr.StatusCode,
				}).
				Mark(ierr.ErrGateway)
		}
		g.logger.Errorw("gateway request failed",
			"method", method,
			"path", path,
			"error", err,
		)
		return ierr.WithError(err).
			WithHint("Gateway is unreachable").
			Mark(ierr.ErrGateway)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to decode gateway response").
				Mark(ierr.ErrGateway)
		}
	}
	return nil
}
