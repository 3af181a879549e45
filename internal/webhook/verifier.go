package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperbill/cashier/internal/config"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/logger"
)

// Verifier authenticates inbound gateway deliveries. The gateway signs
// "{timestamp}.{rawBody}" with HMAC-SHA256 over the shared secret and sends
// the hex digest in X-Signature plus the unix timestamp in X-Timestamp.
type Verifier struct {
	secret    string
	tolerance time.Duration
	logger    *logger.Logger
}

// NewVerifier creates a verifier from webhook configuration.
func NewVerifier(cfg config.WebhookConfig, log *logger.Logger) *Verifier {
	return &Verifier{
		secret:    cfg.Secret,
		tolerance: cfg.Tolerance,
		logger:    log,
	}
}

// Verify checks the signature and freshness of a delivery. With no secret
// configured verification is skipped entirely; that keeps local development
// friction-free but is never a safe production setting, so it logs a warning
// on every delivery. Error messages never include the payload.
func (v *Verifier) Verify(body []byte, signature, timestamp string) error {
	if v.secret == "" {
		v.logger.Warnw("webhook signature verification skipped, no secret configured")
		return nil
	}

	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("X-Signature header is required").
			Mark(ierr.ErrSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ierr.NewError("invalid webhook timestamp").
			WithHint("X-Timestamp header must be unix seconds").
			Mark(ierr.ErrSignature)
	}

	drift := time.Since(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return ierr.NewError("webhook timestamp outside tolerance").
			WithHintf("Deliveries older than %s are rejected", v.tolerance).
			Mark(ierr.ErrSignature)
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ierr.NewError("malformed webhook signature").
			WithHint("X-Signature header must be a hex digest").
			Mark(ierr.ErrSignature)
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, body)

	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ierr.NewError("webhook signature mismatch").
			WithHint("Signature does not match the payload").
			Mark(ierr.ErrSignature)
	}

	return nil
}

// Sign computes the transport signature for a timestamp and body. Used by
// tests and local tooling to fabricate valid deliveries.
func Sign(secret string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}
