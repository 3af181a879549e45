package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/hyperbill/cashier/internal/config"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/logger"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func newTestVerifier(t *testing.T, secret string) *Verifier {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	return NewVerifier(config.WebhookConfig{
		Secret:    secret,
		Tolerance: 300 * time.Second,
	}, log)
}

func TestVerifyValidSignature(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	body := []byte(`{"event_type":"purchase.completed","data":{"id":"gw_1"}}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := Sign(testSecret, ts, body)

	assert.NoError(t, v.Verify(body, sig, ts))
}

func TestVerifyTamperedBody(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	body := []byte(`{"event_type":"purchase.completed"}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := Sign(testSecret, ts, body)

	err := v.Verify([]byte(`{"event_type":"purchase.refunded"}`), sig, ts)
	assert.True(t, ierr.IsSignature(err))
}

func TestVerifyWrongSecret(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	body := []byte(`{}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := Sign("some-other-secret", ts, body)

	err := v.Verify(body, sig, ts)
	assert.True(t, ierr.IsSignature(err))
}

func TestVerifyMissingSignature(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	ts := fmt.Sprintf("%d", time.Now().Unix())
	err := v.Verify([]byte(`{}`), "", ts)
	assert.True(t, ierr.IsSignature(err))
}

func TestVerifyMalformedSignature(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	ts := fmt.Sprintf("%d", time.Now().Unix())
	err := v.Verify([]byte(`{}`), "not-hex!!", ts)
	assert.True(t, ierr.IsSignature(err))
}

func TestVerifyStaleTimestamp(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	body := []byte(`{}`)
	// Ten minutes old, outside the 300s tolerance even with a valid
	// signature.
	ts := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())
	sig := Sign(testSecret, ts, body)

	err := v.Verify(body, sig, ts)
	assert.True(t, ierr.IsSignature(err))
}

func TestVerifyInvalidTimestamp(t *testing.T) {
	v := newTestVerifier(t, testSecret)

	err := v.Verify([]byte(`{}`), Sign(testSecret, "soon", []byte(`{}`)), "soon")
	assert.True(t, ierr.IsSignature(err))
}

func TestVerifySkippedWithoutSecret(t *testing.T) {
	v := newTestVerifier(t, "")

	// No secret configured: everything passes, including unsigned bodies.
	assert.NoError(t, v.Verify([]byte(`{}`), "", ""))
	assert.NoError(t, v.Verify([]byte(`{}`), "bogus", "123"))
}
