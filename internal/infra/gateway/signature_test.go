package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"enrollment-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func hexHMAC(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSigner_VerifyPayment(t *testing.T) {
	s := NewSigner("key-secret", "hook-secret")
	valid := hexHMAC("key-secret", "O1|P1")

	assert.Equal(t, valid, s.PaymentSignature("O1", "P1"))
	assert.True(t, s.VerifyPayment("O1", "P1", valid))
	assert.False(t, s.VerifyPayment("O1", "P2", valid))
	assert.False(t, s.VerifyPayment("O1", "P1", valid[:10]))
	assert.False(t, s.VerifyPayment("O1", "P1", ""))
	assert.False(t, s.VerifyPayment("O1", "P1", hexHMAC("hook-secret", "O1|P1")))
}

func TestSigner_VerifyWebhook(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	s := NewSigner("key-secret", "hook-secret")

	assert.NoError(t, s.VerifyWebhook(body, hexHMAC("hook-secret", string(body))))
	assert.ErrorIs(t, s.VerifyWebhook(body, hexHMAC("key-secret", string(body))), domain.ErrWebhookSignature)
	assert.ErrorIs(t, s.VerifyWebhook(append(body, ' '), hexHMAC("hook-secret", string(body))), domain.ErrWebhookSignature)
	assert.ErrorIs(t, s.VerifyWebhook(body, ""), domain.ErrWebhookSignature)

	assert.True(t, s.WebhookConfigured())

	unconfigured := NewSigner("key-secret", "")
	assert.False(t, unconfigured.WebhookConfigured())
	assert.ErrorIs(t, unconfigured.VerifyWebhook(body, "anything"), domain.ErrWebhookNotConfigured)
}
