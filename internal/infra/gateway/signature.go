package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"enrollment-service/internal/domain"
)

// Signer computes and checks gateway HMAC-SHA256 signatures. The key secret
// signs checkout callbacks, the webhook secret signs raw webhook bodies.
type Signer struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewSigner(keySecret, webhookSecret string) *Signer {
	return &Signer{keySecret: []byte(keySecret), webhookSecret: []byte(webhookSecret)}
}

func sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is the expected signature for a checkout callback.
func (s *Signer) PaymentSignature(orderID, paymentID string) string {
	return sign(s.keySecret, []byte(orderID+"|"+paymentID))
}

func (s *Signer) VerifyPayment(orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(s.PaymentSignature(orderID, paymentID)), []byte(signature))
}

// WebhookConfigured reports whether webhook bodies can be verified.
func (s *Signer) WebhookConfigured() bool {
	return len(s.webhookSecret) > 0
}

func (s *Signer) WebhookSignature(body []byte) string {
	return sign(s.webhookSecret, body)
}

// VerifyWebhook checks the signature of an unparsed webhook body.
func (s *Signer) VerifyWebhook(body []byte, signature string) error {
	if !s.WebhookConfigured() {
		return domain.ErrWebhookNotConfigured
	}
	if signature == "" || !hmac.Equal([]byte(s.WebhookSignature(body)), []byte(signature)) {
		return domain.ErrWebhookSignature
	}
	return nil
}
