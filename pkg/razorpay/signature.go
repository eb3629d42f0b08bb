package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureVerifier checks the checkout callback signature, which is
// hex(HMAC-SHA256(keySecret, orderID + "|" + paymentID)).
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(keySecret string) (*SignatureVerifier, error) {
	keySecret = strings.TrimSpace(keySecret)
	if keySecret == "" {
		return nil, errSecretRequired
	}
	return &SignatureVerifier{secret: []byte(keySecret)}, nil
}

// Verify reports whether signature matches the order and payment ids.
func (v *SignatureVerifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if v == nil || gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, v.mac(gatewayOrderID, gatewayPaymentID))
}

// Sign produces the signature Razorpay would send for the pair.
func (v *SignatureVerifier) Sign(gatewayOrderID, gatewayPaymentID string) (string, error) {
	if v == nil {
		return "", errors.New("razorpay verifier not configured")
	}
	return hex.EncodeToString(v.mac(gatewayOrderID, gatewayPaymentID)), nil
}

func (v *SignatureVerifier) mac(gatewayOrderID, gatewayPaymentID string) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return h.Sum(nil)
}
