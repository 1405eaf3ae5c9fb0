package biz

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of message keyed by secret.
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignatureMessage is the message the gateway signs: "{order_id}|{payment_id}".
func PaymentSignatureMessage(gatewayOrderID, gatewayPaymentID string) string {
	return gatewayOrderID + "|" + gatewayPaymentID
}

// VerifyPaymentSignature recomputes the gateway signature and compares it in
// constant time.
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	expected := Sign(PaymentSignatureMessage(gatewayOrderID, gatewayPaymentID), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
