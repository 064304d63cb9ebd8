package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignPayment returns the hex HMAC-SHA256 of "gatewayOrderID|gatewayPaymentID".
func SignPayment(secret, gatewayOrderID, gatewayPaymentID string) string {
	return hex.EncodeToString(paymentMAC(secret, gatewayOrderID, gatewayPaymentID))
}

// VerifyPaymentSignature checks a client-reported checkout signature in constant time.
func VerifyPaymentSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(paymentMAC(secret, gatewayOrderID, gatewayPaymentID), got)
}

// VerifyWebhookSignature checks the signature header sent with a raw webhook body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func paymentMAC(secret, gatewayOrderID, gatewayPaymentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return mac.Sum(nil)
}
