package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the gateway's HMAC signature on IPN callbacks.
const SignatureHeader = "x-nowpayments-sig"

// SignBody computes the hex-encoded HMAC-SHA512 signature of a raw IPN body.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a gateway signature against the raw request body.
// Comparison is constant-time and case-insensitive on the hex encoding.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return false
	}
	expected := SignBody(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
