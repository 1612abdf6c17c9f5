package payments

import "testing"

func TestVerifySignatureRoundTrip(t *testing.T) {
	body := []byte(`{"order_id":"7_1700000000","payment_status":"finished"}`)
	secret := "ipn-secret"

	signature := SignBody(secret, body)
	if !VerifySignature(secret, body, signature) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifySignatureCaseInsensitive(t *testing.T) {
	body := []byte(`{"order_id":"7_1700000000"}`)
	secret := "ipn-secret"

	upper := []byte(SignBody(secret, body))
	for i, ch := range upper {
		if ch >= 'a' && ch <= 'f' {
			upper[i] = ch - 'a' + 'A'
		}
	}
	if !VerifySignature(secret, body, string(upper)) {
		t.Fatal("upper-cased signature rejected")
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	body := []byte(`{"order_id":"7_1700000000","price_amount":10}`)
	secret := "ipn-secret"
	signature := SignBody(secret, body)

	tampered := []byte(`{"order_id":"7_1700000000","price_amount":10000}`)
	if VerifySignature(secret, tampered, signature) {
		t.Fatal("tampered body accepted")
	}
	if VerifySignature("wrong-secret", body, signature) {
		t.Fatal("wrong secret accepted")
	}
	if VerifySignature(secret, body, "") {
		t.Fatal("empty signature accepted")
	}
}
