package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Gateway wraps the NOWPayments REST API for invoice creation.
type Gateway struct {
	baseURL     string
	apiKey      string
	callbackURL string
	httpClient  *http.Client
}

// NewGateway constructs a Gateway client.
func NewGateway(baseURL, apiKey, callbackURL string) *Gateway {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.nowpayments.io/v1"
	}
	return &Gateway{
		baseURL:     baseURL,
		apiKey:      apiKey,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Invoice is the gateway's response to a payment creation request.
type Invoice struct {
	PaymentID  string          // external payment identifier
	PaymentURL string          // hosted payment page
	Raw        json.RawMessage // full gateway payload, stored verbatim
}

// createPaymentRequest is the wire shape for payment creation.
type createPaymentRequest struct {
	PriceAmount    float64 `json:"price_amount"`
	PriceCurrency  string  `json:"price_currency"`
	OrderID        string  `json:"order_id"`
	IPNCallbackURL string  `json:"ipn_callback_url,omitempty"`
}

// CreatePayment creates a USD-denominated payment and returns the hosted
// payment reference. No balance changes until the gateway later confirms the
// payment through the IPN callback.
func (g *Gateway) CreatePayment(ctx context.Context, amountUSD float64, orderID string) (*Invoice, error) {
	body := createPaymentRequest{
		PriceAmount:    amountUSD,
		PriceCurrency:  "USD",
		OrderID:        orderID,
		IPNCallbackURL: g.callbackURL,
	}
	encoded, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return nil, fmt.Errorf("payments: encode request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payment", bytes.NewReader(encoded))
	if errReq != nil {
		return nil, fmt.Errorf("payments: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)

	resp, errDo := g.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("payments: create payment: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("payments: read response: %w", errRead)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payments: create payment: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded struct {
		PaymentID  json.Number `json:"payment_id"`
		ID         json.Number `json:"id"`
		PaymentURL string      `json:"payment_url"`
		InvoiceURL string      `json:"invoice_url"`
	}
	if errDecode := json.Unmarshal(raw, &decoded); errDecode != nil {
		return nil, fmt.Errorf("payments: decode response: %w", errDecode)
	}

	paymentID := decoded.PaymentID.String()
	if paymentID == "" {
		paymentID = decoded.ID.String()
	}
	paymentURL := decoded.PaymentURL
	if paymentURL == "" {
		paymentURL = decoded.InvoiceURL
	}

	return &Invoice{
		PaymentID:  paymentID,
		PaymentURL: paymentURL,
		Raw:        raw,
	}, nil
}

// IPNPayload is the gateway status notification keyed by order identifier.
// Field fallbacks mirror the variants the gateway has been observed sending.
type IPNPayload struct {
	InvoiceID     json.Number `json:"invoice_id"`
	ID            json.Number `json:"id"`
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	OrderID       string      `json:"order_id"`
	PriceAmount   float64     `json:"price_amount"`
	OrderAmount   float64     `json:"order_amount"`
	PriceCurrency string      `json:"price_currency"`
	Currency      string      `json:"currency"`
	ActuallyPaid  float64     `json:"actually_paid"`
	PayAmount     float64     `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
}

// EffectiveInvoiceID returns the invoice identifier, falling back to id.
func (p *IPNPayload) EffectiveInvoiceID() string {
	if s := p.InvoiceID.String(); s != "" {
		return s
	}
	return p.ID.String()
}

// EffectivePriceAmount returns the fiat amount, falling back to order_amount.
func (p *IPNPayload) EffectivePriceAmount() float64 {
	if p.PriceAmount != 0 {
		return p.PriceAmount
	}
	return p.OrderAmount
}

// EffectivePriceCurrency returns the upper-cased fiat currency code.
func (p *IPNPayload) EffectivePriceCurrency() string {
	currency := strings.TrimSpace(p.PriceCurrency)
	if currency == "" {
		currency = strings.TrimSpace(p.Currency)
	}
	if currency == "" {
		currency = "USD"
	}
	return strings.ToUpper(currency)
}

// EffectivePaidAmount returns the paid crypto amount, falling back to pay_amount.
func (p *IPNPayload) EffectivePaidAmount() float64 {
	if p.ActuallyPaid != 0 {
		return p.ActuallyPaid
	}
	return p.PayAmount
}

// EffectivePayCurrency returns the lower-cased crypto currency code.
func (p *IPNPayload) EffectivePayCurrency() string {
	return strings.ToLower(strings.TrimSpace(p.PayCurrency))
}
