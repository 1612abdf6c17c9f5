package ipn

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/db"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/payments"
	"gorm.io/gorm"
)

const testIPNSecret = "test-ipn-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	router := gin.New()
	RegisterRoutes(router, NewHandler(conn, testIPNSecret))
	return router, conn
}

func seedUser(t *testing.T, conn *gorm.DB, id uint64) {
	t.Helper()
	user := models.User{ID: id, Username: fmt.Sprintf("user-%d", id), Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
}

func postIPN(t *testing.T, router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ipn", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(payments.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIPNRejectsBadSignature(t *testing.T) {
	router, conn := newTestRouter(t)
	seedUser(t, conn, 7)

	pending := models.Payment{UserID: 7, OrderID: "7_1700000000", Status: "pending", Currency: "USD"}
	if errCreate := conn.Create(&pending).Error; errCreate != nil {
		t.Fatalf("seed payment: %v", errCreate)
	}

	body := []byte(`{"order_id":"7_1700000000","payment_status":"finished","price_amount":50,"price_currency":"usd"}`)
	rec := postIPN(t, router, body, "deadbeef")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var after models.Payment
	if errFind := conn.Where("order_id = ?", "7_1700000000").First(&after).Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if after.Status != "pending" {
		t.Fatalf("status changed to %q on bad signature", after.Status)
	}
}

func TestIPNUpdatesPendingPayment(t *testing.T) {
	router, conn := newTestRouter(t)
	seedUser(t, conn, 7)

	pending := models.Payment{UserID: 7, OrderID: "7_1700000000", Status: "pending", Currency: "USD"}
	if errCreate := conn.Create(&pending).Error; errCreate != nil {
		t.Fatalf("seed payment: %v", errCreate)
	}

	body := []byte(`{"order_id":"7_1700000000","payment_status":"finished","payment_id":123456,"price_amount":50,"price_currency":"usd","actually_paid":0.0015,"pay_currency":"BTC"}`)
	rec := postIPN(t, router, body, payments.SignBody(testIPNSecret, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var after models.Payment
	if errFind := conn.Where("order_id = ?", "7_1700000000").First(&after).Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if after.Status != "finished" {
		t.Fatalf("status = %q, want finished", after.Status)
	}
	if after.AmountUSD == nil || *after.AmountUSD != 50 {
		t.Fatalf("amount_usd = %v, want 50", after.AmountUSD)
	}
	if after.Currency != "USD" {
		t.Fatalf("currency = %q, want USD", after.Currency)
	}
	if after.PayCurrency != "btc" {
		t.Fatalf("pay_currency = %q, want btc", after.PayCurrency)
	}
	if !after.Confirmed() {
		t.Fatal("payment not confirmed after finished status")
	}
}

func TestIPNCreatesMissingPayment(t *testing.T) {
	router, conn := newTestRouter(t)
	seedUser(t, conn, 42)

	body := []byte(`{"order_id":"42_1700000001","payment_status":"confirmed","price_amount":25,"price_currency":"USD"}`)
	rec := postIPN(t, router, body, payments.SignBody(testIPNSecret, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var created models.Payment
	if errFind := conn.Where("order_id = ?", "42_1700000001").First(&created).Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if created.UserID != 42 {
		t.Fatalf("user_id = %d, want 42", created.UserID)
	}
	if !created.Confirmed() {
		t.Fatal("created payment not confirmed")
	}
}

func TestIPNRejectsUnparseableOrderID(t *testing.T) {
	router, _ := newTestRouter(t)

	body := []byte(`{"order_id":"garbage","payment_status":"finished"}`)
	rec := postIPN(t, router, body, payments.SignBody(testIPNSecret, body))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestIPNRequiresOrderID(t *testing.T) {
	router, _ := newTestRouter(t)

	body := []byte(`{"payment_status":"finished"}`)
	rec := postIPN(t, router, body, payments.SignBody(testIPNSecret, body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
