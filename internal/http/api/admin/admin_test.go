package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/config"
	"github.com/tokendesk/tokendesk/internal/db"
	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/security"
	"gorm.io/gorm"
)

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

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret",
			UserExpiry:  time.Hour,
			AdminExpiry: time.Hour,
		},
	}

	engine := ledger.NewEngine(conn, nil, nil, nil)
	router := gin.New()
	RegisterRoutes(router, conn, engine, nil, cfg)
	return router, conn
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if errEncode := json.NewEncoder(&body).Encode(payload); errEncode != nil {
			t.Fatalf("encode payload: %v", errEncode)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
	}
	return out
}

func seedAdmin(t *testing.T, conn *gorm.DB) {
	t.Helper()
	hash, errHash := security.HashPassword("op-password")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Username: "operator", Password: hash}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}
}

func adminLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/admin/login", "", gin.H{
		"username": "operator",
		"password": "op-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatal("admin login returned no token")
	}
	return token
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	router, conn := newTestRouter(t)
	seedAdmin(t, conn)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/login", "", gin.H{
		"username": "operator",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/admin/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRejectsUserToken(t *testing.T) {
	router, conn := newTestRouter(t)
	seedAdmin(t, conn)

	user := models.User{Username: "alice", Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}

	// A user JWT is signed with the same secret but must never open admin
	// routes.
	userToken, errSign := security.GenerateUserToken("test-secret", user.ID, "alice", "alice@example.com", time.Hour)
	if errSign != nil {
		t.Fatalf("sign user token: %v", errSign)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/admin/users", userToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRejectsTokenForDeletedAdmin(t *testing.T) {
	router, conn := newTestRouter(t)
	seedAdmin(t, conn)
	token := adminLogin(t, router)

	if errDelete := conn.Where("username = ?", "operator").Delete(&models.Admin{}).Error; errDelete != nil {
		t.Fatalf("delete admin: %v", errDelete)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/admin/users", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminAdjustmentRecordsCredits(t *testing.T) {
	router, conn := newTestRouter(t)
	seedAdmin(t, conn)
	token := adminLogin(t, router)

	user := models.User{Username: "alice", Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	amount := 100.0
	payment := models.Payment{UserID: user.ID, OrderID: "seed", Status: "finished", AmountUSD: &amount, Currency: "USD"}
	if errCreate := conn.Create(&payment).Error; errCreate != nil {
		t.Fatalf("seed payment: %v", errCreate)
	}

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/adjust", user.ID), token, gin.H{
		"credits": -250,
		"label":   "support correction",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if got := body["credits"].(float64); got != -250 {
		t.Fatalf("credits = %v, want -250", got)
	}
	// Adjustment rows never move the USD balance.
	if got := body["balance_usd"].(float64); got != 100 {
		t.Fatalf("balance_usd = %v, want 100", got)
	}

	var row models.Transaction
	if errFind := conn.Where("token_type = ?", models.TokenTypeAdminAdjustment).First(&row).Error; errFind != nil {
		t.Fatalf("load adjustment: %v", errFind)
	}
	if row.USDSpent != 0 {
		t.Fatalf("usd_spent = %v, want 0", row.USDSpent)
	}
}

func TestAdminLockBlocksRefill(t *testing.T) {
	router, conn := newTestRouter(t)
	seedAdmin(t, conn)
	token := adminLogin(t, router)

	user := models.User{Username: "alice", Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	batch := models.Transaction{
		UserID:     user.ID,
		TokenType:  models.TokenTypeProduct,
		BatchLabel: "BATCH-1tokens-seed",
		Credits:    1000,
		TokenCount: 1,
		Mode:       models.FundingModeUSD,
	}
	if errCreate := conn.Create(&batch).Error; errCreate != nil {
		t.Fatalf("seed batch: %v", errCreate)
	}
	row := models.Token{
		BatchTxID:   batch.ID,
		UserID:      user.ID,
		TokenString: "AB12-1000-xxxxxxxxxxxxxxx",
		Credits:     1000,
		TokenType:   models.TokenTypeProduct,
		Activated:   true,
	}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed token: %v", errCreate)
	}

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/admin/tokens/%d/lock", row.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lock status = %d: %s", rec.Code, rec.Body.String())
	}

	var after models.Token
	if errFind := conn.First(&after, row.ID).Error; errFind != nil {
		t.Fatalf("load token: %v", errFind)
	}
	if !after.Locked {
		t.Fatal("token not locked")
	}

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/admin/tokens/%d/unlock", row.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminUserDisableEnable(t *testing.T) {
	router, conn := newTestRouter(t)
	seedAdmin(t, conn)
	token := adminLogin(t, router)

	user := models.User{Username: "alice", Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/disable", user.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("disable status = %d: %s", rec.Code, rec.Body.String())
	}

	var after models.User
	if errFind := conn.First(&after, user.ID).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if !after.Disabled {
		t.Fatal("user not disabled")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/admin/users/9999/disable", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing user disable status = %d, want 404", rec.Code)
	}
}
