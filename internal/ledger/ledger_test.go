package ledger

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/tokendesk/tokendesk/internal/db"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// seqTokenRand returns predictable strings so tests can assert exact token
// formats and keep generated strings unique.
type seqTokenRand struct {
	calls int
}

func (r *seqTokenRand) AlphanumericString(length int) (string, error) {
	r.calls++
	out := make([]byte, length)
	for i := range out {
		out[i] = 'A' + byte((r.calls+i)%26)
	}
	// Overwrite the tail with the call counter so strings stay unique even
	// when more than 26 are generated.
	for i, n := length-1, r.calls; i >= 0 && n > 0; i, n = i-1, n/10 {
		out[i] = '0' + byte(n%10)
	}
	return string(out), nil
}

// recordingMirror captures mirror calls for assertions.
type recordingMirror struct {
	pushed      []MirrorToken
	credits     map[string]int64
	activations map[string]bool
	failNext    error
}

func newRecordingMirror() *recordingMirror {
	return &recordingMirror{
		credits:     map[string]int64{},
		activations: map[string]bool{},
	}
}

func (m *recordingMirror) PushTokens(_ context.Context, tokens []MirrorToken) error {
	if m.failNext != nil {
		return m.failNext
	}
	m.pushed = append(m.pushed, tokens...)
	return nil
}

func (m *recordingMirror) UpdateCredits(_ context.Context, tokenString, _ string, credits int64) error {
	if m.failNext != nil {
		return m.failNext
	}
	m.credits[tokenString] = credits
	return nil
}

func (m *recordingMirror) UpdateActivation(_ context.Context, tokenString, _ string, activated bool) error {
	if m.failNext != nil {
		return m.failNext
	}
	m.activations[tokenString] = activated
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestEngine(t *testing.T) (*Engine, *recordingMirror) {
	t.Helper()
	conn := newTestDB(t)
	mirror := newRecordingMirror()
	return NewEngine(conn, mirror, &seqTokenRand{}, nil), mirror
}

func seedUser(t *testing.T, conn *gorm.DB, username string) uint64 {
	t.Helper()
	user := models.User{Username: username, Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return user.ID
}

func seedConfirmedPayment(t *testing.T, conn *gorm.DB, userID uint64, usd float64) {
	t.Helper()
	payment := models.Payment{
		UserID:    userID,
		OrderID:   fmt.Sprintf("%d_seed_%f", userID, usd),
		Status:    "finished",
		AmountUSD: &usd,
		Currency:  "USD",
	}
	if errCreate := conn.Create(&payment).Error; errCreate != nil {
		t.Fatalf("seed payment: %v", errCreate)
	}
}

func seedProduct(t *testing.T, conn *gorm.DB, productID string, rate float64) {
	t.Helper()
	product := models.Product{ProductID: productID, Name: productID, ValueCreditsUSD: rate}
	if errCreate := conn.Create(&product).Error; errCreate != nil {
		t.Fatalf("seed product: %v", errCreate)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
