package ledger

import (
	"context"

	"github.com/tokendesk/tokendesk/internal/security"
	"gorm.io/gorm"
)

// MirrorToken is the token state replicated to the external authorization
// store, keyed by token string.
type MirrorToken struct {
	TokenString string
	TokenType   string
	Credits     int64
	Activated   bool
}

// Mirror replicates token state to the external hub. Both operations are
// best-effort from the ledger's perspective: errors are logged and surfaced
// as a status in operation results, never as operation failure.
type Mirror interface {
	PushTokens(ctx context.Context, tokens []MirrorToken) error
	UpdateCredits(ctx context.Context, tokenString, tokenType string, credits int64) error
	UpdateActivation(ctx context.Context, tokenString, tokenType string, activated bool) error
}

// Locker serializes ledger operations per owner across instances. Release is
// always safe to call. A nil Locker disables external locking; the database
// transaction still guards single-instance correctness.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Engine executes issuance and refill operations against the ledger.
type Engine struct {
	db     *gorm.DB
	mirror Mirror
	rnd    security.TokenRand
	locker Locker
}

// NewEngine constructs a ledger Engine. mirror and locker may be nil.
func NewEngine(db *gorm.DB, mirror Mirror, rnd security.TokenRand, locker Locker) *Engine {
	if rnd == nil {
		rnd = security.NewTokenRand()
	}
	return &Engine{db: db, mirror: mirror, rnd: rnd, locker: locker}
}

// DB exposes the underlying connection for read-only handler queries.
func (e *Engine) DB() *gorm.DB { return e.db }

// Balance recomputes the owner's spendable balance.
func (e *Engine) Balance(ctx context.Context, userID uint64) (float64, error) {
	return Balance(ctx, e.db, userID)
}

// lockOwner acquires the per-owner ledger lock when a Locker is configured.
func (e *Engine) lockOwner(ctx context.Context, key string) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	return e.locker.Acquire(ctx, key)
}
