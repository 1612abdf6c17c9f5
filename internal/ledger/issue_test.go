package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/tokendesk/tokendesk/internal/models"
)

func TestIssueProductBatchUSDMode(t *testing.T) {
	engine, mirror := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 100)
	seedProduct(t, conn, "gpt-pro", 0.01)

	result, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:   models.TokenTypeProduct,
		ProductID:   "gpt-pro",
		USD:         10,
		Mode:        models.FundingModeUSD,
		TokenCount:  5,
		PrefixMode:  PrefixModeCustom,
		PrefixInput: "AB12",
	})
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	if result.CreditsPerToken != 1000 {
		t.Fatalf("credits per token = %d, want 1000", result.CreditsPerToken)
	}
	if result.TotalCredits != 5000 {
		t.Fatalf("total credits = %d, want 5000", result.TotalCredits)
	}
	if !almostEqual(result.TotalCostUSD, 50.0001) {
		t.Fatalf("total cost = %v, want 50.0001", result.TotalCostUSD)
	}
	if len(result.TokenStrings) != 5 {
		t.Fatalf("token strings = %d, want 5", len(result.TokenStrings))
	}

	pattern := regexp.MustCompile(`^AB12-1000-[A-Za-z0-9]{15}$`)
	for _, ts := range result.TokenStrings {
		if !pattern.MatchString(ts) {
			t.Fatalf("token %q does not match product format", ts)
		}
	}

	balance, errBalance := engine.Balance(context.Background(), userID)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if !almostEqual(balance, 49.9999) {
		t.Fatalf("balance after issue = %v, want 49.9999", balance)
	}

	var tokenCount int64
	if errCount := conn.Model(&models.Token{}).Where("batch_tx_id = ?", result.TransactionID).Count(&tokenCount).Error; errCount != nil {
		t.Fatalf("count tokens: %v", errCount)
	}
	if tokenCount != 5 {
		t.Fatalf("persisted tokens = %d, want 5", tokenCount)
	}

	if !result.MirrorSynced {
		t.Fatalf("expected mirror sync, got error %q", result.MirrorError)
	}
	if len(mirror.pushed) != 5 {
		t.Fatalf("mirrored tokens = %d, want 5", len(mirror.pushed))
	}
}

func TestIssueProductBatchCreditsMode(t *testing.T) {
	engine, _ := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 100)
	seedProduct(t, conn, "gpt-pro", 0.01)

	result, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:  models.TokenTypeProduct,
		ProductID:  "gpt-pro",
		Credits:    250.9,
		Mode:       models.FundingModeCredits,
		TokenCount: 2,
	})
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	// 250.9 floors to 250 credits per token; 250 * 0.01 = $2.50 per token.
	if result.CreditsPerToken != 250 {
		t.Fatalf("credits per token = %d, want 250", result.CreditsPerToken)
	}
	if !almostEqual(result.TotalCostUSD, 5.0001) {
		t.Fatalf("total cost = %v, want 5.0001", result.TotalCostUSD)
	}
}

func TestIssueMasterBatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 100)

	result, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:   models.TokenTypeMaster,
		USD:         25,
		TokenCount:  1,
		PrefixMode:  PrefixModeCustom,
		PrefixInput: "M1",
	})
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	if result.CreditsPerToken != 25 {
		t.Fatalf("credits per token = %d, want 25", result.CreditsPerToken)
	}
	if !almostEqual(result.TotalCostUSD, 25.0001) {
		t.Fatalf("total cost = %v, want 25.0001", result.TotalCostUSD)
	}

	pattern := regexp.MustCompile(`^M1-25USD-[A-Za-z0-9]{15}$`)
	if !pattern.MatchString(result.TokenStrings[0]) {
		t.Fatalf("token %q does not match master format", result.TokenStrings[0])
	}
}

func TestIssueValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 100)
	seedProduct(t, conn, "gpt-pro", 0.01)

	cases := []struct {
		name string
		req  IssueRequest
		want error
	}{
		{
			name: "zero count",
			req:  IssueRequest{TokenType: models.TokenTypeProduct, ProductID: "gpt-pro", USD: 10, Mode: "usd", TokenCount: 0},
			want: ErrValidation,
		},
		{
			name: "count over cap",
			req:  IssueRequest{TokenType: models.TokenTypeProduct, ProductID: "gpt-pro", USD: 10, Mode: "usd", TokenCount: 1001},
			want: ErrValidation,
		},
		{
			name: "unknown type",
			req:  IssueRequest{TokenType: "platinum", USD: 10, Mode: "usd", TokenCount: 1},
			want: ErrValidation,
		},
		{
			name: "unknown mode",
			req:  IssueRequest{TokenType: models.TokenTypeProduct, ProductID: "gpt-pro", USD: 10, Mode: "eur", TokenCount: 1},
			want: ErrValidation,
		},
		{
			name: "usd below minimum",
			req:  IssueRequest{TokenType: models.TokenTypeProduct, ProductID: "gpt-pro", USD: 0.5, Mode: "usd", TokenCount: 1},
			want: ErrValidation,
		},
		{
			name: "bad custom prefix",
			req:  IssueRequest{TokenType: models.TokenTypeProduct, ProductID: "gpt-pro", USD: 10, Mode: "usd", TokenCount: 1, PrefixMode: PrefixModeCustom, PrefixInput: "TOO-LONG"},
			want: ErrValidation,
		},
		{
			name: "missing product",
			req:  IssueRequest{TokenType: models.TokenTypeProduct, ProductID: "nope", USD: 10, Mode: "usd", TokenCount: 1},
			want: ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errIssue := engine.Issue(context.Background(), userID, tc.req)
			if !errors.Is(errIssue, tc.want) {
				t.Fatalf("issue error = %v, want %v", errIssue, tc.want)
			}
		})
	}

	// No writes happened for any rejected request.
	var txCount int64
	if errCount := conn.Model(&models.Transaction{}).Count(&txCount).Error; errCount != nil {
		t.Fatalf("count transactions: %v", errCount)
	}
	if txCount != 0 {
		t.Fatalf("transactions after rejected issues = %d, want 0", txCount)
	}
}

func TestIssueAmountFloorsToZeroCredits(t *testing.T) {
	engine, _ := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 100)
	seedProduct(t, conn, "premium", 50)

	_, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:  models.TokenTypeProduct,
		ProductID:  "premium",
		USD:        10,
		Mode:       models.FundingModeUSD,
		TokenCount: 1,
	})
	if !errors.Is(errIssue, ErrAmountTooSmall) {
		t.Fatalf("issue error = %v, want %v", errIssue, ErrAmountTooSmall)
	}
}

func TestIssueInsufficientBalance(t *testing.T) {
	engine, _ := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 10)
	seedProduct(t, conn, "gpt-pro", 0.01)

	_, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:  models.TokenTypeProduct,
		ProductID:  "gpt-pro",
		USD:        10,
		Mode:       models.FundingModeUSD,
		TokenCount: 2,
	})

	var insufficient *InsufficientBalanceError
	if !errors.As(errIssue, &insufficient) {
		t.Fatalf("issue error = %v, want InsufficientBalanceError", errIssue)
	}
	if !almostEqual(insufficient.Balance, 10) {
		t.Fatalf("reported balance = %v, want 10", insufficient.Balance)
	}
	if !almostEqual(insufficient.Required, 20.0001) {
		t.Fatalf("reported required = %v, want 20.0001", insufficient.Required)
	}

	// The rejected batch left no rows behind.
	var tokenCount int64
	if errCount := conn.Model(&models.Token{}).Count(&tokenCount).Error; errCount != nil {
		t.Fatalf("count tokens: %v", errCount)
	}
	if tokenCount != 0 {
		t.Fatalf("tokens after rejected issue = %d, want 0", tokenCount)
	}
}

func TestIssueFeeChargedOncePerBatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 1000)
	seedProduct(t, conn, "gpt-pro", 0.01)

	result, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:  models.TokenTypeProduct,
		ProductID:  "gpt-pro",
		USD:        1,
		Mode:       models.FundingModeUSD,
		TokenCount: 100,
	})
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	if !almostEqual(result.TotalCostUSD, 100.0001) {
		t.Fatalf("total cost = %v, want 100.0001", result.TotalCostUSD)
	}
}

func TestIssueMirrorFailureDoesNotRollBack(t *testing.T) {
	engine, mirror := newTestEngine(t)
	conn := engine.DB()
	userID := seedUser(t, conn, "alice")
	seedConfirmedPayment(t, conn, userID, 100)
	seedProduct(t, conn, "gpt-pro", 0.01)
	mirror.failNext = errors.New("hub unreachable")

	result, errIssue := engine.Issue(context.Background(), userID, IssueRequest{
		TokenType:  models.TokenTypeProduct,
		ProductID:  "gpt-pro",
		USD:        10,
		Mode:       models.FundingModeUSD,
		TokenCount: 1,
	})
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	if result.MirrorSynced {
		t.Fatal("expected mirror sync failure")
	}
	if result.MirrorError == "" {
		t.Fatal("expected mirror error message")
	}

	var tokenCount int64
	if errCount := conn.Model(&models.Token{}).Count(&tokenCount).Error; errCount != nil {
		t.Fatalf("count tokens: %v", errCount)
	}
	if tokenCount != 1 {
		t.Fatalf("tokens after mirror failure = %d, want 1", tokenCount)
	}
}
