package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/models"
)

// Hub table names for mirrored tokens. Master tokens live in their own table.
const (
	mirrorTableTokens       = "tokens"
	mirrorTableMasterTokens = "tokens_master"
)

// Client talks to the external authorization store (hub). All calls are
// best-effort from the ledger's perspective; the caller decides what to do
// with errors.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient constructs a hub Client. Returns nil when no URL is configured,
// which disables mirroring.
func NewClient(baseURL, serviceKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// mirrorTokenRow is the wire shape for one mirrored token.
type mirrorTokenRow struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Credits   int64  `json:"credits"`
	Activated bool   `json:"activated"`
}

// PushTokens replicates freshly issued tokens to the hub, keyed by token
// string. Product and master tokens go to separate tables.
func (c *Client) PushTokens(ctx context.Context, tokens []ledger.MirrorToken) error {
	if len(tokens) == 0 {
		return nil
	}

	byTable := map[string][]mirrorTokenRow{}
	for _, t := range tokens {
		table := mirrorTable(t.TokenType)
		byTable[table] = append(byTable[table], mirrorTokenRow{
			Token:     t.TokenString,
			TokenType: t.TokenType,
			Credits:   t.Credits,
			Activated: t.Activated,
		})
	}

	for table, rows := range byTable {
		if errPost := c.post(ctx, "/rest/v1/"+table, rows); errPost != nil {
			return fmt.Errorf("hub: push %s: %w", table, errPost)
		}
	}
	return nil
}

// UpdateCredits updates the mirrored credit count for one token.
func (c *Client) UpdateCredits(ctx context.Context, tokenString, tokenType string, credits int64) error {
	table := mirrorTable(tokenType)
	payload := map[string]int64{"credits": credits}
	path := fmt.Sprintf("/rest/v1/%s?token=eq.%s", table, tokenString)
	if errPatch := c.patch(ctx, path, payload); errPatch != nil {
		return fmt.Errorf("hub: update credits in %s: %w", table, errPatch)
	}
	return nil
}

// UpdateActivation updates the mirrored activation flag for one token.
func (c *Client) UpdateActivation(ctx context.Context, tokenString, tokenType string, activated bool) error {
	table := mirrorTable(tokenType)
	payload := map[string]bool{"activated": activated}
	path := fmt.Sprintf("/rest/v1/%s?token=eq.%s", table, tokenString)
	if errPatch := c.patch(ctx, path, payload); errPatch != nil {
		return fmt.Errorf("hub: update activation in %s: %w", table, errPatch)
	}
	return nil
}

// mirrorTable picks the hub table for a token type.
func mirrorTable(tokenType string) string {
	if tokenType == models.TokenTypeMaster {
		return mirrorTableMasterTokens
	}
	return mirrorTableTokens
}

// post issues an authenticated JSON POST to the hub.
func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPost, path, body)
}

// patch issues an authenticated JSON PATCH to the hub.
func (c *Client) patch(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPatch, path, body)
}

// send performs one authenticated request and checks for a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	encoded, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return fmt.Errorf("encode request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if errReq != nil {
		return fmt.Errorf("build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("request failed: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
