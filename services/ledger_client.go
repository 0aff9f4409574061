// wager-session-system/services/ledger_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"wager-session-system/utils"
)

// Ledger is the external fungible-token ledger that holds real balances.
// Every call is atomic and reports success/failure synchronously; the engine
// never retries internally.
type Ledger interface {
	Transfer(ctx context.Context, from, to string, amount float64) error
	GetBalance(ctx context.Context, account string) (float64, error)
	GetAuthority(ctx context.Context, account string) (string, error)
}

type LedgerClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewLedgerClient() *LedgerClient {
	baseURL := os.Getenv("LEDGER_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("LEDGER_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("LEDGER_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("LEDGER_SERVICE_TOKEN environment variable is required")
	}
	return &LedgerClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// Transfer moves amount from one ledger account to another. The ledger
// rejects the call if the source lacks balance or spend authorization.
func (c *LedgerClient) Transfer(ctx context.Context, from, to string, amount float64) error {
	url := fmt.Sprintf("%s/api/v1/transfers", c.BaseURL)

	reqBody := map[string]interface{}{
		"from":   from,
		"to":     to,
		"amount": amount,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger transfer call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[LEDGER] transfer %s → %s (%.2f) rejected: %d %s", from, to, amount, resp.StatusCode, string(body))
		return fmt.Errorf("ledger rejected transfer: status %d", resp.StatusCode)
	}
	return nil
}

func (c *LedgerClient) GetBalance(ctx context.Context, account string) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/accounts/%s/balance", c.BaseURL, account), &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *LedgerClient) GetAuthority(ctx context.Context, account string) (string, error) {
	var out struct {
		Authority string `json:"authority"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/accounts/%s/authority", c.BaseURL, account), &out); err != nil {
		return "", err
	}
	return out.Authority, nil
}

func (c *LedgerClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger call failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[LEDGER] GET %s returned %d: %s", url, resp.StatusCode, string(body))
		return fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
