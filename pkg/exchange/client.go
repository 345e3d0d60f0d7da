package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Resource Exchange Simulator REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges form-encoded credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/api/login", "",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &RejectedError{Op: "login", Status: http.StatusOK, Detail: "no access token in response"}
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, "register", http.MethodPost, "/api/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the signed-in user's record.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out meResponse
	if err := c.do(ctx, "me", http.MethodGet, "/api/me", token, nil, "", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Resources lists every resource with its current price. No auth.
func (c *Client) Resources(ctx context.Context) ([]Resource, error) {
	var out []Resource
	if err := c.do(ctx, "resources", http.MethodGet, "/api/resources", "", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Positions lists the user's holdings.
func (c *Client) Positions(ctx context.Context, token string) ([]Position, error) {
	var out []Position
	if err := c.do(ctx, "positions", http.MethodGet, "/api/positions", token, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transactions lists the user's trade history, newest first.
func (c *Client) Transactions(ctx context.Context, token string) ([]Transaction, error) {
	var out []Transaction
	if err := c.do(ctx, "transactions", http.MethodGet, "/api/transactions", token, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Trade submits a buy or sell order at the current simulated price.
func (c *Client) Trade(ctx context.Context, token string, req TradeRequest) (*TradeResponse, error) {
	var out TradeResponse
	if err := c.doJSON(ctx, "trade", http.MethodPost, "/api/trade", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePrices asks the simulator to move every price one step.
func (c *Client) UpdatePrices(ctx context.Context, token string) (*UpdatePricesResponse, error) {
	var out UpdatePricesResponse
	if err := c.do(ctx, "update-prices", http.MethodPost, "/api/update-prices", token, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.do(ctx, op, method, path, token, bytes.NewReader(body), "application/json", out)
}

func (c *Client) do(ctx context.Context, op, method, path, token string,
	body io.Reader, contentType string, out any) error {
	// Construct the request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectedError{Op: op, Status: resp.StatusCode, Detail: parseDetail(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
