package clob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultHost = "https://clob.polymarket.com"

// Client is a read-only CLOB REST client. Only public endpoints are used;
// no API credentials are attached.
type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clob API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetBook fetches the full order book for one token. The raw body is
// returned alongside the parsed book for callers that want to inspect or
// retain the payload as received.
func (c *Client) GetBook(ctx context.Context, tokenID string) ([]byte, *OrderBook, error) {
	if strings.TrimSpace(tokenID) == "" {
		return nil, nil, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("token_id", tokenID)
	body, err := c.doRequest(ctx, "/book", query)
	if err != nil {
		return nil, nil, err
	}
	book, err := parseOrderBook(body)
	if err != nil {
		return body, nil, err
	}
	return body, book, nil
}

// GetMidpoint fetches the midpoint price for one token. Used only for
// diagnostics; ranking always works from the full book.
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (Decimal, error) {
	if strings.TrimSpace(tokenID) == "" {
		return Decimal{}, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("token_id", tokenID)
	body, err := c.doRequest(ctx, "/midpoint", query)
	if err != nil {
		return Decimal{}, err
	}
	return parseMidpoint(body)
}
