package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
)

const DefaultHost = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client fetches daily chart data from the Yahoo Finance v8 chart endpoint.
type Client struct {
	host       string
	httpClient *http.Client
	rangeSpec  string
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error (%d): %s", e.Status, e.Body)
}

// Chart is the subset of the response the pricing pipeline needs: the last
// traded price and a daily close series. Missing closes are NaN so gaps stay
// visible to the volatility estimator.
type Chart struct {
	RegularMarketPrice float64
	Closes             []float64
}

func NewClient(httpClient *http.Client, host, rangeSpec string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	if strings.TrimSpace(rangeSpec) == "" {
		rangeSpec = "3mo"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
		rangeSpec:  rangeSpec,
	}
}

// GetDailyChart fetches interval=1d bars for one ticker over the configured
// range.
func (c *Client) GetDailyChart(ctx context.Context, ticker string) (*Chart, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("range", c.rangeSpec)
	fullURL := c.host + "/" + url.PathEscape(ticker) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// Yahoo rejects requests without a browser-like user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; polyedge/1.0)")
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
	return parseChart(body)
}

func parseChart(body []byte) (*Chart, error) {
	var resp struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart result is empty")
	}
	result := resp.Chart.Result[0]

	chart := &Chart{RegularMarketPrice: result.Meta.RegularMarketPrice}
	if len(result.Indicators.Quote) > 0 {
		raw := result.Indicators.Quote[0].Close
		chart.Closes = make([]float64, len(raw))
		for i, v := range raw {
			if v == nil {
				chart.Closes[i] = math.NaN()
				continue
			}
			chart.Closes[i] = *v
		}
	}
	return chart, nil
}
