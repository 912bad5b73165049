// Package price resolves historic GBP valuations for cryptoassets, backed by
// the CryptoCompare daily-history API with a local cache in front of it.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://min-api.cryptocompare.com"

// Client fetches daily close prices from the CryptoCompare API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a price client with default HTTP settings.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL creates a client against a specific endpoint. Used by
// tests to point at a local stub server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// QueryDailyHistory fetches up to limit daily candles for asset priced in
// GBP, ending at the day containing end.
func (c *Client) QueryDailyHistory(ctx context.Context, asset string, end time.Time, limit int) (Response, error) {
	url := fmt.Sprintf(
		"%s/data/v2/histoday?fsym=%s&tsym=GBP&toTs=%d&limit=%d",
		c.baseURL, asset, end.Unix(), limit,
	)
	return c.query(ctx, url)
}

// PriceOn extracts the close price for a specific calendar date from a
// response. The comparison is date-only in UTC.
func (r Response) PriceOn(target time.Time) (decimal.Decimal, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for _, candle := range r.Data.Data {
		day := time.Unix(candle.Time, 0).UTC().Truncate(24 * time.Hour)
		if day.Equal(targetDay) && candle.Close.IsPositive() {
			return candle.Close, true
		}
	}
	return decimal.Decimal{}, false
}

// query executes one API request and decodes the response, surfacing API
// level errors as Go errors.
func (c *Client) query(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return Response{}, err
	}

	if response.Status == "Error" {
		return response, fmt.Errorf("price api error: %s", response.Message)
	}

	return response, nil
}
