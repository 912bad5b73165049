package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/price"
)

// StubPriceSource is an in-memory tax.PriceSource for engine and service
// tests. Prices are keyed by asset only: the same price applies to every
// date. Unlisted assets return apperrors.ErrPriceNotAvailable.
type StubPriceSource struct {
	// Prices maps asset symbol to its GBP unit price.
	Prices map[string]decimal.Decimal
	// Lookups tracks how many times HistoricValueGBP was called.
	Lookups int
}

// NewStubPriceSource creates a stub with the given asset prices.
//
// Example usage:
//
//	prices := testutil.NewStubPriceSource(map[string]string{"BTC": "100", "ETH": "10"})
func NewStubPriceSource(prices map[string]string) *StubPriceSource {
	parsed := make(map[string]decimal.Decimal, len(prices))
	for asset, p := range prices {
		parsed[asset] = MustDecimal(p)
	}
	return &StubPriceSource{Prices: parsed}
}

// HistoricValueGBP returns the configured price for asset regardless of date.
func (s *StubPriceSource) HistoricValueGBP(_ context.Context, asset string, _ time.Time) (decimal.Decimal, error) {
	s.Lookups++
	p, ok := s.Prices[asset]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", apperrors.ErrPriceNotAvailable, asset)
	}
	return p, nil
}

// PriceAPIStub is a fake price API server returning canned daily candles.
// Point a price.Client at its URL with price.NewClientWithBaseURL.
type PriceAPIStub struct {
	// Candles is the response candle list, keyed by asset symbol.
	Candles map[string][]price.Candle
	// Requests tracks how many API calls the stub served.
	Requests int
	// Fail makes every request answer with a CryptoCompare-style error.
	Fail bool

	server *httptest.Server
}

// NewPriceAPIStub starts a stub price API server. The server is shut down
// when the test completes.
func NewPriceAPIStub(t *testing.T) *PriceAPIStub {
	t.Helper()

	stub := &PriceAPIStub{Candles: make(map[string][]price.Candle)}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.server.Close)
	return stub
}

// URL returns the stub server's base URL.
func (s *PriceAPIStub) URL() string {
	return s.server.URL
}

// AddCandle registers a daily close price for an asset and date.
func (s *PriceAPIStub) AddCandle(asset string, date time.Time, closeGBP string) {
	s.Candles[asset] = append(s.Candles[asset], price.Candle{
		Time:  date.UTC().Truncate(24 * time.Hour).Unix(),
		Close: MustDecimal(closeGBP),
	})
}

func (s *PriceAPIStub) handle(w http.ResponseWriter, r *http.Request) {
	s.Requests++

	var response price.Response
	if s.Fail {
		response = price.Response{Status: "Error", Message: "market does not exist"}
	} else {
		asset := r.URL.Query().Get("fsym")
		response = price.Response{
			Status: "Success",
			Data:   price.ResponseData{Data: s.Candles[asset]},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
