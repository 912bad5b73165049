package price

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
)

// backfillConcurrency caps parallel API fetches. Price work is independent
// per asset, so assets are fetched concurrently.
const backfillConcurrency = 4

// AssetSource lists the cryptoassets the transaction set currently touches.
// Satisfied by repository.TransactionRepository.
type AssetSource interface {
	Assets() ([]string, error)
}

// Service is the engine's price source: cache first, remote API second.
// A valuation that neither the cache nor the API can provide surfaces
// apperrors.ErrPriceNotAvailable, which aborts the tax run.
type Service struct {
	repo   *repository.PriceRepository
	held   AssetSource
	client *Client
}

// NewService creates a price service over the given cache repository, the
// source of held assets to keep refreshed, and the API client.
func NewService(repo *repository.PriceRepository, held AssetSource, client *Client) *Service {
	return &Service{repo: repo, held: held, client: client}
}

// HistoricValueGBP returns the GBP value of one unit of asset on the
// calendar date containing at. Implements tax.PriceSource.
func (s *Service) HistoricValueGBP(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	date := at.UTC().Truncate(24 * time.Hour)

	cached, err := s.repo.Get(asset, date)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrPriceNotAvailable) {
		return decimal.Decimal{}, err
	}

	response, err := s.client.QueryDailyHistory(ctx, asset, date.AddDate(0, 0, 1), 2)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s on %s: %v", apperrors.ErrPriceNotAvailable, asset, date.Format("2006-01-02"), err)
	}

	unit, ok := response.PriceOn(date)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s on %s", apperrors.ErrPriceNotAvailable, asset, date.Format("2006-01-02"))
	}

	if err := s.repo.Save(asset, date, unit); err != nil {
		return decimal.Decimal{}, err
	}
	return unit, nil
}

// Backfill fetches and caches daily prices for the given assets across a
// date range. Assets are independent, so they are fetched in parallel.
func (s *Service) Backfill(ctx context.Context, assets []string, from, to time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)

	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			days := int(to.Sub(from).Hours()/24) + 1
			response, err := s.client.QueryDailyHistory(ctx, asset, to, days)
			if err != nil {
				return fmt.Errorf("backfill %s: %w", asset, err)
			}
			for _, candle := range response.Data.Data {
				if !candle.Close.IsPositive() {
					continue
				}
				day := time.Unix(candle.Time, 0).UTC().Truncate(24 * time.Hour)
				if day.Before(from) || day.After(to) {
					continue
				}
				if err := s.repo.Save(asset, day, candle.Close); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// RefreshLatest updates today's cached price for every asset appearing in
// the transaction set, plus anything already cached. Run on a schedule so
// holdings valuations stay current; a held asset that was never priced
// before is picked up here too.
func (s *Service) RefreshLatest(ctx context.Context) {
	held, err := s.held.Assets()
	if err != nil {
		log.Printf("price refresh: %v", err)
		return
	}
	cached, err := s.repo.Assets()
	if err != nil {
		log.Printf("price refresh: %v", err)
		return
	}

	seen := make(map[string]bool)
	var assets []string
	for _, asset := range append(held, cached...) {
		if !seen[asset] {
			seen[asset] = true
			assets = append(assets, asset)
		}
	}
	if len(assets) == 0 {
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if err := s.Backfill(ctx, assets, today, today); err != nil {
		log.Printf("price refresh: %v", err)
		return
	}
	log.Printf("price refresh: updated %d assets", len(assets))
}
