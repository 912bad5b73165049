package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
	"github.com/sterlingtax/cryptotax-backend/internal/tax"
)

// TaxService runs the capital gains engine over the stored transaction set.
// Every report is computed fresh from the full history; nothing is cached
// between runs.
type TaxService struct {
	transactionRepo *repository.TransactionRepository
	prices          tax.PriceSource
}

// NewTaxService creates a new TaxService with the provided repository and
// price source dependencies.
func NewTaxService(transactionRepo *repository.TransactionRepository, prices tax.PriceSource) *TaxService {
	return &TaxService{
		transactionRepo: transactionRepo,
		prices:          prices,
	}
}

// Report runs a full calculation over all stored transactions. When
// valueHoldings is set the final holdings are additionally priced at today's
// valuation; summary reports skip that to avoid price lookups.
func (s *TaxService) Report(ctx context.Context, opts tax.Options, valueHoldings bool) (*tax.Result, error) {
	calc, err := tax.NewCalculator(opts, s.prices)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactionRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveTransactions, err)
	}

	result, err := calc.Run(ctx, txs)
	if err != nil {
		// Both sentinels stay matchable: the run failure and its cause.
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToCalculate, err)
	}

	if valueHoldings {
		calc.ValueHoldings(ctx, result.Holdings, time.Now().UTC())
	}
	return result, nil
}

// YearReport runs a full calculation and returns the summary for one tax
// year. The whole history still has to be processed: pooled cost carried
// into the year depends on every earlier transaction.
func (s *TaxService) YearReport(ctx context.Context, year int, opts tax.Options) (*tax.YearSummary, error) {
	min, max := tax.SupportedYears()
	if year < min || year > max {
		return nil, fmt.Errorf("%w: %d (supported %d-%d)", apperrors.ErrInvalidTaxYear, year, min, max)
	}

	result, err := s.Report(ctx, opts, false)
	if err != nil {
		return nil, err
	}

	summary, ok := result.Years[year]
	if !ok {
		// A year with no disposals and no income is a valid empty summary.
		// Income is initialized so the response shape matches active years.
		summary = &tax.YearSummary{
			Year:            year,
			AnnualExemption: tax.AnnualExemption(year),
			Income:          make(map[model.TransactionType]decimal.Decimal),
			Supported:       true,
		}
	}
	return summary, nil
}

// Holdings returns the final Section 104 pools valued at today's prices.
func (s *TaxService) Holdings(ctx context.Context, opts tax.Options) (tax.HoldingsSnapshot, error) {
	result, err := s.Report(ctx, opts, true)
	if err != nil {
		return nil, err
	}
	return result.Holdings, nil
}

// Audit returns only the integrity cross-check of a full run.
func (s *TaxService) Audit(ctx context.Context, opts tax.Options) (*tax.AuditResult, error) {
	result, err := s.Report(ctx, opts, false)
	if err != nil {
		return nil, err
	}
	return &result.Audit, nil
}
