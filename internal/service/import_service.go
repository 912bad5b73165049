package service

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
	"github.com/sterlingtax/cryptotax-backend/internal/parsers"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
	"github.com/sterlingtax/cryptotax-backend/internal/tax"
)

// ImportService handles transaction file imports: parse, strip gift
// duplicates, assign import sequence numbers, persist.
type ImportService struct {
	transactionRepo *repository.TransactionRepository
}

// NewImportService creates a new ImportService with the provided repository dependencies.
func NewImportService(transactionRepo *repository.TransactionRepository) *ImportService {
	return &ImportService{
		transactionRepo: transactionRepo,
	}
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Source   string        `json:"source"`
	Imported int           `json:"imported"`
	Removed  int           `json:"removed"` // gift duplicates dropped before storage
	Warnings []tax.Warning `json:"warnings,omitempty"`
}

// Import parses an export file from the named source and stores its
// transactions. Deposits and withdrawals that duplicate gift or income
// records are dropped before storage so they never reach the engine.
func (s *ImportService) Import(_ context.Context, source string, file io.Reader) (*ImportResult, error) {
	parser, err := parsers.Get(source)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrImportFailure, err)
	}

	// Export files are not always chronological; duplicate detection and
	// sequence assignment both need time order.
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Timestamp.Before(parsed[j].Timestamp)
	})

	kept, warnings := tax.RemoveGiftDuplicates(parsed)

	seq, err := s.transactionRepo.NextSequence()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToStoreTransactions, err)
	}
	for i := range kept {
		kept[i].ID = uuid.New().String()
		kept[i].Sequence = seq + int64(i)
	}

	if err := s.transactionRepo.InsertBatch(kept); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToStoreTransactions, err)
	}

	return &ImportResult{
		Source:   parser.Name(),
		Imported: len(kept),
		Removed:  len(parsed) - len(kept),
		Warnings: warnings,
	}, nil
}

// Transactions returns every stored transaction in engine processing order.
func (s *ImportService) Transactions() ([]model.Transaction, error) {
	txs, err := s.transactionRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveTransactions, err)
	}
	return txs, nil
}

// Count returns the number of stored transactions.
func (s *ImportService) Count() (int, error) {
	return s.transactionRepo.Count()
}

// Clear deletes every stored transaction.
func (s *ImportService) Clear() error {
	return s.transactionRepo.DeleteAll()
}
