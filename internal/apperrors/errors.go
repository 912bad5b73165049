package apperrors

import "errors"

// Data source errors. A missing price makes a correct cost basis impossible,
// so these abort the whole calculation run.
var (
	// ErrPriceNotAvailable indicates that no historic GBP valuation exists
	// for the requested asset and timestamp.
	ErrPriceNotAvailable = errors.New("no price data available")

	// ErrAssetNotFound indicates that the price source does not know the asset at all.
	ErrAssetNotFound = errors.New("asset not found")
)

// Structural errors represent malformed input that should have been rejected
// at import. They are propagated, never silently skipped.
var (
	// ErrUnknownTransactionType indicates a transaction type the normalizer
	// does not recognize.
	ErrUnknownTransactionType = errors.New("unknown transaction type")

	// ErrMissingLeg indicates a transaction whose legs do not match its type
	// (e.g. a TRADE without both a buy and a sell leg).
	ErrMissingLeg = errors.New("transaction leg missing for type")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Configuration validation errors. Rejected before any processing starts.
var (
	// ErrInvalidTaxYearStart indicates an impossible tax year start day/month.
	ErrInvalidTaxYearStart = errors.New("invalid tax year start date")

	// ErrInvalidWindow indicates a bed-and-breakfast window below one day.
	ErrInvalidWindow = errors.New("bed and breakfast window must be at least 1 day")

	// ErrInvalidTransferPolicy indicates an unrecognized transfer handling policy.
	ErrInvalidTransferPolicy = errors.New("invalid transfer policy")

	// ErrInvalidTaxYear indicates a requested tax year outside the supported range.
	ErrInvalidTaxYear = errors.New("tax year not supported")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")
)

// Import errors.
var (
	// ErrUnknownSource indicates that no parser is registered for the
	// requested import source.
	ErrUnknownSource = errors.New("no parser registered for source")

	// ErrInvalidCSVHeaders indicates that an uploaded file does not match
	// the expected column layout for its source.
	ErrInvalidCSVHeaders = errors.New("invalid CSV headers")

	// ErrImportFailure indicates one or more rows could not be parsed.
	ErrImportFailure = errors.New("import failed")
)

// Operation failure errors represent system-level failures when retrieving
// or processing data.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToStoreTransactions    = errors.New("failed to store transactions")
	ErrFailedToRetrievePrice        = errors.New("failed to retrieve price")
	ErrFailedToCalculate            = errors.New("failed to calculate tax report")
)
