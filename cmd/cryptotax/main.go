// Command cryptotax runs a one-shot capital gains report from the command
// line. It reads an export file (or the stored transaction set), runs the
// full calculation and prints per-year summaries, holdings and the audit
// outcome.
//
// Usage:
//
//	cryptotax [flags] [file]
//
// With a file argument the file is parsed and imported before the report
// runs; without one the report covers what is already stored.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/sterlingtax/cryptotax-backend/internal/database"
	"github.com/sterlingtax/cryptotax-backend/internal/price"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
	"github.com/sterlingtax/cryptotax-backend/internal/service"
	"github.com/sterlingtax/cryptotax-backend/internal/tax"
	"github.com/sterlingtax/cryptotax-backend/internal/validation"
)

func main() {
	var (
		dbPath    = flag.String("db", "./data/cryptotax.db", "path to the SQLite database")
		source    = flag.String("source", "records", "parser for the input file")
		year      = flag.String("year", "", "report a single tax year (by its ending year)")
		summary   = flag.Bool("summary", false, "summary only: skip disposal detail and holdings valuation")
		bnb       = flag.Int("bnb", tax.DefaultBedAndBreakfastDays, "bed and breakfast matching window in days")
		yearStart = flag.String("yearstart", "", "tax year start as DD-MM (default 06-04)")
		transfers = flag.String("transfers", "", "transfer policy: include, exclude-tax or exclude-all")
		skipAudit = flag.Bool("skip-audit", false, "do not fail when the integrity check fails")
	)
	flag.Parse()

	opts, err := validation.ParseEngineOptions(*yearStart, fmt.Sprint(*bnb), *transfers)
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	transactionRepo := repository.NewTransactionRepository(db)
	priceService := price.NewService(repository.NewPriceRepository(db), transactionRepo, price.NewClient())
	importService := service.NewImportService(transactionRepo)
	taxService := service.NewTaxService(transactionRepo, priceService)

	ctx := context.Background()

	if filename := flag.Arg(0); filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			log.Fatalf("Failed to open input file: %v", err)
		}
		imported, err := importService.Import(ctx, *source, file)
		file.Close()
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("import: %d transactions (%d duplicates removed)\n", imported.Imported, imported.Removed)
	}

	if *year != "" {
		reportYear, err := validation.ParseTaxYear(*year)
		if err != nil {
			log.Fatalf("Invalid tax year: %v", err)
		}
		yearSummary, err := taxService.YearReport(ctx, reportYear, opts)
		if err != nil {
			log.Fatalf("Calculation failed: %v", err)
		}
		printYear(yearSummary, *summary)
		return
	}

	result, err := taxService.Report(ctx, opts, !*summary)
	if err != nil {
		log.Fatalf("Calculation failed: %v", err)
	}

	years := make([]int, 0, len(result.Years))
	for y := range result.Years {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		printYear(result.Years[y], *summary)
	}

	if !*summary {
		printHoldings(result.Holdings)
	}

	for _, warning := range result.Warnings {
		fmt.Printf("warning [%s]: %s\n", warning.Kind, warning.Detail)
	}

	fmt.Printf("integrity check: %s\n", passedLabel(result.Audit.Passed))
	if !result.Audit.Passed {
		for _, mismatch := range result.Audit.Mismatches {
			fmt.Printf("  %s: audit %s, pool %s\n", mismatch.Asset, mismatch.Audit, mismatch.Pool)
		}
		if !*skipAudit {
			os.Exit(1)
		}
	}
}

func printYear(y *tax.YearSummary, summaryOnly bool) {
	fmt.Printf("tax year %d-%d\n", y.Year-1, y.Year)
	if !y.Supported {
		fmt.Println("  (year outside the annual exemption table; no taxable gain computed)")
	}
	fmt.Printf("  disposals %d, proceeds %s, allowable costs %s\n", len(y.Disposals), y.Proceeds, y.AllowableCosts)
	fmt.Printf("  gains %s, losses %s, net gain %s\n", y.Gains, y.Losses, y.NetGain)
	fmt.Printf("  annual exemption %s, taxable gain %s\n", y.AnnualExemption, y.TaxableGain)
	if y.IncomeTotal.IsPositive() {
		fmt.Printf("  income %s\n", y.IncomeTotal)
	}

	if summaryOnly {
		return
	}
	for _, d := range y.Disposals {
		fmt.Printf("  %s %s %s %s: cost %s, proceeds %s, fees %s, gain %s [%s]\n",
			d.Date.Format("2006-01-02"), d.Type, d.Quantity, d.Asset,
			d.Cost, d.Proceeds, d.Fees, d.Gain, d.Rule)
	}
}

func printHoldings(snap tax.HoldingsSnapshot) {
	assets := make([]string, 0, len(snap))
	for asset := range snap {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	fmt.Printf("holdings at %s\n", time.Now().UTC().Format("2006-01-02"))
	for _, asset := range assets {
		h := snap[asset]
		if h.ValueGBP != nil {
			fmt.Printf("  %s: %s (cost %s, value %s)\n", h.Asset, h.Quantity, h.Cost, h.ValueGBP)
		} else {
			fmt.Printf("  %s: %s (cost %s)\n", h.Asset, h.Quantity, h.Cost)
		}
	}
}

func passedLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
