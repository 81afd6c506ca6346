package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/config"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	infraBQ "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/logger"
)

func main() {
	cfg := config.Load(logger.New())
	log := logger.NewWithLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "receipts":
		runReceipts(cfg, log)
	case "transactions":
		runTransactions(cfg, log)
	case "summary":
		runSummary(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Extractor CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  receipts      List the most recently saved receipts")
	fmt.Println("  transactions  List saved statement transactions in a date range")
	fmt.Println("  summary       Total income and expenses in a date range")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) *infraBQ.BigQueryRepository {
	if !cfg.PersistenceEnabled() {
		log.Fatal().Msg("Error: BIGQUERY_PROJECT is required")
	}
	repo, err := infraBQ.NewBigQueryRepository(ctx, infraBQ.Dataset{
		ProjectID: cfg.BigQueryProject,
		DatasetID: cfg.BigQueryDataset,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	return repo
}

func runReceipts(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("receipts", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum number of receipts to show")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := openRepository(ctx, cfg, log)
	defer repo.Close()

	receipts, err := repo.ListReceipts(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list receipts")
	}

	fmt.Printf("\n=== Receipts (%d) ===\n", len(receipts))
	for i, r := range receipts {
		fmt.Printf("\n%d. %s\n", i+1, r.MerchantName)
		fmt.Printf("   Date:       %s\n", r.TransactionDate)
		fmt.Printf("   Amount:     %s %s\n", r.TotalAmount.StringFixed(2), r.Currency)
		fmt.Printf("   Category:   %s\n", r.Category)
		fmt.Printf("   Confidence: %s\n", r.ConfidenceLabel)
		if r.InvoiceNumber != "" {
			fmt.Printf("   Invoice:    %s\n", r.InvoiceNumber)
		}
	}
	fmt.Println()
}

func runTransactions(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	start, end := dateRangeFlags(fs)
	fs.Parse(os.Args[2:])

	from, to := parseRange(*start, *end, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := openRepository(ctx, cfg, log)
	defer repo.Close()

	records, err := repo.TransactionsBetween(ctx, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	fmt.Printf("\n=== Transactions %s to %s (%d) ===\n", from, to, len(records))
	for i, rec := range records {
		fmt.Printf("\n%d. %s\n", i+1, rec.Description)
		fmt.Printf("   Date:     %s\n", rec.Date)
		fmt.Printf("   Amount:   %s (%s)\n", rec.Amount.StringFixed(2), rec.Type)
		if rec.Category != "" {
			fmt.Printf("   Category: %s\n", rec.Category)
		}
	}
	fmt.Println()
}

func runSummary(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	start, end := dateRangeFlags(fs)
	fs.Parse(os.Args[2:])

	from, to := parseRange(*start, *end, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := openRepository(ctx, cfg, log)
	defer repo.Close()

	records, err := repo.TransactionsBetween(ctx, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	s := extraction.Summarize(records)

	fmt.Printf("\n=== Summary %s to %s ===\n", from, to)
	fmt.Printf("Transactions: %d\n", s.TransactionCount)
	fmt.Printf("Income:       %s\n", s.TotalIncome.StringFixed(2))
	fmt.Printf("Expenses:     %s\n", s.TotalExpense.StringFixed(2))
	fmt.Printf("Net:          %s\n", s.NetBalance.StringFixed(2))

	fmt.Println("\nExpenses by category:")
	categories := make([]string, 0, len(s.ExpenseByCategory))
	for c := range s.ExpenseByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Printf("  %-20s %s\n", c, s.ExpenseByCategory[c].StringFixed(2))
	}
	fmt.Println()
}

func dateRangeFlags(fs *flag.FlagSet) (start, end *string) {
	start = fs.String("start", "", "first date, YYYY-MM-DD (default one year before end)")
	end = fs.String("end", "", "last date, YYYY-MM-DD (default today)")
	return start, end
}

func parseRange(start, end string, log zerolog.Logger) (civil.Date, civil.Date) {
	to := civil.DateOf(time.Now())
	if end != "" {
		d, err := civil.ParseDate(end)
		if err != nil {
			log.Fatal().Err(err).Str("end", end).Msg("Error: invalid --end date")
		}
		to = d
	}

	from := civil.DateOf(to.In(time.UTC).AddDate(-1, 0, 0))
	if start != "" {
		d, err := civil.ParseDate(start)
		if err != nil {
			log.Fatal().Err(err).Str("start", start).Msg("Error: invalid --start date")
		}
		from = d
	}

	if to.Before(from) {
		log.Fatal().Msg("Error: --start must not be after --end")
	}
	return from, to
}
