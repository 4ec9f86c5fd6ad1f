package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/engine/analyzer"
	"github.com/pawonlab/stockwise/internal/engine/reorder"
)

// Batch analysis report: loads the full ledger, runs the analyzer across all
// ingredients, and writes the bundles as JSON.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "analyze",
		Usage: "Run the full inventory analysis and write the report as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Usage:    "Database connection string",
				Required: true,
				EnvVars:  []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output file (default stdout)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Analyzer worker count",
				Value: 8,
			},
			&cli.IntFlag{
				Name:  "window-days",
				Usage: "Trailing usage window in days",
				Value: 30,
			},
		},
		Action: runAnalysis,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAnalysis(c *cli.Context) error {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	var ingredients []domain.Ingredient
	if err := db.SelectContext(ctx, &ingredients, `
        SELECT id, name, unit, current_stock, min_stock, price_per_unit,
               supplier, category, created_at, updated_at
        FROM ingredients
        ORDER BY name
    `); err != nil {
		return err
	}

	var txs []domain.StockTransaction
	if err := db.SelectContext(ctx, &txs, `
        SELECT id, ingredient_id, kind, quantity, unit_price, created_at, reference, notes
        FROM stock_transactions
        ORDER BY created_at ASC, id ASC
    `); err != nil {
		return err
	}

	advisor := reorder.NewAdvisor(reorder.WithWindowDays(c.Int("window-days")))
	start := time.Now()
	results, err := analyzer.New(advisor, c.Int("workers")).Analyze(ctx, ingredients, txs)
	if err != nil {
		return err
	}
	log.Printf("Analyzed %d ingredients (%d transactions) in %v", len(results), len(txs), time.Since(start))

	dest := os.Stdout
	if out := c.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		dest = f
	}

	enc := json.NewEncoder(dest)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
