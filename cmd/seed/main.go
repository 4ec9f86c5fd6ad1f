package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pawonlab/stockwise/internal/domain"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Create the schema and seed the database from CSV files",
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Create the ingredients and stock_transactions tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runSchema,
			},
			{
				Name:  "ingredients",
				Usage: "Seed ingredients from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "CSV file with ingredient rows",
						Value:   "./data/seeds/ingredients.csv",
						EnvVars: []string{"INGREDIENTS_CSV"},
					},
				},
				Action: seedIngredients,
			},
			{
				Name:  "transactions",
				Usage: "Seed stock transactions from a CSV file and replay stock levels",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "CSV file with transaction rows",
						Value:   "./data/seeds/stock_transactions.csv",
						EnvVars: []string{"TRANSACTIONS_CSV"},
					},
				},
				Action: seedTransactions,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func runSchema(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	const ddl = `
        CREATE TABLE IF NOT EXISTS ingredients (
            id             TEXT PRIMARY KEY,
            name           TEXT NOT NULL,
            unit           TEXT NOT NULL DEFAULT '',
            current_stock  DOUBLE PRECISION NOT NULL DEFAULT 0,
            min_stock      DOUBLE PRECISION NOT NULL DEFAULT 0,
            price_per_unit DOUBLE PRECISION NOT NULL DEFAULT 0,
            supplier       TEXT NOT NULL DEFAULT '',
            category       TEXT NOT NULL DEFAULT '',
            created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE IF NOT EXISTS stock_transactions (
            id            TEXT PRIMARY KEY,
            ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
            kind          TEXT NOT NULL,
            quantity      DOUBLE PRECISION NOT NULL,
            unit_price    DOUBLE PRECISION,
            created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            reference     TEXT NOT NULL DEFAULT '',
            notes         TEXT NOT NULL DEFAULT ''
        );

        CREATE INDEX IF NOT EXISTS idx_stock_transactions_ingredient_created
            ON stock_transactions (ingredient_id, created_at);
    `

	if _, err := db.ExecContext(c.Context, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("Schema created")
	return nil
}

// CSV columns: id,name,unit,current_stock,min_stock,price_per_unit,supplier,category
func seedIngredients(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	idx, err := columnIndex(header, "id", "name", "unit", "current_stock", "min_stock", "price_per_unit", "supplier", "category")
	if err != nil {
		return err
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
        INSERT INTO ingredients
            (id, name, unit, current_stock, min_stock, price_per_unit, supplier, category)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            unit = EXCLUDED.unit,
            current_stock = EXCLUDED.current_stock,
            min_stock = EXCLUDED.min_stock,
            price_per_unit = EXCLUDED.price_per_unit,
            supplier = EXCLUDED.supplier,
            category = EXCLUDED.category,
            updated_at = NOW()
    `

	rowCount := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		id := strings.TrimSpace(record[idx["id"]])
		if id == "" {
			id = uuid.NewString()
		}

		currentStock, err := parseFloat(record[idx["current_stock"]])
		if err != nil {
			return fmt.Errorf("invalid current_stock for %s: %w", id, err)
		}
		minStock, err := parseFloat(record[idx["min_stock"]])
		if err != nil {
			return fmt.Errorf("invalid min_stock for %s: %w", id, err)
		}
		price, err := parseFloat(record[idx["price_per_unit"]])
		if err != nil {
			return fmt.Errorf("invalid price_per_unit for %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, query,
			id,
			strings.TrimSpace(record[idx["name"]]),
			strings.TrimSpace(record[idx["unit"]]),
			currentStock,
			minStock,
			price,
			strings.TrimSpace(record[idx["supplier"]]),
			strings.TrimSpace(record[idx["category"]]),
		); err != nil {
			return fmt.Errorf("failed to upsert ingredient %s: %w", id, err)
		}

		rowCount++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Successfully seeded ingredients (%d records)\n", rowCount)
	return nil
}

// CSV columns: id,ingredient_id,kind,quantity,unit_price,created_at,reference,notes
// Rows must be in chronological order; stock levels are replayed after insert.
func seedTransactions(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	idx, err := columnIndex(header, "id", "ingredient_id", "kind", "quantity", "unit_price", "created_at", "reference", "notes")
	if err != nil {
		return err
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insertQuery = `
        INSERT INTO stock_transactions
            (id, ingredient_id, kind, quantity, unit_price, created_at, reference, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING
    `

	// Replayed per ingredient after all rows are read.
	stocks := make(map[string]float64)
	rowCount := 0

	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		kind, ok := domain.ParseTransactionKind(record[idx["kind"]])
		if !ok {
			return fmt.Errorf("unknown transaction kind %q", record[idx["kind"]])
		}

		quantity, err := parseFloat(record[idx["quantity"]])
		if err != nil {
			return fmt.Errorf("invalid quantity: %w", err)
		}

		var unitPrice sql.NullFloat64
		if raw := strings.TrimSpace(record[idx["unit_price"]]); raw != "" {
			price, err := parseFloat(raw)
			if err != nil {
				return fmt.Errorf("invalid unit_price: %w", err)
			}
			unitPrice = sql.NullFloat64{Float64: price, Valid: true}
		}

		createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(record[idx["created_at"]]))
		if err != nil {
			return fmt.Errorf("invalid created_at: %w", err)
		}

		id := strings.TrimSpace(record[idx["id"]])
		if id == "" {
			id = uuid.NewString()
		}
		ingredientID := strings.TrimSpace(record[idx["ingredient_id"]])

		entry := domain.StockTransaction{
			ID:           id,
			IngredientID: ingredientID,
			Kind:         kind,
			Quantity:     quantity,
		}
		if _, ok := stocks[ingredientID]; !ok {
			stocks[ingredientID] = 0
		}
		next, err := entry.NextStock(stocks[ingredientID])
		if err != nil {
			return fmt.Errorf("invalid transaction %s: %w", id, err)
		}
		stocks[ingredientID] = next

		if _, err := tx.ExecContext(ctx, insertQuery,
			id, ingredientID, string(kind), quantity, unitPrice, createdAt,
			strings.TrimSpace(record[idx["reference"]]),
			strings.TrimSpace(record[idx["notes"]]),
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", id, err)
		}

		rowCount++
		if rowCount%5000 == 0 {
			log.Printf("Seeded %d transactions...", rowCount)
		}
	}

	for ingredientID, stock := range stocks {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ingredients SET current_stock = $1, updated_at = NOW() WHERE id = $2`,
			stock, ingredientID,
		); err != nil {
			return fmt.Errorf("failed to update stock for %s: %w", ingredientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Successfully seeded stock_transactions (%d records, %d ingredients replayed)\n", rowCount, len(stocks))
	return nil
}

func columnIndex(header []string, columns ...string) (map[string]int, error) {
	idx := make(map[string]int, len(columns))
	for _, col := range columns {
		found := -1
		for i, h := range header {
			if strings.TrimSpace(h) == col {
				found = i
				break
			}
		}
		if found == -1 {
			return nil, fmt.Errorf("column %q not found in header: %v", col, header)
		}
		idx[col] = found
	}
	return idx, nil
}

func parseFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	cleaned := strings.ReplaceAll(value, ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
