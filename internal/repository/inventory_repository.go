package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/repository/postgres"
)

// ErrIngredientNotFound is returned when an ingredient id has no row.
var ErrIngredientNotFound = errors.New("ingredient not found")

// IngredientFilter narrows ingredient listings. Zero value lists everything.
type IngredientFilter struct {
	IDs      []string
	Category string
	Supplier string
	Search   string
	Page     int
	PageSize int
}

// InventoryRepository is the persistence surface for ingredients and their
// append-only transaction ledgers.
type InventoryRepository interface {
	ListIngredients(ctx context.Context, filter IngredientFilter) ([]domain.Ingredient, int, error)
	GetIngredient(ctx context.Context, id string) (domain.Ingredient, error)

	// ListTransactions returns the ledger ordered by created_at ascending,
	// which is the order every replay consumer expects. since limits the
	// window; the zero time means the full ledger.
	ListTransactions(ctx context.Context, ingredientID string, since time.Time) ([]domain.StockTransaction, error)
	ListAllTransactions(ctx context.Context, since time.Time) ([]domain.StockTransaction, error)

	// AppendTransaction inserts the ledger entry and moves current_stock in
	// one transaction, serialized per ingredient with a row lock.
	AppendTransaction(ctx context.Context, tx domain.StockTransaction) (domain.StockTransaction, error)

	// UpdatePrice overwrites the ingredient list price.
	UpdatePrice(ctx context.Context, ingredientID string, price float64) error
}

type inventoryRepository struct {
	db *postgres.DB
}

func NewInventoryRepository(db *postgres.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) ListIngredients(ctx context.Context, filter IngredientFilter) ([]domain.Ingredient, int, error) {
	countQuery := `
        SELECT COUNT(*)
        FROM ingredients
        WHERE 1=1
    `

	query := `
        SELECT
            id, name, unit, current_stock, min_stock, price_per_unit,
            supplier, category, created_at, updated_at
        FROM ingredients
        WHERE 1=1
    `

	var args []interface{}
	var conditions []string
	argCounter := 1

	if len(filter.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d::text[])", argCounter))
		args = append(args, filter.IDs)
		argCounter++
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCounter))
		args = append(args, filter.Category)
		argCounter++
	}

	if filter.Supplier != "" {
		conditions = append(conditions, fmt.Sprintf("supplier = $%d", argCounter))
		args = append(args, filter.Supplier)
		argCounter++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argCounter))
		args = append(args, "%"+filter.Search+"%")
		argCounter++
	}

	if len(conditions) > 0 {
		whereClause := " AND " + strings.Join(conditions, " AND ")
		query += whereClause
		countQuery += whereClause
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting ingredients: %w", err)
	}

	query += " ORDER BY name"

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.PageSize, offset)
	}

	var ingredients []domain.Ingredient
	if err := r.db.SelectContext(ctx, &ingredients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing ingredients: %w", err)
	}

	return ingredients, total, nil
}

func (r *inventoryRepository) GetIngredient(ctx context.Context, id string) (domain.Ingredient, error) {
	query := `
        SELECT
            id, name, unit, current_stock, min_stock, price_per_unit,
            supplier, category, created_at, updated_at
        FROM ingredients
        WHERE id = $1
    `

	var ing domain.Ingredient
	if err := r.db.GetContext(ctx, &ing, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Ingredient{}, ErrIngredientNotFound
		}
		return domain.Ingredient{}, fmt.Errorf("error getting ingredient %s: %w", id, err)
	}

	return ing, nil
}

func (r *inventoryRepository) ListTransactions(ctx context.Context, ingredientID string, since time.Time) ([]domain.StockTransaction, error) {
	query := `
        SELECT id, ingredient_id, kind, quantity, unit_price, created_at, reference, notes
        FROM stock_transactions
        WHERE ingredient_id = $1
    `

	args := []interface{}{ingredientID}
	if !since.IsZero() {
		query += " AND created_at >= $2"
		args = append(args, since)
	}

	query += " ORDER BY created_at ASC, id ASC"

	var txs []domain.StockTransaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("error listing transactions for %s: %w", ingredientID, err)
	}

	return txs, nil
}

func (r *inventoryRepository) ListAllTransactions(ctx context.Context, since time.Time) ([]domain.StockTransaction, error) {
	query := `
        SELECT id, ingredient_id, kind, quantity, unit_price, created_at, reference, notes
        FROM stock_transactions
        WHERE 1=1
    `

	var args []interface{}
	if !since.IsZero() {
		query += " AND created_at >= $1"
		args = append(args, since)
	}

	query += " ORDER BY created_at ASC, id ASC"

	var txs []domain.StockTransaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	return txs, nil
}

func (r *inventoryRepository) AppendTransaction(ctx context.Context, t domain.StockTransaction) (domain.StockTransaction, error) {
	if err := t.Validate(); err != nil {
		return domain.StockTransaction{}, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Row lock serializes concurrent appends for the same ingredient so
		// the stock mutation reads a consistent current_stock.
		var current float64
		err := tx.QueryRowContext(ctx,
			`SELECT current_stock FROM ingredients WHERE id = $1 FOR UPDATE`,
			t.IngredientID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrIngredientNotFound
		}
		if err != nil {
			return fmt.Errorf("error locking ingredient %s: %w", t.IngredientID, err)
		}

		next, err := t.NextStock(current)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
            INSERT INTO stock_transactions
                (id, ingredient_id, kind, quantity, unit_price, created_at, reference, notes)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.IngredientID, t.Kind, t.Quantity, t.UnitPrice, t.CreatedAt, t.Reference, t.Notes,
		); err != nil {
			return fmt.Errorf("error inserting transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE ingredients SET current_stock = $1, updated_at = $2 WHERE id = $3`,
			next, t.CreatedAt, t.IngredientID,
		); err != nil {
			return fmt.Errorf("error updating stock for %s: %w", t.IngredientID, err)
		}

		return nil
	})
	if err != nil {
		return domain.StockTransaction{}, err
	}

	return t, nil
}

func (r *inventoryRepository) UpdatePrice(ctx context.Context, ingredientID string, price float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ingredients SET price_per_unit = $1, updated_at = $2 WHERE id = $3`,
		price, time.Now().UTC(), ingredientID,
	)
	if err != nil {
		return fmt.Errorf("error updating price for %s: %w", ingredientID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading update result: %w", err)
	}
	if affected == 0 {
		return ErrIngredientNotFound
	}

	return nil
}
