package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Movement types recorded in the stock_movements audit trail.
const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementAdjustment = "adjustment"
	MovementReturn     = "return"
)

var ErrProductNotFound = errors.New("product not found")

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so a movement can
// join a caller's transaction or run standalone.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Movement struct {
	ProductID     int64
	Quantity      int64 // signed delta
	MovementType  string
	ReferenceType string
	ReferenceID   *int64
	ActorID       int64
	Notes         *string
}

type Result struct {
	PreviousQuantity int64
	NewQuantity      int64
}

// Ledger is the only sanctioned write path for products.stock_quantity.
// Every change it makes is paired with an immutable stock_movements row.
type Ledger struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
}

func New(db *pgxpool.Pool, logger *zap.Logger) *Ledger {
	return &Ledger{DB: db, Logger: logger}
}

// NormalizeQuantity applies the sign convention for a movement type to a
// caller-supplied magnitude: "out" deltas are negative, "in" and "return"
// deltas are positive. Adjustments keep the caller's sign.
func NormalizeQuantity(movementType string, quantity int64) int64 {
	switch movementType {
	case MovementOut:
		if quantity > 0 {
			return -quantity
		}
	case MovementIn, MovementReturn:
		if quantity < 0 {
			return -quantity
		}
	}
	return quantity
}

func ValidMovementType(movementType string) bool {
	switch movementType {
	case MovementIn, MovementOut, MovementAdjustment, MovementReturn:
		return true
	}
	return false
}

// Apply mutates the product's stock and appends the movement row using the
// given querier. When q is a transaction the caller owns the commit
// boundary; Apply never commits or rolls back on its own.
func (l *Ledger) Apply(ctx context.Context, q Querier, m Movement) (Result, error) {
	var previous int64
	var productName string
	err := q.QueryRow(ctx, `
		select stock_quantity, name from products where id = $1
	`, m.ProductID).Scan(&previous, &productName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrProductNotFound
		}
		return Result{}, err
	}

	newQuantity := previous + m.Quantity

	if _, err := q.Exec(ctx, `
		update products set stock_quantity = $1, updated_at = now() where id = $2
	`, newQuantity, m.ProductID); err != nil {
		return Result{}, err
	}

	if _, err := q.Exec(ctx, `
		insert into stock_movements
			(product_id, movement_type, quantity, reference_type, reference_id,
			 previous_quantity, new_quantity, notes, created_by)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, m.ProductID, m.MovementType, m.Quantity, m.ReferenceType, m.ReferenceID,
		previous, newQuantity, m.Notes, m.ActorID); err != nil {
		return Result{}, err
	}

	l.Logger.Debug("stock updated",
		zap.Int64("productId", m.ProductID),
		zap.String("product", productName),
		zap.Int64("previous", previous),
		zap.Int64("new", newQuantity),
	)

	return Result{PreviousQuantity: previous, NewQuantity: newQuantity}, nil
}

// ApplyStandalone wraps Apply in its own transaction for callers outside the
// order transaction engine (e.g. manual stock adjustments).
func (l *Ledger) ApplyStandalone(ctx context.Context, m Movement) (Result, error) {
	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := l.Apply(ctx, tx, m)
	if err != nil {
		return Result{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}
	return result, nil
}

type Availability struct {
	Available    bool   `json:"available"`
	CurrentStock int64  `json:"currentStock"`
	Message      string `json:"message"`
}

// CheckAvailability is an advisory read; the ledger itself never enforces a
// stock floor and negative resulting stock is permitted.
func (l *Ledger) CheckAvailability(ctx context.Context, productID int64, required int64) (Availability, error) {
	var current int64
	err := l.DB.QueryRow(ctx, `
		select stock_quantity from products
		where id = $1 and is_active = true and deleted_at is null
	`, productID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Availability{Available: false, Message: "Product not found or inactive"}, nil
		}
		return Availability{}, err
	}

	if current >= required {
		return Availability{Available: true, CurrentStock: current, Message: "Stock available"}, nil
	}
	return Availability{Available: false, CurrentStock: current, Message: "Insufficient stock"}, nil
}
