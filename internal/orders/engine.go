package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pos-order-service/internal/stock"
	"pos-order-service/internal/utils"
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Engine owns the order lifecycle. Every state transition runs in a single
// database transaction; events are emitted only after the commit succeeds.
type Engine struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Stock  *stock.Ledger
	Sink   EventSink
}

func NewEngine(db *pgxpool.Pool, logger *zap.Logger, ledger *stock.Ledger, sink EventSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{DB: db, Logger: logger, Stock: ledger, Sink: sink}
}

// resolvedItem is an ItemInput joined against the product catalog with all
// monetary fields recomputed server side.
type resolvedItem struct {
	ProductID      int64
	ProductName    string
	ProductImage   *string
	Quantity       int64
	UnitPrice      float64
	Subtotal       float64
	DiscountAmount float64
	Total          float64
	Notes          *string
}

func (e *Engine) resolveItems(ctx context.Context, q querier, inputs []ItemInput) ([]resolvedItem, error) {
	resolved := make([]resolvedItem, 0, len(inputs))
	for _, in := range inputs {
		var (
			name  string
			image pgtype.Text
			price pgtype.Numeric
		)
		err := q.QueryRow(ctx, `
			select name, image_emoji, price from products
			where id = $1 and is_active = true and deleted_at is null
		`, in.ProductID).Scan(&name, &image, &price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, in.ProductID)
			}
			return nil, err
		}

		unitPrice := utils.NumericToFloat64(price)
		subtotal := utils.Round2(unitPrice * float64(in.Quantity))
		total := utils.Round2(subtotal - in.DiscountAmount)

		item := resolvedItem{
			ProductID:      in.ProductID,
			ProductName:    name,
			Quantity:       in.Quantity,
			UnitPrice:      unitPrice,
			Subtotal:       subtotal,
			DiscountAmount: in.DiscountAmount,
			Total:          total,
			Notes:          in.Notes,
		}
		if image.Valid {
			v := image.String
			item.ProductImage = &v
		}
		resolved = append(resolved, item)
	}
	return resolved, nil
}

// orderTotals sums resolved items and applies the flat tax rate.
func orderTotals(items []resolvedItem) (subtotal, tax, total float64) {
	for _, it := range items {
		subtotal += it.Total
	}
	subtotal = utils.Round2(subtotal)
	tax = utils.Round2(subtotal * TaxRate)
	total = utils.Round2(subtotal + tax)
	return subtotal, tax, total
}

// changeDue is the cash handed back at settlement. A shortfall yields a
// negative value; completion accepts underpayment rather than rejecting it.
func changeDue(received, total float64) float64 {
	return utils.Round2(received - total)
}

func insertItems(ctx context.Context, q querier, orderID int64, items []resolvedItem) error {
	for _, it := range items {
		_, err := q.Exec(ctx, `
			insert into order_items
				(order_id, product_id, product_name, product_image, quantity,
				 unit_price, subtotal, discount_amount, total, notes)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, orderID, it.ProductID, it.ProductName, it.ProductImage, it.Quantity,
			it.UnitPrice, it.Subtotal, it.DiscountAmount, it.Total, it.Notes)
		if err != nil {
			return err
		}
	}
	return nil
}

// Create opens a new pending order. The order number, line amounts and order
// totals are all computed here regardless of what the caller sent.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}

	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	orderNumber, err := e.nextOrderNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	items, err := e.resolveItems(ctx, tx, p.Items)
	if err != nil {
		return nil, err
	}
	subtotal, tax, total := orderTotals(items)

	var orderID int64
	err = tx.QueryRow(ctx, `
		insert into orders
			(order_number, table_id, user_id, status, payment_status,
			 subtotal, tax_rate, tax_amount, discount_amount, total, notes)
		values ($1,$2,$3,'pending','unpaid',$4,$5,$6,0,$7,$8)
		returning id
	`, orderNumber, p.TableID, p.UserID, subtotal, TaxRate, tax, total, p.Notes).Scan(&orderID)
	if err != nil {
		return nil, err
	}

	if err := insertItems(ctx, tx, orderID, items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	order, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	e.Logger.Info("order created",
		zap.Int64("orderId", orderID),
		zap.String("orderNumber", orderNumber),
		zap.Float64("total", total),
	)

	pending, _ := e.PendingCount(ctx)
	e.Sink.Emit(EventOrderCreated, map[string]any{
		"order":        order,
		"pendingCount": pending,
	})
	e.emitTableStatus(ctx, p.TableID)

	return order, nil
}

// Update replaces a pending order's line items wholesale and recomputes its
// totals. Anything past pending is immutable.
func (e *Engine) Update(ctx context.Context, p UpdateParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}

	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	var oldTableID *int64
	err = tx.QueryRow(ctx, `
		select status, table_id from orders
		where id = $1 and deleted_at is null
		for update
	`, p.OrderID).Scan(&status, &oldTableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if status != StatusPending {
		return nil, ErrInvalidState
	}

	if _, err := tx.Exec(ctx, `delete from order_items where order_id = $1`, p.OrderID); err != nil {
		return nil, err
	}

	items, err := e.resolveItems(ctx, tx, p.Items)
	if err != nil {
		return nil, err
	}
	subtotal, tax, total := orderTotals(items)

	if err := insertItems(ctx, tx, p.OrderID, items); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		update orders
		set table_id = $1, notes = $2, subtotal = $3, tax_amount = $4,
		    total = $5, updated_at = now()
		where id = $6
	`, p.TableID, p.Notes, subtotal, tax, total, p.OrderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	order, err := e.Get(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}

	e.Logger.Info("order updated", zap.Int64("orderId", p.OrderID), zap.Float64("total", total))

	pending, _ := e.PendingCount(ctx)
	e.Sink.Emit(EventOrderUpdated, map[string]any{
		"order":        order,
		"pendingCount": pending,
	})
	e.emitTableStatus(ctx, oldTableID)
	if p.TableID != nil && (oldTableID == nil || *oldTableID != *p.TableID) {
		e.emitTableStatus(ctx, p.TableID)
	}

	return order, nil
}

// Complete settles a pending order: records the payment, marks the order
// paid, and decrements stock for every line item, all in one transaction.
// A received amount below the total is allowed and produces negative change.
func (e *Engine) Complete(ctx context.Context, p CompleteParams) (*Order, *Payment, error) {
	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		status      string
		orderNumber string
		tableID     *int64
		totalNum    pgtype.Numeric
	)
	err = tx.QueryRow(ctx, `
		select status, order_number, table_id, total from orders
		where id = $1 and deleted_at is null
		for update
	`, p.OrderID).Scan(&status, &orderNumber, &tableID, &totalNum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	if status != StatusPending {
		return nil, nil, ErrInvalidState
	}

	total := utils.NumericToFloat64(totalNum)
	change := changeDue(p.AmountReceived, total)

	if _, err := tx.Exec(ctx, `
		update orders
		set status = 'completed', payment_status = 'paid', payment_method = $1,
		    completed_at = now(), updated_at = now()
		where id = $2
	`, p.PaymentMethod, p.OrderID); err != nil {
		return nil, nil, err
	}

	var payment Payment
	err = tx.QueryRow(ctx, `
		insert into payments
			(order_id, payment_method, amount, amount_received, change_amount,
			 status, processed_by, notes)
		values ($1,$2,$3,$4,$5,'completed',$6,$7)
		returning id, created_at
	`, p.OrderID, p.PaymentMethod, total, p.AmountReceived, change, p.UserID, p.Notes).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	payment.OrderID = p.OrderID
	payment.PaymentMethod = p.PaymentMethod
	payment.Amount = total
	payment.AmountReceived = p.AmountReceived
	payment.ChangeAmount = change
	payment.Status = "completed"
	payment.ProcessedBy = p.UserID
	payment.Notes = p.Notes

	rows, err := tx.Query(ctx, `
		select product_id, quantity from order_items where order_id = $1
	`, p.OrderID)
	if err != nil {
		return nil, nil, err
	}
	type line struct {
		productID int64
		quantity  int64
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return nil, nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	movementNote := fmt.Sprintf("Order %s completed", orderNumber)
	for _, l := range lines {
		_, err := e.Stock.Apply(ctx, tx, stock.Movement{
			ProductID:     l.productID,
			Quantity:      -l.quantity,
			MovementType:  stock.MovementOut,
			ReferenceType: "order",
			ReferenceID:   &p.OrderID,
			ActorID:       p.UserID,
			Notes:         &movementNote,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	order, err := e.Get(ctx, p.OrderID)
	if err != nil {
		return nil, nil, err
	}

	e.Logger.Info("order completed",
		zap.Int64("orderId", p.OrderID),
		zap.String("orderNumber", orderNumber),
		zap.String("paymentMethod", p.PaymentMethod),
		zap.Float64("change", change),
	)

	pending, _ := e.PendingCount(ctx)
	e.Sink.Emit(EventOrderStatusUpdated, map[string]any{
		"orderId":      p.OrderID,
		"status":       StatusCompleted,
		"order":        order,
		"pendingCount": pending,
	})
	e.Sink.Emit(EventPaymentReceived, map[string]any{
		"orderId": p.OrderID,
		"payment": payment,
	})
	e.emitTableStatus(ctx, tableID)

	return order, &payment, nil
}

// appendCancellationNote records who cancelled and why, preserving whatever
// notes the order already carried.
func appendCancellationNote(existing *string, userID int64, reason string) string {
	stamp := fmt.Sprintf("[CANCELLED by user_id:%d] %s", userID, reason)
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return stamp
	}
	return *existing + "\n" + stamp
}

// Cancel voids an order that has not been completed. Cancelling an already
// cancelled order is a no-op that still reports success. No stock is
// returned because pending orders never took any.
func (e *Engine) Cancel(ctx context.Context, p CancelParams) (*Order, error) {
	tx, err := e.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		status  string
		tableID *int64
		notes   *string
	)
	err = tx.QueryRow(ctx, `
		select status, table_id, notes from orders
		where id = $1 and deleted_at is null
		for update
	`, p.OrderID).Scan(&status, &tableID, &notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	switch status {
	case StatusCompleted:
		return nil, ErrInvalidState
	case StatusCancelled:
		return e.Get(ctx, p.OrderID)
	}

	newNotes := appendCancellationNote(notes, p.UserID, p.Reason)

	if _, err := tx.Exec(ctx, `
		update orders
		set status = 'cancelled', notes = $1, cancelled_at = now(), updated_at = now()
		where id = $2
	`, newNotes, p.OrderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	order, err := e.Get(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}

	e.Logger.Info("order cancelled",
		zap.Int64("orderId", p.OrderID),
		zap.Int64("byUserId", p.UserID),
	)

	pending, _ := e.PendingCount(ctx)
	e.Sink.Emit(EventOrderStatusUpdated, map[string]any{
		"orderId":      p.OrderID,
		"status":       StatusCancelled,
		"order":        order,
		"pendingCount": pending,
	})
	e.emitTableStatus(ctx, tableID)

	return order, nil
}

// PendingCount reports how many orders are currently open.
func (e *Engine) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := e.DB.QueryRow(ctx, `
		select count(*) from orders where status = 'pending' and deleted_at is null
	`).Scan(&count)
	return count, err
}

// emitTableStatus broadcasts the table's derived status. A table is occupied
// while at least one pending order references it; the engine never writes a
// status column on the table itself.
func (e *Engine) emitTableStatus(ctx context.Context, tableID *int64) {
	if tableID == nil {
		return
	}
	var pending int64
	var tableNumber string
	err := e.DB.QueryRow(ctx, `
		select t.table_number,
		       (select count(*) from orders o
		        where o.table_id = t.id and o.status = 'pending' and o.deleted_at is null)
		from restaurant_tables t
		where t.id = $1
	`, *tableID).Scan(&tableNumber, &pending)
	if err != nil {
		e.Logger.Warn("table status lookup failed", zap.Int64("tableId", *tableID), zap.Error(err))
		return
	}
	status := "available"
	if pending > 0 {
		status = "occupied"
	}
	e.Sink.Emit(EventTableStatusChanged, map[string]any{
		"tableId":     *tableID,
		"tableNumber": tableNumber,
		"status":      status,
	})
}
