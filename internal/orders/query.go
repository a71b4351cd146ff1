package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"pos-order-service/internal/utils"
)

const orderColumns = `
	o.id, o.order_number, o.table_id, t.table_number, o.user_id, u.full_name,
	o.status, o.payment_status, o.payment_method,
	o.subtotal, o.tax_rate, o.tax_amount, o.discount_amount, o.total,
	o.notes, o.created_at, o.updated_at, o.completed_at, o.cancelled_at,
	(select count(*) from order_items oi where oi.order_id = o.id)
`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o           Order
		tableNumber pgtype.Text
		cashier     pgtype.Text
		method      pgtype.Text
		notes       pgtype.Text
		subtotal    pgtype.Numeric
		taxRate     pgtype.Numeric
		taxAmount   pgtype.Numeric
		discount    pgtype.Numeric
		total       pgtype.Numeric
		completedAt pgtype.Timestamptz
		cancelledAt pgtype.Timestamptz
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.TableID, &tableNumber, &o.UserID, &cashier,
		&o.Status, &o.PaymentStatus, &method,
		&subtotal, &taxRate, &taxAmount, &discount, &total,
		&notes, &o.CreatedAt, &o.UpdatedAt, &completedAt, &cancelledAt,
		&o.ItemCount,
	)
	if err != nil {
		return nil, err
	}

	if tableNumber.Valid {
		v := tableNumber.String
		o.TableNumber = &v
	}
	if cashier.Valid {
		v := cashier.String
		o.CashierName = &v
	}
	if method.Valid {
		v := method.String
		o.PaymentMethod = &v
	}
	if notes.Valid {
		v := notes.String
		o.Notes = &v
	}
	o.Subtotal = utils.NumericToFloat64(subtotal)
	o.TaxRate = utils.NumericToFloat64(taxRate)
	o.TaxAmount = utils.NumericToFloat64(taxAmount)
	o.DiscountAmount = utils.NumericToFloat64(discount)
	o.Total = utils.NumericToFloat64(total)
	if completedAt.Valid {
		v := completedAt.Time
		o.CompletedAt = &v
	}
	if cancelledAt.Valid {
		v := cancelledAt.Time
		o.CancelledAt = &v
	}
	return &o, nil
}

// Get loads one order with its line items.
func (e *Engine) Get(ctx context.Context, orderID int64) (*Order, error) {
	row := e.DB.QueryRow(ctx, `
		select `+orderColumns+`
		from orders o
		left join restaurant_tables t on o.table_id = t.id
		left join users u on o.user_id = u.id
		where o.id = $1 and o.deleted_at is null
	`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := e.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (e *Engine) loadItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := e.DB.Query(ctx, `
		select id, order_id, product_id, product_name, product_image,
		       quantity, unit_price, subtotal, discount_amount, total, notes
		from order_items
		where order_id = $1
		order by id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var (
			it        OrderItem
			image     pgtype.Text
			unitPrice pgtype.Numeric
			subtotal  pgtype.Numeric
			discount  pgtype.Numeric
			total     pgtype.Numeric
			notes     pgtype.Text
		)
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &image,
			&it.Quantity, &unitPrice, &subtotal, &discount, &total, &notes)
		if err != nil {
			return nil, err
		}
		if image.Valid {
			v := image.String
			it.ProductImage = &v
		}
		if notes.Valid {
			v := notes.String
			it.Notes = &v
		}
		it.UnitPrice = utils.NumericToFloat64(unitPrice)
		it.Subtotal = utils.NumericToFloat64(subtotal)
		it.DiscountAmount = utils.NumericToFloat64(discount)
		it.Total = utils.NumericToFloat64(total)
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns orders newest first, plus the unfiltered-by-paging total for
// the caller's pagination envelope.
func (e *Engine) List(ctx context.Context, f ListFilter) ([]Order, int64, error) {
	where := "o.deleted_at is null"
	args := []any{}
	idx := 1

	if f.Status != "" {
		where += fmt.Sprintf(" and o.status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.TableID != nil {
		where += fmt.Sprintf(" and o.table_id = $%d", idx)
		args = append(args, *f.TableID)
		idx++
	}
	if f.UserID != nil {
		where += fmt.Sprintf(" and o.user_id = $%d", idx)
		args = append(args, *f.UserID)
		idx++
	}
	if f.DateFrom != nil {
		where += fmt.Sprintf(" and o.created_at >= $%d", idx)
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		where += fmt.Sprintf(" and o.created_at <= $%d", idx)
		args = append(args, *f.DateTo)
		idx++
	}

	var total int64
	err := e.DB.QueryRow(ctx, "select count(*) from orders o where "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := f.Clamp()

	query := `
		select ` + orderColumns + `
		from orders o
		left join restaurant_tables t on o.table_id = t.id
		left join users u on o.user_id = u.id
		where ` + where + fmt.Sprintf(`
		order by o.created_at desc
		limit $%d offset $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := e.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *order)
	}
	return list, total, rows.Err()
}
