package orders

import (
	"context"
	"fmt"
	"time"
)

// orderNumberPrefix renders the date-scoped prefix ORD-YYYYMMDD-.
func orderNumberPrefix(day time.Time) string {
	return fmt.Sprintf("ORD-%s-", day.Format("20060102"))
}

// formatOrderNumber renders ORD-YYYYMMDD-NNNN. Sequences above 9999 widen
// naturally rather than wrap.
func formatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d", orderNumberPrefix(day), seq)
}

// nextOrderNumber derives the next number from the count of orders already
// carrying today's prefix. Matching on the prefix keeps the count and the
// formatted number on the same calendar day regardless of the database
// session timezone. Counting includes cancelled orders, so a cancellation
// never frees a number for reuse. Two transactions racing on the same count
// can collide; the unique index on order_number surfaces that as an insert
// error and the caller simply retries the request.
func (e *Engine) nextOrderNumber(ctx context.Context, q querier, now time.Time) (string, error) {
	prefix := orderNumberPrefix(now)
	var count int64
	err := q.QueryRow(ctx, `
		select count(*) from orders where order_number like $1 || '%'
	`, prefix).Scan(&count)
	if err != nil {
		return "", err
	}
	return formatOrderNumber(now, count+1), nil
}
