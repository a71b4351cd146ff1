package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"pos-order-service/internal/auth"
	"pos-order-service/internal/middleware"
	"pos-order-service/internal/stock"
	"pos-order-service/internal/utils"
	"pos-order-service/pkg/response"
)

type paymentView struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"orderId"`
	OrderNumber     *string   `json:"orderNumber,omitempty"`
	PaymentMethod   string    `json:"paymentMethod"`
	Amount          float64   `json:"amount"`
	AmountReceived  float64   `json:"amountReceived"`
	ChangeAmount    float64   `json:"changeAmount"`
	Status          string    `json:"status"`
	ProcessedBy     int64     `json:"processedBy"`
	ProcessedByName *string   `json:"processedByName,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

const paymentColumns = `
	p.id, p.order_id, o.order_number, p.payment_method, p.amount,
	p.amount_received, p.change_amount, p.status, p.processed_by,
	u.full_name, p.notes, p.created_at
`

const paymentJoin = `
	from payments p
	left join orders o on p.order_id = o.id
	left join users u on p.processed_by = u.id
`

func scanPayment(row pgx.Row) (*paymentView, error) {
	var (
		p           paymentView
		orderNumber pgtype.Text
		amount      pgtype.Numeric
		received    pgtype.Numeric
		change      pgtype.Numeric
		byName      pgtype.Text
		notes       pgtype.Text
	)
	err := row.Scan(&p.ID, &p.OrderID, &orderNumber, &p.PaymentMethod, &amount,
		&received, &change, &p.Status, &p.ProcessedBy, &byName, &notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if orderNumber.Valid {
		v := orderNumber.String
		p.OrderNumber = &v
	}
	if byName.Valid {
		v := byName.String
		p.ProcessedByName = &v
	}
	if notes.Valid {
		v := notes.String
		p.Notes = &v
	}
	p.Amount = utils.NumericToFloat64(amount)
	p.AmountReceived = utils.NumericToFloat64(received)
	p.ChangeAmount = utils.NumericToFloat64(change)
	return &p, nil
}

func (h *Handler) PaymentsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	where := "1=1"
	args := []any{}
	idx := 1
	if v := q.Get("orderId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			where += " and p.order_id = $" + strconv.Itoa(idx)
			args = append(args, id)
			idx++
		}
	}
	if v := q.Get("method"); v != "" {
		where += " and p.payment_method = $" + strconv.Itoa(idx)
		args = append(args, v)
		idx++
	}
	if v := q.Get("date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			where += fmt.Sprintf(" and p.created_at >= $%d and p.created_at < $%d", idx, idx+1)
			args = append(args, t, t.Add(24*time.Hour))
			idx += 2
		}
	}

	limit := int64(50)
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
	if offset < 0 {
		offset = 0
	}

	var total int64
	err := h.DB.QueryRow(ctx, `select count(*) from payments p where `+where, args...).Scan(&total)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
		return
	}

	query := `select ` + paymentColumns + paymentJoin + `
		where ` + where + `
		order by p.created_at desc
		limit $` + strconv.Itoa(idx) + ` offset $` + strconv.Itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		h.Logger.Error("payment list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
		return
	}
	defer rows.Close()

	payments := make([]paymentView, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
			return
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
		return
	}

	response.Success(w, map[string]any{
		"payments": payments,
		"pagination": map[string]any{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	}, "")
}

// OrderPayments lists the settlement records of one order.
func (h *Handler) OrderPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var exists bool
	err = h.DB.QueryRow(ctx, `
		select exists(select 1 from orders where id = $1 and deleted_at is null)
	`, orderID).Scan(&exists)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
		return
	}
	if !exists {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	rows, err := h.DB.Query(ctx, `
		select `+paymentColumns+paymentJoin+`
		where p.order_id = $1
		order by p.created_at desc
	`, orderID)
	if err != nil {
		h.Logger.Error("order payment list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
		return
	}
	defer rows.Close()

	payments := make([]paymentView, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
			return
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payments")
		return
	}

	response.Success(w, map[string]any{"payments": payments}, "")
}

func (h *Handler) PaymentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "paymentId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment id")
		return
	}

	p, err := scanPayment(h.DB.QueryRow(r.Context(), `
		select `+paymentColumns+paymentJoin+`
		where p.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payment")
		return
	}

	response.Success(w, map[string]any{"payment": p}, "")
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// PaymentRefund reverses a completed payment: the payment and its order are
// marked refunded and the stock taken at completion is returned, all in one
// transaction.
func (h *Handler) PaymentRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	if authCtx.Role != auth.RoleAdmin && authCtx.Role != auth.RoleManager {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Only managers can issue refunds")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "paymentId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment id")
		return
	}

	var body refundRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "reason is required")
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		orderID     int64
		orderNumber string
		status      string
	)
	err = tx.QueryRow(ctx, `
		select p.order_id, o.order_number, p.status
		from payments p
		join orders o on p.order_id = o.id
		where p.id = $1
		for update of p
	`, id).Scan(&orderID, &orderNumber, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
	}
	if status != "completed" {
		response.Error(w, http.StatusBadRequest, "PAYMENT_NOT_REFUNDABLE", "Only completed payments can be refunded")
		return
	}

	refundNote := fmt.Sprintf("[REFUNDED by user_id:%d] %s", authCtx.UserID, reason)
	if _, err := tx.Exec(ctx, `
		update payments
		set status = 'refunded',
		    notes = coalesce(notes || E'\n', '') || $1,
		    updated_at = now()
		where id = $2
	`, refundNote, id); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
	}

	if _, err := tx.Exec(ctx, `
		update orders set payment_status = 'refunded', updated_at = now() where id = $1
	`, orderID); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
	}

	rows, err := tx.Query(ctx, `
		select product_id, quantity from order_items where order_id = $1
	`, orderID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
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
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
			return
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
	}

	movementNote := fmt.Sprintf("Order %s refunded", orderNumber)
	for _, l := range lines {
		_, err := h.Stock.Apply(ctx, tx, stock.Movement{
			ProductID:     l.productID,
			Quantity:      l.quantity,
			MovementType:  stock.MovementReturn,
			ReferenceType: "refund",
			ReferenceID:   &id,
			ActorID:       authCtx.UserID,
			Notes:         &movementNote,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process refund")
		return
	}

	h.Logger.Info("payment refunded",
		zap.Int64("paymentId", id),
		zap.Int64("orderId", orderID),
		zap.Int64("byUserId", authCtx.UserID),
	)

	p, err := scanPayment(h.DB.QueryRow(ctx, `
		select `+paymentColumns+paymentJoin+`
		where p.id = $1
	`, id))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch payment")
		return
	}

	response.Success(w, map[string]any{"payment": p}, "Payment refunded successfully")
}
