package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pos-order-service/internal/middleware"
	"pos-order-service/internal/orders"
	"pos-order-service/pkg/response"
)

type orderItemRequest struct {
	ProductID      int64    `json:"productId"`
	Quantity       int64    `json:"quantity"`
	DiscountAmount *float64 `json:"discountAmount"`
	Notes          *string  `json:"notes"`
}

type orderRequest struct {
	TableID *int64             `json:"tableId"`
	Notes   *string            `json:"notes"`
	Items   []orderItemRequest `json:"items"`
}

func (req *orderRequest) validate() (items []orders.ItemInput, msg string) {
	if len(req.Items) == 0 {
		return nil, "Order must have at least one item."
	}
	items = make([]orders.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID <= 0 {
			return nil, "Each item requires a valid productId."
		}
		if it.Quantity <= 0 {
			return nil, "Item quantity must be greater than zero."
		}
		discount := 0.0
		if it.DiscountAmount != nil {
			if *it.DiscountAmount < 0 {
				return nil, "Item discount cannot be negative."
			}
			discount = *it.DiscountAmount
		}
		items = append(items, orders.ItemInput{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			DiscountAmount: discount,
			Notes:          it.Notes,
		})
	}
	return items, ""
}

// writeOrderError translates engine sentinels into the API envelope.
func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
	case errors.Is(err, orders.ErrInvalidState):
		response.Error(w, http.StatusBadRequest, "ORDER_NOT_PENDING", "Only pending orders can be modified")
	case errors.Is(err, orders.ErrNoItems):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order must have at least one item.")
	case errors.Is(err, orders.ErrProductNotFound):
		response.Error(w, http.StatusBadRequest, "PRODUCT_NOT_FOUND", "One or more products were not found or are inactive")
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process order")
	}
}

func orderIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) OrdersCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var body orderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	items, msg := body.validate()
	if msg != "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	order, err := h.Engine.Create(ctx, orders.CreateParams{
		TableID: body.TableID,
		UserID:  authCtx.UserID,
		Notes:   body.Notes,
		Items:   items,
	})
	if err != nil {
		h.Logger.Error("order create failed", zap.Error(err))
		writeOrderError(w, err)
		return
	}

	response.Created(w, map[string]any{"order": order}, "Order created successfully")
}

func (h *Handler) OrdersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := orders.ListFilter{}
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		switch status {
		case orders.StatusPending, orders.StatusCompleted, orders.StatusCancelled:
			filter.Status = status
		default:
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status filter")
			return
		}
	}
	if v := q.Get("tableId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.TableID = &id
		}
	}
	if v := q.Get("userId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.UserID = &id
		}
	}
	if v := q.Get("dateFrom"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateFrom = &t
		}
	}
	if v := q.Get("dateTo"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.DateTo = &end
		}
	}
	filter.Limit, _ = strconv.ParseInt(q.Get("limit"), 10, 64)
	filter.Offset, _ = strconv.ParseInt(q.Get("offset"), 10, 64)

	list, total, err := h.Engine.List(ctx, filter)
	if err != nil {
		h.Logger.Error("order list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch orders")
		return
	}

	limit, offset := filter.Clamp()
	response.Success(w, map[string]any{
		"orders": list,
		"pagination": map[string]any{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	}, "")
}

func (h *Handler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	order, err := h.Engine.Get(r.Context(), id)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	response.Success(w, map[string]any{"order": order}, "")
}

func (h *Handler) OrderUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, okID := orderIDParam(r)
	if !okID {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var body orderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	items, msg := body.validate()
	if msg != "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	order, err := h.Engine.Update(ctx, orders.UpdateParams{
		OrderID: id,
		UserID:  authCtx.UserID,
		TableID: body.TableID,
		Notes:   body.Notes,
		Items:   items,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	response.Success(w, map[string]any{"order": order}, "Order updated successfully")
}

type completeOrderRequest struct {
	PaymentMethod  string   `json:"paymentMethod"`
	AmountReceived *float64 `json:"amountReceived"`
	Notes          *string  `json:"notes"`
}

var paymentMethods = map[string]struct{}{
	"cash":   {},
	"card":   {},
	"mobile": {},
	"other":  {},
}

func (h *Handler) OrderComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, okID := orderIDParam(r)
	if !okID {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var body completeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if _, okMethod := paymentMethods[body.PaymentMethod]; !okMethod {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment method")
		return
	}
	if body.AmountReceived == nil || *body.AmountReceived < 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "amountReceived is required and cannot be negative")
		return
	}

	order, payment, err := h.Engine.Complete(ctx, orders.CompleteParams{
		OrderID:        id,
		UserID:         authCtx.UserID,
		PaymentMethod:  body.PaymentMethod,
		AmountReceived: *body.AmountReceived,
		Notes:          body.Notes,
	})
	if err != nil {
		if errors.Is(err, orders.ErrInvalidState) {
			response.Error(w, http.StatusBadRequest, "ORDER_NOT_PENDING", "Only pending orders can be completed")
			return
		}
		h.Logger.Error("order complete failed", zap.Error(err))
		writeOrderError(w, err)
		return
	}

	response.Success(w, map[string]any{
		"order":   order,
		"payment": payment,
	}, "Order completed successfully")
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) OrderCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, okID := orderIDParam(r)
	if !okID {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var body cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "No reason provided"
	}

	order, err := h.Engine.Cancel(ctx, orders.CancelParams{
		OrderID: id,
		UserID:  authCtx.UserID,
		Reason:  reason,
	})
	if err != nil {
		if errors.Is(err, orders.ErrInvalidState) {
			response.Error(w, http.StatusBadRequest, "ORDER_ALREADY_COMPLETED", "Completed orders cannot be cancelled")
			return
		}
		writeOrderError(w, err)
		return
	}

	response.Success(w, map[string]any{"order": order}, "Order cancelled successfully")
}

func (h *Handler) OrdersPendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Engine.PendingCount(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count pending orders")
		return
	}
	response.Success(w, map[string]any{"pendingCount": count}, "")
}
