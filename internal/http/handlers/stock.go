package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"pos-order-service/internal/middleware"
	"pos-order-service/internal/stock"
	"pos-order-service/pkg/response"
)

type movementView struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"productId"`
	ProductName      *string   `json:"productName,omitempty"`
	MovementType     string    `json:"movementType"`
	Quantity         int64     `json:"quantity"`
	ReferenceType    *string   `json:"referenceType,omitempty"`
	ReferenceID      *int64    `json:"referenceId,omitempty"`
	PreviousQuantity int64     `json:"previousQuantity"`
	NewQuantity      int64     `json:"newQuantity"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedBy        int64     `json:"createdBy"`
	CreatedByName    *string   `json:"createdByName,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (h *Handler) StockMovementsList(w http.ResponseWriter, r *http.Request) {
	var productID *int64
	if v := r.URL.Query().Get("productId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			productID = &id
		}
	}
	h.listStockMovements(w, r, productID)
}

// ProductStockMovements lists the movement history of one product.
func (h *Handler) ProductStockMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}
	h.listStockMovements(w, r, &productID)
}

func (h *Handler) listStockMovements(w http.ResponseWriter, r *http.Request, productID *int64) {
	ctx := r.Context()
	q := r.URL.Query()

	where := "1=1"
	args := []any{}
	idx := 1
	if productID != nil {
		where += " and m.product_id = $" + strconv.Itoa(idx)
		args = append(args, *productID)
		idx++
	}
	if v := q.Get("type"); v != "" {
		if !stock.ValidMovementType(v) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid movement type filter")
			return
		}
		where += " and m.movement_type = $" + strconv.Itoa(idx)
		args = append(args, v)
		idx++
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
	err := h.DB.QueryRow(ctx, `
		select count(*) from stock_movements m where `+where, args...).Scan(&total)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stock movements")
		return
	}

	query := `
		select m.id, m.product_id, p.name, m.movement_type, m.quantity,
		       m.reference_type, m.reference_id, m.previous_quantity,
		       m.new_quantity, m.notes, m.created_by, u.full_name, m.created_at
		from stock_movements m
		left join products p on m.product_id = p.id
		left join users u on m.created_by = u.id
		where ` + where + `
		order by m.created_at desc
		limit $` + strconv.Itoa(idx) + ` offset $` + strconv.Itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		h.Logger.Error("stock movement list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stock movements")
		return
	}
	defer rows.Close()

	movements := make([]movementView, 0)
	for rows.Next() {
		var (
			m           movementView
			productName pgtype.Text
			refType     pgtype.Text
			refID       pgtype.Int8
			notes       pgtype.Text
			byName      pgtype.Text
		)
		err := rows.Scan(&m.ID, &m.ProductID, &productName, &m.MovementType, &m.Quantity,
			&refType, &refID, &m.PreviousQuantity, &m.NewQuantity, &notes,
			&m.CreatedBy, &byName, &m.CreatedAt)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stock movements")
			return
		}
		if productName.Valid {
			v := productName.String
			m.ProductName = &v
		}
		if refType.Valid {
			v := refType.String
			m.ReferenceType = &v
		}
		if refID.Valid {
			v := refID.Int64
			m.ReferenceID = &v
		}
		if notes.Valid {
			v := notes.String
			m.Notes = &v
		}
		if byName.Valid {
			v := byName.String
			m.CreatedByName = &v
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stock movements")
		return
	}

	response.Success(w, map[string]any{
		"movements": movements,
		"pagination": map[string]any{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	}, "")
}

type stockAdjustRequest struct {
	MovementType string  `json:"movementType"`
	Quantity     *int64  `json:"quantity"`
	Notes        *string `json:"notes"`
}

// StockAdjust applies a manual movement to one product. The quantity is a
// signed delta; "out" movements are normalized to negative.
func (h *Handler) StockAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	var body stockAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if !stock.ValidMovementType(body.MovementType) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid movement type")
		return
	}
	if body.Quantity == nil || *body.Quantity == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity is required and cannot be zero")
		return
	}

	quantity := stock.NormalizeQuantity(body.MovementType, *body.Quantity)

	refType := "manual"
	result, err := h.Stock.ApplyStandalone(ctx, stock.Movement{
		ProductID:     productID,
		Quantity:      quantity,
		MovementType:  body.MovementType,
		ReferenceType: refType,
		ActorID:       authCtx.UserID,
		Notes:         body.Notes,
	})
	if err != nil {
		if errors.Is(err, stock.ErrProductNotFound) {
			response.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		h.Logger.Error("stock adjust failed",
			zap.Int64("productId", productID),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to adjust stock")
		return
	}

	response.Success(w, map[string]any{
		"productId":        productID,
		"movementType":     body.MovementType,
		"quantity":         quantity,
		"previousQuantity": result.PreviousQuantity,
		"newQuantity":      result.NewQuantity,
	}, "Stock adjusted successfully")
}

func (h *Handler) StockAvailability(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	required := int64(1)
	if v := strings.TrimSpace(r.URL.Query().Get("quantity")); v != "" {
		q, err := strconv.ParseInt(v, 10, 64)
		if err != nil || q <= 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be a positive integer")
			return
		}
		required = q
	}

	availability, err := h.Stock.CheckAvailability(r.Context(), productID, required)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check stock")
		return
	}

	response.Success(w, availability, "")
}
