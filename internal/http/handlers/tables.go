package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"pos-order-service/internal/middleware"
	"pos-order-service/pkg/response"
)

// Table statuses a client may set directly. "occupied" is derived from
// pending orders and is rejected as a manual status.
var settableTableStatuses = map[string]struct{}{
	"available":   {},
	"reserved":    {},
	"maintenance": {},
}

type tableView struct {
	ID            int64     `json:"id"`
	TableNumber   string    `json:"tableNumber"`
	Capacity      int64     `json:"capacity"`
	Location      *string   `json:"location"`
	Status        string    `json:"status"`
	ActiveOrderID *int64    `json:"activeOrderId,omitempty"`
	IsActive      bool      `json:"isActive"`
	DisplayOrder  int64     `json:"displayOrder"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// tableColumns joins each table against its open order so the reported
// status reflects reality even if the stored column is stale.
const tableColumns = `
	t.id, t.table_number, t.capacity, t.location, t.status,
	o.id, t.is_active, t.display_order, t.created_at, t.updated_at
`

// The lateral limit 1 keeps one result row per table even when several
// pending orders reference it.
const tableJoin = `
	from restaurant_tables t
	left join lateral (
		select id from orders
		where table_id = t.id and status = 'pending' and deleted_at is null
		order by id
		limit 1
	) o on true
`

func scanTable(row pgx.Row) (*tableView, error) {
	var (
		t             tableView
		location      pgtype.Text
		storedStatus  string
		activeOrderID pgtype.Int8
	)
	err := row.Scan(&t.ID, &t.TableNumber, &t.Capacity, &location, &storedStatus,
		&activeOrderID, &t.IsActive, &t.DisplayOrder, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if location.Valid {
		v := location.String
		t.Location = &v
	}
	t.Status = storedStatus
	if activeOrderID.Valid {
		v := activeOrderID.Int64
		t.ActiveOrderID = &v
		t.Status = "occupied"
	} else if storedStatus == "occupied" {
		// stale stored value with no open order backing it
		t.Status = "available"
	}
	return &t, nil
}

func (h *Handler) TablesList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(r.Context(), `
		select `+tableColumns+tableJoin+`
		where t.deleted_at is null
		order by t.display_order, t.table_number
	`)
	if err != nil {
		h.Logger.Error("table list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch tables")
		return
	}
	defer rows.Close()

	tables := make([]tableView, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch tables")
			return
		}
		tables = append(tables, *t)
	}
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch tables")
		return
	}

	response.Success(w, map[string]any{"tables": tables}, "")
}

// TablesAvailable lists tables a new order can be seated at: active, not
// reserved or under maintenance, and with no pending order.
func (h *Handler) TablesAvailable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(r.Context(), `
		select `+tableColumns+tableJoin+`
		where t.deleted_at is null
		  and t.is_active = true
		  and t.status not in ('reserved', 'maintenance')
		  and o.id is null
		order by t.display_order, t.table_number
	`)
	if err != nil {
		h.Logger.Error("available table list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch tables")
		return
	}
	defer rows.Close()

	tables := make([]tableView, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch tables")
			return
		}
		tables = append(tables, *t)
	}
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch tables")
		return
	}

	response.Success(w, map[string]any{"tables": tables}, "Available tables retrieved successfully")
}

func (h *Handler) TableDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tableId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid table id")
		return
	}

	t, err := scanTable(h.DB.QueryRow(r.Context(), `
		select `+tableColumns+tableJoin+`
		where t.id = $1 and t.deleted_at is null
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Table not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch table")
		return
	}

	response.Success(w, map[string]any{"table": t}, "")
}

type tableRequest struct {
	TableNumber  string  `json:"tableNumber"`
	Capacity     *int64  `json:"capacity"`
	Location     *string `json:"location"`
	DisplayOrder *int64  `json:"displayOrder"`
	IsActive     *bool   `json:"isActive"`
}

func (h *Handler) TablesCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var body tableRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	body.TableNumber = strings.TrimSpace(body.TableNumber)
	if body.TableNumber == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "tableNumber is required")
		return
	}
	capacity := int64(4)
	if body.Capacity != nil {
		if *body.Capacity <= 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "capacity must be greater than zero")
			return
		}
		capacity = *body.Capacity
	}
	displayOrder := int64(0)
	if body.DisplayOrder != nil {
		displayOrder = *body.DisplayOrder
	}

	var id int64
	err := h.DB.QueryRow(ctx, `
		insert into restaurant_tables
			(table_number, capacity, location, status, is_active, display_order, created_by)
		values ($1,$2,$3,'available',true,$4,$5)
		returning id
	`, body.TableNumber, capacity, body.Location, displayOrder, authCtx.UserID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Error(w, http.StatusConflict, "TABLE_EXISTS", "A table with this number already exists")
			return
		}
		h.Logger.Error("table create failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create table")
		return
	}

	t, err := scanTable(h.DB.QueryRow(ctx, `
		select `+tableColumns+tableJoin+`
		where t.id = $1
	`, id))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch table")
		return
	}

	response.Created(w, map[string]any{"table": t}, "Table created successfully")
}

func (h *Handler) TableUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "tableId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid table id")
		return
	}

	var body tableRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	set := []string{"updated_at = now()", "updated_by = $1"}
	args := []any{authCtx.UserID}
	idx := 2
	if v := strings.TrimSpace(body.TableNumber); v != "" {
		set = append(set, "table_number = $"+strconv.Itoa(idx))
		args = append(args, v)
		idx++
	}
	if body.Capacity != nil {
		if *body.Capacity <= 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "capacity must be greater than zero")
			return
		}
		set = append(set, "capacity = $"+strconv.Itoa(idx))
		args = append(args, *body.Capacity)
		idx++
	}
	if body.Location != nil {
		set = append(set, "location = $"+strconv.Itoa(idx))
		args = append(args, *body.Location)
		idx++
	}
	if body.DisplayOrder != nil {
		set = append(set, "display_order = $"+strconv.Itoa(idx))
		args = append(args, *body.DisplayOrder)
		idx++
	}
	if body.IsActive != nil {
		set = append(set, "is_active = $"+strconv.Itoa(idx))
		args = append(args, *body.IsActive)
		idx++
	}

	args = append(args, id)
	tag, err := h.DB.Exec(ctx, `
		update restaurant_tables set `+strings.Join(set, ", ")+`
		where id = $`+strconv.Itoa(idx)+` and deleted_at is null
	`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Error(w, http.StatusConflict, "TABLE_EXISTS", "A table with this number already exists")
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update table")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Table not found")
		return
	}

	t, err := scanTable(h.DB.QueryRow(ctx, `
		select `+tableColumns+tableJoin+`
		where t.id = $1
	`, id))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch table")
		return
	}

	response.Success(w, map[string]any{"table": t}, "Table updated successfully")
}

type tableStatusRequest struct {
	Status string `json:"status"`
}

// TableStatusPatch sets the stored status for manual states. Occupancy
// cannot be forced here; it follows pending orders.
func (h *Handler) TableStatusPatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "tableId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid table id")
		return
	}

	var body tableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if body.Status == "occupied" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Table occupancy follows open orders and cannot be set manually")
		return
	}
	if _, ok := settableTableStatuses[body.Status]; !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid table status")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update restaurant_tables
		set status = $1, updated_at = now(), updated_by = $2
		where id = $3 and deleted_at is null
	`, body.Status, authCtx.UserID, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update table status")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Table not found")
		return
	}

	t, err := scanTable(h.DB.QueryRow(ctx, `
		select `+tableColumns+tableJoin+`
		where t.id = $1
	`, id))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch table")
		return
	}

	h.Hub.Emit("table-status-changed", map[string]any{
		"tableId":     t.ID,
		"tableNumber": t.TableNumber,
		"status":      t.Status,
	})

	response.Success(w, map[string]any{"table": t}, "Table status updated")
}

func (h *Handler) TableDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "tableId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid table id")
		return
	}

	var pendingOrders int64
	err = h.DB.QueryRow(ctx, `
		select count(*) from orders
		where table_id = $1 and status = 'pending' and deleted_at is null
	`, id).Scan(&pendingOrders)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete table")
		return
	}
	if pendingOrders > 0 {
		response.Error(w, http.StatusBadRequest, "TABLE_IN_USE", "Table has open orders and cannot be deleted")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update restaurant_tables
		set deleted_at = now(), is_active = false, updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete table")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Table not found")
		return
	}

	response.Success(w, nil, "Table deleted successfully")
}
