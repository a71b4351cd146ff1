package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"pos-order-service/internal/middleware"
	"pos-order-service/internal/utils"
	"pos-order-service/pkg/response"
)

type productView struct {
	ID                int64    `json:"id"`
	CategoryID        *int64   `json:"categoryId"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	Description       *string  `json:"description"`
	Price             float64  `json:"price"`
	ImageEmoji        *string  `json:"imageEmoji"`
	StockQuantity     int64    `json:"stockQuantity"`
	LowStockThreshold int64    `json:"lowStockThreshold"`
	SKU               *string  `json:"sku"`
	IsActive          bool     `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

const productColumns = `
	id, category_id, name, slug, description, price, image_emoji,
	stock_quantity, low_stock_threshold, sku, is_active, created_at, updated_at
`

func scanProduct(row pgx.Row) (*productView, error) {
	var (
		p           productView
		categoryID  pgtype.Int8
		description pgtype.Text
		price       pgtype.Numeric
		imageEmoji  pgtype.Text
		sku         pgtype.Text
	)
	err := row.Scan(&p.ID, &categoryID, &p.Name, &p.Slug, &description, &price,
		&imageEmoji, &p.StockQuantity, &p.LowStockThreshold, &sku, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		v := categoryID.Int64
		p.CategoryID = &v
	}
	if description.Valid {
		v := description.String
		p.Description = &v
	}
	if imageEmoji.Valid {
		v := imageEmoji.String
		p.ImageEmoji = &v
	}
	if sku.Valid {
		v := sku.String
		p.SKU = &v
	}
	p.Price = utils.NumericToFloat64(price)
	return &p, nil
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugCleaner.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func (h *Handler) ProductsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	where := "deleted_at is null"
	args := []any{}
	idx := 1
	if v := q.Get("categoryId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			where += " and category_id = $" + strconv.Itoa(idx)
			args = append(args, id)
			idx++
		}
	}
	if q.Get("activeOnly") == "true" {
		where += " and is_active = true"
	}
	if v := strings.TrimSpace(q.Get("search")); v != "" {
		where += " and name ilike $" + strconv.Itoa(idx)
		args = append(args, "%"+v+"%")
		idx++
	}
	if q.Get("lowStock") == "true" {
		where += " and stock_quantity <= low_stock_threshold"
	}

	rows, err := h.DB.Query(ctx, `
		select `+productColumns+`
		from products
		where `+where+`
		order by name
	`, args...)
	if err != nil {
		h.Logger.Error("product list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch products")
		return
	}
	defer rows.Close()

	products := make([]productView, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch products")
			return
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch products")
		return
	}

	response.Success(w, map[string]any{"products": products}, "")
}

func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	p, err := scanProduct(h.DB.QueryRow(r.Context(), `
		select `+productColumns+`
		from products
		where id = $1 and deleted_at is null
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch product")
		return
	}

	response.Success(w, map[string]any{"product": p}, "")
}

type productRequest struct {
	CategoryID        *int64   `json:"categoryId"`
	Name              string   `json:"name"`
	Description       *string  `json:"description"`
	Price             *float64 `json:"price"`
	ImageEmoji        *string  `json:"imageEmoji"`
	StockQuantity     *int64   `json:"stockQuantity"`
	LowStockThreshold *int64   `json:"lowStockThreshold"`
	SKU               *string  `json:"sku"`
	IsActive          *bool    `json:"isActive"`
}

func (h *Handler) ProductsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var body productRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}
	if body.Price == nil || *body.Price < 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "price is required and cannot be negative")
		return
	}

	stockQuantity := int64(0)
	if body.StockQuantity != nil {
		stockQuantity = *body.StockQuantity
	}
	lowStock := int64(10)
	if body.LowStockThreshold != nil {
		lowStock = *body.LowStockThreshold
	}

	var id int64
	err := h.DB.QueryRow(ctx, `
		insert into products
			(category_id, name, slug, description, price, image_emoji,
			 stock_quantity, low_stock_threshold, sku, is_active, created_by)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,true,$10)
		returning id
	`, body.CategoryID, body.Name, slugify(body.Name), body.Description,
		utils.Round2(*body.Price), body.ImageEmoji, stockQuantity, lowStock,
		body.SKU, authCtx.UserID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Error(w, http.StatusConflict, "PRODUCT_EXISTS", "A product with this SKU or name already exists")
			return
		}
		h.Logger.Error("product create failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create product")
		return
	}

	p, err := scanProduct(h.DB.QueryRow(ctx, `
		select `+productColumns+` from products where id = $1
	`, id))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch product")
		return
	}

	response.Created(w, map[string]any{"product": p}, "Product created successfully")
}

func (h *Handler) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	var body productRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	set := []string{"updated_at = now()", "updated_by = $1"}
	args := []any{authCtx.UserID}
	idx := 2
	appendSet := func(col string, val any) {
		set = append(set, col+" = $"+strconv.Itoa(idx))
		args = append(args, val)
		idx++
	}

	if v := strings.TrimSpace(body.Name); v != "" {
		appendSet("name", v)
		appendSet("slug", slugify(v))
	}
	if body.CategoryID != nil {
		appendSet("category_id", *body.CategoryID)
	}
	if body.Description != nil {
		appendSet("description", *body.Description)
	}
	if body.Price != nil {
		if *body.Price < 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "price cannot be negative")
			return
		}
		appendSet("price", utils.Round2(*body.Price))
	}
	if body.ImageEmoji != nil {
		appendSet("image_emoji", *body.ImageEmoji)
	}
	if body.LowStockThreshold != nil {
		appendSet("low_stock_threshold", *body.LowStockThreshold)
	}
	if body.SKU != nil {
		appendSet("sku", *body.SKU)
	}
	if body.IsActive != nil {
		appendSet("is_active", *body.IsActive)
	}
	// stock_quantity is deliberately absent: stock changes go through the
	// movements endpoint so the audit trail stays complete.

	args = append(args, id)
	tag, err := h.DB.Exec(ctx, `
		update products set `+strings.Join(set, ", ")+`
		where id = $`+strconv.Itoa(idx)+` and deleted_at is null
	`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Error(w, http.StatusConflict, "PRODUCT_EXISTS", "A product with this SKU or name already exists")
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update product")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	p, err := scanProduct(h.DB.QueryRow(ctx, `
		select `+productColumns+` from products where id = $1
	`, id))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch product")
		return
	}

	response.Success(w, map[string]any{"product": p}, "Product updated successfully")
}

func (h *Handler) ProductDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update products
		set deleted_at = now(), is_active = false, updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete product")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	response.Success(w, nil, "Product deleted successfully")
}
