package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"pos-order-service/internal/orders"
)

func TestOrderRequestValidate(t *testing.T) {
	notes := "no ice"
	discount := 0.50
	negative := -1.0

	cases := []struct {
		name    string
		req     orderRequest
		wantErr string
	}{
		{
			name:    "empty items rejected",
			req:     orderRequest{},
			wantErr: "Order must have at least one item.",
		},
		{
			name: "missing product id rejected",
			req: orderRequest{Items: []orderItemRequest{
				{Quantity: 1},
			}},
			wantErr: "Each item requires a valid productId.",
		},
		{
			name: "zero quantity rejected",
			req: orderRequest{Items: []orderItemRequest{
				{ProductID: 5, Quantity: 0},
			}},
			wantErr: "Item quantity must be greater than zero.",
		},
		{
			name: "negative discount rejected",
			req: orderRequest{Items: []orderItemRequest{
				{ProductID: 5, Quantity: 1, DiscountAmount: &negative},
			}},
			wantErr: "Item discount cannot be negative.",
		},
		{
			name: "valid request",
			req: orderRequest{Items: []orderItemRequest{
				{ProductID: 5, Quantity: 2, DiscountAmount: &discount, Notes: &notes},
				{ProductID: 6, Quantity: 1},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, msg := tc.req.validate()
			if msg != tc.wantErr {
				t.Fatalf("expected error %q, got %q", tc.wantErr, msg)
			}
			if tc.wantErr == "" {
				if len(items) != len(tc.req.Items) {
					t.Fatalf("expected %d items, got %d", len(tc.req.Items), len(items))
				}
				if items[0].DiscountAmount != discount {
					t.Fatalf("discount not carried: %v", items[0].DiscountAmount)
				}
				if items[1].DiscountAmount != 0 {
					t.Fatalf("missing discount should default to zero")
				}
			}
		})
	}
}

func TestWriteOrderError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", orders.ErrOrderNotFound, 404, "ORDER_NOT_FOUND"},
		{"invalid state", orders.ErrInvalidState, 400, "ORDER_NOT_PENDING"},
		{"no items", orders.ErrNoItems, 400, "VALIDATION_ERROR"},
		{"unknown product", orders.ErrProductNotFound, 400, "PRODUCT_NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeOrderError(rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json body: %v", err)
			}
			if body.Success {
				t.Fatalf("error responses must not report success")
			}
			if body.Error != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, body.Error)
			}
		})
	}
}

func TestPaymentMethods(t *testing.T) {
	for _, m := range []string{"cash", "card", "mobile", "other"} {
		if _, ok := paymentMethods[m]; !ok {
			t.Fatalf("expected %q to be accepted", m)
		}
	}
	if _, ok := paymentMethods["check"]; ok {
		t.Fatalf("unexpected payment method accepted")
	}
}
