package orders

import (
	"testing"
	"time"
)

func TestOrderTotals(t *testing.T) {
	cases := []struct {
		name     string
		items    []resolvedItem
		subtotal float64
		tax      float64
		total    float64
	}{
		{
			name: "two lines no discount",
			items: []resolvedItem{
				{Quantity: 2, UnitPrice: 5.00, Subtotal: 10.00, Total: 10.00},
				{Quantity: 1, UnitPrice: 3.00, Subtotal: 3.00, Total: 3.00},
			},
			subtotal: 13.00,
			tax:      1.30,
			total:    14.30,
		},
		{
			name: "line discount reduces the taxable base",
			items: []resolvedItem{
				{Quantity: 2, UnitPrice: 5.00, Subtotal: 10.00, DiscountAmount: 1.00, Total: 9.00},
			},
			subtotal: 9.00,
			tax:      0.90,
			total:    9.90,
		},
		{
			name: "fractional prices round to cents",
			items: []resolvedItem{
				{Quantity: 3, UnitPrice: 3.33, Subtotal: 9.99, Total: 9.99},
			},
			subtotal: 9.99,
			tax:      1.00,
			total:    10.99,
		},
		{
			name:     "no items",
			items:    nil,
			subtotal: 0,
			tax:      0,
			total:    0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subtotal, tax, total := orderTotals(tc.items)
			if subtotal != tc.subtotal {
				t.Fatalf("expected subtotal %.2f, got %.2f", tc.subtotal, subtotal)
			}
			if tax != tc.tax {
				t.Fatalf("expected tax %.2f, got %.2f", tc.tax, tax)
			}
			if total != tc.total {
				t.Fatalf("expected total %.2f, got %.2f", tc.total, total)
			}
		})
	}
}

func TestListFilterClamp(t *testing.T) {
	cases := []struct {
		name   string
		filter ListFilter
		limit  int64
		offset int64
	}{
		{"zero values take defaults", ListFilter{}, 50, 0},
		{"explicit values pass through", ListFilter{Limit: 25, Offset: 100}, 25, 100},
		{"limit above the cap resets", ListFilter{Limit: 500}, 50, 0},
		{"negative offset floors at zero", ListFilter{Limit: 10, Offset: -5}, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limit, offset := tc.filter.Clamp()
			if limit != tc.limit || offset != tc.offset {
				t.Fatalf("expected (%d, %d), got (%d, %d)", tc.limit, tc.offset, limit, offset)
			}
		})
	}
}

func TestChangeDue(t *testing.T) {
	cases := []struct {
		name     string
		received float64
		total    float64
		change   float64
	}{
		{"overpayment", 20.00, 14.30, 5.70},
		{"exact payment", 14.30, 14.30, 0},
		{"shortfall goes negative", 10.00, 14.30, -4.30},
		{"result rounds to cents", 20.00, 19.90, 0.10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := changeDue(tc.received, tc.total); got != tc.change {
				t.Fatalf("expected change %.2f, got %.2f", tc.change, got)
			}
		})
	}
}

func TestAppendCancellationNote(t *testing.T) {
	got := appendCancellationNote(nil, 7, "customer left")
	if got != "[CANCELLED by user_id:7] customer left" {
		t.Fatalf("unexpected note: %q", got)
	}

	existing := "extra sauce on the side"
	got = appendCancellationNote(&existing, 3, "wrong table")
	expected := "extra sauce on the side\n[CANCELLED by user_id:3] wrong table"
	if got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}

	blank := "   "
	got = appendCancellationNote(&blank, 1, "test")
	if got != "[CANCELLED by user_id:1] test" {
		t.Fatalf("blank notes should be replaced, got %q", got)
	}
}

func TestFormatOrderNumber(t *testing.T) {
	day := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)

	if got := formatOrderNumber(day, 1); got != "ORD-20250309-0001" {
		t.Fatalf("unexpected order number: %s", got)
	}
	if got := formatOrderNumber(day, 42); got != "ORD-20250309-0042" {
		t.Fatalf("unexpected order number: %s", got)
	}
	if got := formatOrderNumber(day, 10000); got != "ORD-20250309-10000" {
		t.Fatalf("sequence past 9999 should widen, got %s", got)
	}
}

// The sequence lookup matches on the same prefix string the formatter
// emits, so the count and the generated number always agree on the
// calendar day even when the database clock has already rolled over.
func TestOrderNumberPrefix(t *testing.T) {
	beforeMidnight := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)

	prefix := orderNumberPrefix(beforeMidnight)
	if prefix != "ORD-20250309-" {
		t.Fatalf("unexpected prefix: %s", prefix)
	}
	if got := formatOrderNumber(beforeMidnight, 2); got != prefix+"0002" {
		t.Fatalf("formatted number %s does not extend prefix %s", got, prefix)
	}
}
