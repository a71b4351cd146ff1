package orders

import "time"

// Order lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment statuses carried on the order row.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// TaxRate is applied to every order's item subtotal.
const TaxRate = 0.10

type Order struct {
	ID             int64       `json:"id"`
	OrderNumber    string      `json:"orderNumber"`
	TableID        *int64      `json:"tableId"`
	TableNumber    *string     `json:"tableNumber,omitempty"`
	UserID         int64       `json:"userId"`
	CashierName    *string     `json:"cashierName,omitempty"`
	Status         string      `json:"status"`
	PaymentStatus  string      `json:"paymentStatus"`
	PaymentMethod  *string     `json:"paymentMethod"`
	Subtotal       float64     `json:"subtotal"`
	TaxRate        float64     `json:"taxRate"`
	TaxAmount      float64     `json:"taxAmount"`
	DiscountAmount float64     `json:"discountAmount"`
	Total          float64     `json:"total"`
	Notes          *string     `json:"notes"`
	ItemCount      int64       `json:"itemCount"`
	Items          []OrderItem `json:"items,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty"`
	CancelledAt    *time.Time  `json:"cancelledAt,omitempty"`
}

type OrderItem struct {
	ID             int64   `json:"id"`
	OrderID        int64   `json:"orderId"`
	ProductID      int64   `json:"productId"`
	ProductName    string  `json:"productName"`
	ProductImage   *string `json:"productImage,omitempty"`
	Quantity       int64   `json:"quantity"`
	UnitPrice      float64 `json:"unitPrice"`
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discountAmount"`
	Total          float64 `json:"total"`
	Notes          *string `json:"notes,omitempty"`
}

type Payment struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"orderId"`
	PaymentMethod  string    `json:"paymentMethod"`
	Amount         float64   `json:"amount"`
	AmountReceived float64   `json:"amountReceived"`
	ChangeAmount   float64   `json:"changeAmount"`
	Status         string    `json:"status"`
	ProcessedBy    int64     `json:"processedBy"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ItemInput is one order line as submitted by the caller. Monetary fields on
// the stored item are always recomputed server side.
type ItemInput struct {
	ProductID      int64   `json:"productId"`
	Quantity       int64   `json:"quantity"`
	DiscountAmount float64 `json:"discountAmount"`
	Notes          *string `json:"notes"`
}

type CreateParams struct {
	TableID *int64
	UserID  int64
	Notes   *string
	Items   []ItemInput
}

type UpdateParams struct {
	OrderID int64
	UserID  int64
	TableID *int64
	Notes   *string
	Items   []ItemInput
}

type CompleteParams struct {
	OrderID        int64
	UserID         int64
	PaymentMethod  string
	AmountReceived float64
	Notes          *string
}

type CancelParams struct {
	OrderID int64
	UserID  int64
	Reason  string
}

type ListFilter struct {
	Status   string
	TableID  *int64
	UserID   *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int64
	Offset   int64
}

// Clamp returns the paging values List actually applies: a limit outside
// (0, 200] falls back to 50 and a negative offset floors at zero.
func (f ListFilter) Clamp() (limit, offset int64) {
	limit = f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
