package orders

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidState is returned when an operation is attempted against an
	// order whose status does not permit it, e.g. updating a completed order.
	ErrInvalidState    = errors.New("order state does not permit this operation")
	ErrNoItems         = errors.New("order must contain at least one item")
	ErrProductNotFound = errors.New("product not found or inactive")
)
