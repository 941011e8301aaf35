package sim

import "errors"

// Error kinds returned by the simulation core. Callers match with
// errors.Is; the wrapped message carries the offending id and the
// required vs. available quantity or funds.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotStarted        = errors.New("task not started")
	ErrAlreadyComplete   = errors.New("task duration already reached")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state for operation")
	ErrInvalidArgument   = errors.New("invalid argument")
)
