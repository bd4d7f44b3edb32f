package repositories

import "errors"

// Sentinel errors shared by all repository implementations. Callers branch on
// these with errors.Is instead of matching message text.
var (
	// ErrNotFound is wrapped by repositories when the requested record does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrStockConflict is returned by DecrementQuantity when the guarded
	// update matched no row: the product is gone or its quantity dropped
	// below the requested amount since it was read.
	ErrStockConflict = errors.New("stock conflict")
)
