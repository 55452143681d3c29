package ledger

import "errors"

// Domain errors returned by the mutating ledger operations. These are
// expected, recoverable outcomes for the caller to surface; they never
// leave the ledger in a partially mutated state.
var (
	// ErrPriceUnavailable means no quote has been seen yet for the symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInsufficientBalance means the required margin exceeds the cash balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPositionNotFound means the id does not reference an open position.
	ErrPositionNotFound = errors.New("position not found")
)
