package account

import (
	"context"

	domain "courtside/internal/domain/ledger"
)

// Store persists user account balances and their append-only transaction log.
//
// Accounts are created lazily: GetAccount returns a zero-balance account for
// unknown users, and the first ApplyChange writes the row.
type Store interface {
	GetAccount(ctx context.Context, userID string) (domain.Account, error)
	// ApplyChange persists the mutated account and its Transaction record in
	// one atomic unit. A balance write without its transaction row (or vice
	// versa) must be impossible.
	ApplyChange(ctx context.Context, acct domain.Account, tx domain.Transaction) error
	// ListTransactions returns a page of the user's transactions, newest first.
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error)
}
