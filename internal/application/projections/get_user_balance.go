// Package projections hosts read-only queries. Projections never mutate
// state and never take locks; they read whatever the stores currently hold.
package projections

import (
	"context"

	"courtside/internal/domain/ledger"
)

// UserBalanceStore defines the account store interface for the balance view.
type UserBalanceStore interface {
	GetAccount(ctx context.Context, userID string) (ledger.Account, error)
}

// UserBalanceDeps holds dependencies for the user balance projection.
type UserBalanceDeps struct {
	AccountStore UserBalanceStore
}

// BalanceView is one currency's balance split for the API.
type BalanceView struct {
	Total     int64 `json:"total"`
	Blocked   int64 `json:"blocked"`
	Available int64 `json:"available"`
}

// UserBalanceView is the full balance snapshot for one user.
type UserBalanceView struct {
	UserID string      `json:"user_id"`
	Money  BalanceView `json:"money"`
	Points BalanceView `json:"points"`
}

// QueryUserBalance returns the user's money and points balances. Users
// without any ledger history get an all-zero snapshot.
// PRE: userID is non-empty
// POST: Returns the snapshot with available = total - blocked per currency
func QueryUserBalance(ctx context.Context, userID string, deps UserBalanceDeps) (UserBalanceView, error) {
	account, err := deps.AccountStore.GetAccount(ctx, userID)
	if err != nil {
		return UserBalanceView{}, err
	}
	return UserBalanceView{
		UserID: userID,
		Money:  toBalanceView(account.Money),
		Points: toBalanceView(account.Points),
	}, nil
}

func toBalanceView(b ledger.Balance) BalanceView {
	return BalanceView{Total: b.Total, Blocked: b.Blocked, Available: b.Available()}
}
