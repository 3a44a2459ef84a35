package projections

import (
	"context"
	"time"

	"courtside/internal/application/listutil"
	"courtside/internal/domain/ledger"
)

// TransactionHistoryStore defines the account store interface for the
// transaction log view.
type TransactionHistoryStore interface {
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error)
}

// TransactionHistoryDeps holds dependencies for the history projection.
type TransactionHistoryDeps struct {
	AccountStore TransactionHistoryStore
}

// TransactionView is one audit log line for the API.
type TransactionView struct {
	ID              string    `json:"id"`
	Currency        string    `json:"currency"`
	Action          string    `json:"action"`
	Amount          int64     `json:"amount"`
	TotalAfter      int64     `json:"total_after"`
	BlockedAfter    int64     `json:"blocked_after"`
	Concept         string    `json:"concept"`
	ActivityID      string    `json:"activity_id,omitempty"`
	ParticipationID string    `json:"participation_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryTransactionHistory returns one page of the user's ledger transactions,
// newest first.
// PRE: userID is non-empty; page has been through listutil validation
// POST: Returns up to page.PerPage transactions starting at page.Offset()
func QueryTransactionHistory(ctx context.Context, userID string, page listutil.PageParams, deps TransactionHistoryDeps) ([]TransactionView, error) {
	transactions, err := deps.AccountStore.ListTransactions(ctx, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}

	views := make([]TransactionView, 0, len(transactions))
	for _, tx := range transactions {
		views = append(views, TransactionView{
			ID:              tx.ID,
			Currency:        string(tx.Currency),
			Action:          string(tx.Action),
			Amount:          tx.Amount,
			TotalAfter:      tx.TotalAfter,
			BlockedAfter:    tx.BlockedAfter,
			Concept:         tx.Concept,
			ActivityID:      tx.ActivityID,
			ParticipationID: tx.ParticipationID,
			CreatedAt:       tx.CreatedAt,
		})
	}
	return views, nil
}
