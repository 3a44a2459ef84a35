package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"courtside/internal/application/ledgerops"
	"courtside/internal/domain/ledger"
)

// TopUpInput carries a balance credit request.
type TopUpInput struct {
	UserID   string
	Currency ledger.Currency
	Amount   int64
}

// TopUpDeps holds dependencies for TopUp.
type TopUpDeps struct {
	Ledger LedgerService
}

// ExecuteTopUp credits a user's balance. Payment capture happens upstream;
// this records the resulting ledger movement.
// PRE: Amount is positive, Currency is valid
// POST: The balance total grew by Amount with a credit transaction recorded
func ExecuteTopUp(ctx context.Context, input TopUpInput, deps TopUpDeps) error {
	if input.Amount <= 0 {
		return errors.New("top-up amount must be positive")
	}
	if !input.Currency.Valid() {
		return errors.New("top-up currency must be money or points")
	}

	ref := ledgerops.Ref{Concept: ConceptTopUp}
	if err := deps.Ledger.Credit(ctx, input.UserID, input.Currency, input.Amount, ref); err != nil {
		return err
	}

	slog.Info("account_topup", "user_id", input.UserID, "currency", string(input.Currency), "amount", input.Amount)
	return nil
}
