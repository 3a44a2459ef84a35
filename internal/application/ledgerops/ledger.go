// Package ledgerops implements the balance ledger: per-user blocked/available
// amounts for money and loyalty points, with an append-only transaction log.
// Every operation is serialized on its (user, currency) key and writes the
// balance mutation and its transaction record as one atomic unit.
package ledgerops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courtside/internal/application/keylock"
	domain "courtside/internal/domain/ledger"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientFunds is returned when a block would exceed the
	// available balance. No state is mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvariantViolation indicates ledger corruption (e.g. settling more
	// than is blocked). The operation is aborted and must be audited, never
	// clamped.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// Store is the persistence the ledger needs.
type Store interface {
	GetAccount(ctx context.Context, userID string) (domain.Account, error)
	ApplyChange(ctx context.Context, acct domain.Account, tx domain.Transaction) error
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error)
}

// Ref carries the audit context written into each transaction record.
type Ref struct {
	Concept         string
	ActivityID      string
	ParticipationID string
}

// Ledger performs balance operations. GenerateID and Now are injectable for
// tests and default to uuid / wall clock.
type Ledger struct {
	Store      Store
	Locks      *keylock.Manager
	GenerateID func() string
	Now        func() time.Time
}

// New creates a Ledger with default ID and clock functions.
// PRE: store and locks are non-nil
// POST: Returns a ready Ledger
func New(store Store, locks *keylock.Manager) *Ledger {
	return &Ledger{
		Store:      store,
		Locks:      locks,
		GenerateID: func() string { return uuid.New().String() },
		Now:        time.Now,
	}
}

// Block reserves amount against the user's available balance.
// PRE: amount > 0
// POST: blocked increased by amount and a block transaction written, or
// ErrInsufficientFunds with no state change
func (l *Ledger) Block(ctx context.Context, userID string, currency domain.Currency, amount int64, ref Ref) error {
	return l.mutate(ctx, userID, currency, func(b domain.Balance) (domain.Balance, error) {
		if !b.CanBlock(amount) {
			return b, ErrInsufficientFunds
		}
		b.Blocked += amount
		return b, nil
	}, domain.ActionBlock, amount, ref)
}

// Unblock releases a previously blocked amount. Releasing more than is
// blocked indicates a caller bug; the balance is floored at zero and the
// anomaly logged.
// PRE: amount > 0
// POST: blocked decreased by amount (floored at 0), unblock transaction written
func (l *Ledger) Unblock(ctx context.Context, userID string, currency domain.Currency, amount int64, ref Ref) error {
	return l.mutate(ctx, userID, currency, func(b domain.Balance) (domain.Balance, error) {
		if b.Blocked < amount {
			slog.Error("ledger_unblock_exceeds_blocked",
				"user_id", userID, "currency", currency, "amount", amount, "blocked", b.Blocked)
			b.Blocked = 0
			return b, nil
		}
		b.Blocked -= amount
		return b, nil
	}, domain.ActionUnblock, amount, ref)
}

// Settle converts a hold into an actual debit: total and blocked both drop.
// PRE: amount was previously blocked for this commitment
// POST: total and blocked decreased by amount, debit transaction written;
// ErrInvariantViolation if blocked < amount (processing for this account
// must stop and be audited)
func (l *Ledger) Settle(ctx context.Context, userID string, currency domain.Currency, amount int64, ref Ref) error {
	return l.mutate(ctx, userID, currency, func(b domain.Balance) (domain.Balance, error) {
		if b.Blocked < amount {
			slog.Error("ledger_corruption_detected",
				"user_id", userID, "currency", currency, "settle_amount", amount, "blocked", b.Blocked)
			return b, fmt.Errorf("settle %d with only %d blocked: %w", amount, b.Blocked, ErrInvariantViolation)
		}
		b.Total -= amount
		b.Blocked -= amount
		return b, nil
	}, domain.ActionDebit, amount, ref)
}

// Credit tops up the available balance outside the block/settle flow.
// PRE: amount > 0
// POST: total increased by amount, credit transaction written
func (l *Ledger) Credit(ctx context.Context, userID string, currency domain.Currency, amount int64, ref Ref) error {
	return l.mutate(ctx, userID, currency, func(b domain.Balance) (domain.Balance, error) {
		b.Total += amount
		return b, nil
	}, domain.ActionCredit, amount, ref)
}

// GrantCompensation converts a settled money amount into whole loyalty
// points (one point per major money unit, floored) and credits them. Used
// exclusively when a confirmed participation is given up.
// PRE: moneyAmount is the settled amount in minor units
// POST: points credited with concept "compensation"; returns points granted
func (l *Ledger) GrantCompensation(ctx context.Context, userID string, moneyAmount int64, ref Ref) (int64, error) {
	points := domain.PointsForMinorUnits(moneyAmount)
	ref.Concept = domain.ConceptCompensation
	err := l.mutate(ctx, userID, domain.CurrencyPoints, func(b domain.Balance) (domain.Balance, error) {
		b.Total += points
		return b, nil
	}, domain.ActionCredit, points, ref)
	if err != nil {
		return 0, err
	}
	return points, nil
}

// Balance returns both of the user's balances.
func (l *Ledger) Balance(ctx context.Context, userID string) (domain.Account, error) {
	return l.Store.GetAccount(ctx, userID)
}

// History returns a page of the user's transactions, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error) {
	return l.Store.ListTransactions(ctx, userID, limit, offset)
}

// mutate runs one serialized balance change: acquire the (user, currency)
// lock, load, apply, verify invariants, persist with its transaction record.
func (l *Ledger) mutate(ctx context.Context, userID string, currency domain.Currency,
	apply func(domain.Balance) (domain.Balance, error), action domain.Action, amount int64, ref Ref) error {

	if userID == "" {
		return errors.New("ledger operation requires a user")
	}
	if !currency.Valid() {
		return fmt.Errorf("unknown currency %q", currency)
	}
	if amount < 0 {
		return fmt.Errorf("ledger amount must not be negative, got %d", amount)
	}

	release, err := l.Locks.Acquire(ctx, keylock.AccountKey(userID, string(currency)))
	if err != nil {
		return err
	}
	defer release()

	acct, err := l.Store.GetAccount(ctx, userID)
	if err != nil {
		return err
	}

	balance, err := apply(acct.BalanceFor(currency))
	if err != nil {
		return err
	}
	if err := balance.Check(); err != nil {
		slog.Error("ledger_corruption_detected",
			"user_id", userID, "currency", currency, "action", action, "error", err)
		return fmt.Errorf("%s for %s: %v: %w", action, userID, err, ErrInvariantViolation)
	}
	acct.SetBalance(currency, balance)

	tx := domain.Transaction{
		ID:              l.GenerateID(),
		UserID:          userID,
		Currency:        currency,
		Action:          action,
		Amount:          amount,
		TotalAfter:      balance.Total,
		BlockedAfter:    balance.Blocked,
		Concept:         ref.Concept,
		ActivityID:      ref.ActivityID,
		ParticipationID: ref.ParticipationID,
		CreatedAt:       l.Now(),
	}
	if err := tx.Validate(); err != nil {
		return err
	}

	if err := l.Store.ApplyChange(ctx, acct, tx); err != nil {
		return fmt.Errorf("apply ledger change: %w", err)
	}

	slog.Info("ledger_"+string(action),
		"user_id", userID, "currency", currency, "amount", amount,
		"total", balance.Total, "blocked", balance.Blocked)
	return nil
}
