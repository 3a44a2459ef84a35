package ledger

import (
	"errors"
	"time"
)

// Currency identifies which balance an operation touches.
type Currency string

const (
	CurrencyMoney  Currency = "money"
	CurrencyPoints Currency = "points"
)

// Valid reports whether the currency is one of the known values.
func (c Currency) Valid() bool {
	return c == CurrencyMoney || c == CurrencyPoints
}

// Action is the kind of ledger mutation recorded in a Transaction.
type Action string

const (
	ActionBlock   Action = "block"
	ActionUnblock Action = "unblock"
	ActionDebit   Action = "debit"
	ActionCredit  Action = "credit"
)

// MinorUnitsPerPoint is the conversion rate from money minor units to whole
// loyalty points: one point per major money unit, floored.
const MinorUnitsPerPoint = 100

// ConceptCompensation is the transaction concept written when a confirmed
// participation is given up in exchange for points.
const ConceptCompensation = "compensation"

// Balance is the total/blocked pair for one currency.
// INVARIANT: 0 <= Blocked <= Total
type Balance struct {
	Total   int64
	Blocked int64
}

// Available returns the spendable amount (total minus blocked).
func (b Balance) Available() int64 {
	return b.Total - b.Blocked
}

// CanBlock reports whether `amount` can be blocked without overdrawing.
func (b Balance) CanBlock(amount int64) bool {
	return amount >= 0 && b.Available() >= amount
}

// Check validates the balance invariant.
// POST: Returns error if Blocked exceeds Total or either is negative
func (b Balance) Check() error {
	if b.Total < 0 || b.Blocked < 0 {
		return errors.New("balance must not be negative")
	}
	if b.Blocked > b.Total {
		return errors.New("blocked amount exceeds total")
	}
	return nil
}

// Account holds both per-user balances. Mutated only through ledger
// operations, each paired with exactly one Transaction.
type Account struct {
	UserID string
	Money  Balance
	Points Balance
}

// BalanceFor returns the balance for the given currency.
func (a Account) BalanceFor(c Currency) Balance {
	if c == CurrencyPoints {
		return a.Points
	}
	return a.Money
}

// SetBalance replaces the balance for the given currency.
func (a *Account) SetBalance(c Currency, b Balance) {
	if c == CurrencyPoints {
		a.Points = b
	} else {
		a.Money = b
	}
}

// Validate checks account consistency across both currencies.
func (a Account) Validate() error {
	if a.UserID == "" {
		return errors.New("account must belong to a user")
	}
	if err := a.Money.Check(); err != nil {
		return err
	}
	return a.Points.Check()
}

// PointsForMinorUnits converts a money amount in minor units to whole points,
// flooring any remainder.
func PointsForMinorUnits(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / MinorUnitsPerPoint
}

// Transaction is an immutable audit record of one balance mutation. It is
// created together with the mutation and never updated or deleted.
type Transaction struct {
	ID              string
	UserID          string
	Currency        Currency
	Action          Action
	Amount          int64
	TotalAfter      int64 // balance snapshot after the mutation
	BlockedAfter    int64
	Concept         string
	ActivityID      string // optional link
	ParticipationID string // optional link
	CreatedAt       time.Time
}

// Validate checks required transaction fields.
// POST: Returns error if the record could not be audited meaningfully
func (t Transaction) Validate() error {
	if t.UserID == "" {
		return errors.New("transaction must belong to a user")
	}
	if !t.Currency.Valid() {
		return errors.New("transaction has unknown currency")
	}
	switch t.Action {
	case ActionBlock, ActionUnblock, ActionDebit, ActionCredit:
	default:
		return errors.New("transaction has unknown action")
	}
	if t.Amount < 0 {
		return errors.New("transaction amount must not be negative")
	}
	if t.CreatedAt.IsZero() {
		return errors.New("transaction timestamp must be set")
	}
	return nil
}
