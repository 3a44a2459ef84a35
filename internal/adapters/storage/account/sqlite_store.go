package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"courtside/internal/adapters/storage"
	domain "courtside/internal/domain/ledger"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetAccount retrieves a user's balances, or a zero account if none exists yet.
// PRE: userID is non-empty
// POST: Returns the account; missing rows yield zero balances, not an error
func (s *SQLiteStore) GetAccount(ctx context.Context, userID string) (domain.Account, error) {
	acct := domain.Account{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT money_total, money_blocked, points_total, points_blocked
		FROM user_account WHERE user_id = ?`, userID).Scan(
		&acct.Money.Total,
		&acct.Money.Blocked,
		&acct.Points.Total,
		&acct.Points.Blocked,
	)
	if err == sql.ErrNoRows {
		return acct, nil
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

// ApplyChange writes the account balances and the transaction row atomically.
// PRE: acct passed Validate; tx passed Validate and snapshots acct's new state
// POST: Both rows persisted, or neither
func (s *SQLiteStore) ApplyChange(ctx context.Context, acct domain.Account, tx domain.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO user_account (user_id, money_total, money_blocked, points_total, points_blocked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			money_total=excluded.money_total,
			money_blocked=excluded.money_blocked,
			points_total=excluded.points_total,
			points_blocked=excluded.points_blocked`,
		acct.UserID,
		acct.Money.Total,
		acct.Money.Blocked,
		acct.Points.Total,
		acct.Points.Blocked,
	)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}

	var activityID, participationID interface{}
	if tx.ActivityID != "" {
		activityID = tx.ActivityID
	}
	if tx.ParticipationID != "" {
		participationID = tx.ParticipationID
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO ledger_transaction
		(id, user_id, currency, action, amount, total_after, blocked_after, concept, activity_id, participation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.UserID,
		string(tx.Currency),
		string(tx.Action),
		tx.Amount,
		tx.TotalAfter,
		tx.BlockedAfter,
		tx.Concept,
		activityID,
		participationID,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}

	return dbTx.Commit()
}

// ListTransactions returns the user's transaction history, newest first.
// PRE: userID is non-empty, limit > 0, offset >= 0
// POST: Returns up to limit records ordered by created_at descending,
// skipping the first offset records
func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, currency, action, amount, total_after, blocked_after, concept, activity_id, participation_id, created_at
		FROM ledger_transaction WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var currency, action, createdStr string
		var activityID, participationID sql.NullString
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&currency,
			&action,
			&tx.Amount,
			&tx.TotalAfter,
			&tx.BlockedAfter,
			&tx.Concept,
			&activityID,
			&participationID,
			&createdStr,
		); err != nil {
			return nil, err
		}
		tx.Currency = domain.Currency(currency)
		tx.Action = domain.Action(action)
		if activityID.Valid {
			tx.ActivityID = activityID.String
		}
		if participationID.Valid {
			tx.ParticipationID = participationID.String
		}
		tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		results = append(results, tx)
	}
	return results, rows.Err()
}
