package participation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"courtside/internal/adapters/storage"
	"courtside/internal/domain/ledger"
	domain "courtside/internal/domain/participation"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new participation store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectColumns = `id, activity_id, user_id, option_size, status, blocked_amount, currency, was_confirmed, is_recycled, created_at, cancelled_at`

// GetByID retrieves a Participation by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Participation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM participation WHERE id = ?", id)
	entity, err := scanParticipation(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Participation{}, ErrNotFound
	}
	return entity, err
}

// Save persists a Participation.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Participation) error {
	var cancelledAt interface{}
	if !entity.CancelledAt.IsZero() {
		cancelledAt = entity.CancelledAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participation (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			blocked_amount=excluded.blocked_amount,
			was_confirmed=excluded.was_confirmed,
			is_recycled=excluded.is_recycled,
			cancelled_at=excluded.cancelled_at`,
		entity.ID,
		entity.ActivityID,
		entity.UserID,
		entity.OptionSize,
		string(entity.Status),
		entity.BlockedAmount,
		string(entity.Currency),
		boolToInt(entity.WasConfirmed),
		boolToInt(entity.IsRecycled),
		entity.CreatedAt.UTC().Format(time.RFC3339Nano),
		cancelledAt,
	)
	return err
}

// ListByActivity retrieves all participations on an activity in arrival order.
// PRE: activityID is non-empty
// POST: Returns all rows ordered by created_at ascending
func (s *SQLiteStore) ListByActivity(ctx context.Context, activityID string) ([]domain.Participation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM participation WHERE activity_id = ? ORDER BY created_at ASC", activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// GetActiveByActivityAndUser returns the user's non-cancelled participation.
// PRE: activityID and userID are non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetActiveByActivityAndUser(ctx context.Context, activityID, userID string) (domain.Participation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+` FROM participation
		WHERE activity_id = ? AND user_id = ? AND status != ?`,
		activityID, userID, string(domain.StatusCancelled))
	entity, err := scanParticipation(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Participation{}, ErrNotFound
	}
	return entity, err
}

// CountConfirmedByUserOnDate counts confirmed participations for the user on
// activities starting on the given day, excluding one activity if named.
// PRE: userID is non-empty, date is YYYY-MM-DD format
// POST: Returns the count for the daily-limit check
func (s *SQLiteStore) CountConfirmedByUserOnDate(ctx context.Context, userID, date, excludeActivityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participation p
		JOIN activity a ON a.id = p.activity_id
		WHERE p.user_id = ? AND p.status = ? AND SUBSTR(a.start_time, 1, 10) = ? AND p.activity_id != ?`,
		userID, string(domain.StatusConfirmed), date, excludeActivityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed on date: %w", err)
	}
	return count, nil
}

// ListByUser retrieves all participations for a user, newest first.
// PRE: userID is non-empty
// POST: Returns all rows ordered by created_at descending
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.Participation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM participation WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]domain.Participation, error) {
	var results []domain.Participation
	for rows.Next() {
		entity, err := scanParticipation(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanParticipation(scan func(dest ...any) error) (domain.Participation, error) {
	var entity domain.Participation
	var status, currency, createdStr string
	var cancelledStr sql.NullString
	var wasConfirmed, isRecycled int

	err := scan(
		&entity.ID,
		&entity.ActivityID,
		&entity.UserID,
		&entity.OptionSize,
		&status,
		&entity.BlockedAmount,
		&currency,
		&wasConfirmed,
		&isRecycled,
		&createdStr,
		&cancelledStr,
	)
	if err != nil {
		return domain.Participation{}, err
	}

	entity.Status = domain.Status(status)
	entity.Currency = ledger.Currency(currency)
	entity.WasConfirmed = wasConfirmed != 0
	entity.IsRecycled = isRecycled != 0

	entity.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if cancelledStr.Valid {
		entity.CancelledAt, err = time.Parse(time.RFC3339Nano, cancelledStr.String)
		if err != nil {
			return domain.Participation{}, fmt.Errorf("failed to parse cancelled_at: %w", err)
		}
	}
	return entity, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
