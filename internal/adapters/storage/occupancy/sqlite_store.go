package occupancy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"courtside/internal/adapters/storage"
	domain "courtside/internal/domain/occupancy"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new occupancy store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an occupancy row.
// PRE: entity has been validated
// POST: Row is inserted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Occupancy) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resource_occupancy (id, resource_id, kind, activity_id, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entity.ID,
		entity.ResourceID,
		string(entity.Kind),
		entity.ActivityID,
		entity.Window.Start.UTC().Format(time.RFC3339Nano),
		entity.Window.End.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListByResource retrieves all occupancy rows for one resource.
// PRE: resourceID is non-empty
// POST: Returns rows ordered by start time
func (s *SQLiteStore) ListByResource(ctx context.Context, resourceID string) ([]domain.Occupancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, resource_id, kind, activity_id, start_time, end_time
		FROM resource_occupancy WHERE resource_id = ? ORDER BY start_time ASC`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListByActivity retrieves all occupancy rows tied to one activity.
// PRE: activityID is non-empty
// POST: Returns the activity's rows (court and instructor)
func (s *SQLiteStore) ListByActivity(ctx context.Context, activityID string) ([]domain.Occupancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, resource_id, kind, activity_id, start_time, end_time
		FROM resource_occupancy WHERE activity_id = ?`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// DeleteByActivity removes all occupancy rows for the activity. Idempotent.
// PRE: activityID is non-empty
// POST: No rows remain for the activity
func (s *SQLiteStore) DeleteByActivity(ctx context.Context, activityID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM resource_occupancy WHERE activity_id = ?", activityID)
	return err
}

func collect(rows *sql.Rows) ([]domain.Occupancy, error) {
	var results []domain.Occupancy
	for rows.Next() {
		var entity domain.Occupancy
		var kind, startStr, endStr string
		if err := rows.Scan(
			&entity.ID,
			&entity.ResourceID,
			&kind,
			&entity.ActivityID,
			&startStr,
			&endStr,
		); err != nil {
			return nil, err
		}
		entity.Kind = domain.Kind(kind)

		var err error
		entity.Window.Start, err = time.Parse(time.RFC3339Nano, startStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		entity.Window.End, err = time.Parse(time.RFC3339Nano, endStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
