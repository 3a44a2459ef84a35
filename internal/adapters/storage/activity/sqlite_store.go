package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"courtside/internal/adapters/storage"
	domain "courtside/internal/domain/activity"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new activity store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Activity and its options by id.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Activity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, club_id, instructor_id, court_id, start_time, end_time, max_players, has_recycled_vacancy
		FROM activity WHERE id = ?`, id)

	entity, err := scanActivity(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Activity{}, ErrNotFound
	}
	if err != nil {
		return domain.Activity{}, err
	}

	entity.Options, err = s.loadOptions(ctx, entity.ID)
	return entity, err
}

func (s *SQLiteStore) loadOptions(ctx context.Context, activityID string) ([]domain.Option, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT size, price FROM activity_option WHERE activity_id = ? ORDER BY size ASC", activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.Size, &opt.Price); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// Save persists an Activity and replaces its option rows.
// PRE: entity has been validated
// POST: Entity and options are persisted atomically (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Activity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var courtID interface{}
	if entity.CourtID != "" {
		courtID = entity.CourtID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO activity (id, club_id, instructor_id, court_id, start_time, end_time, max_players, has_recycled_vacancy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			club_id=excluded.club_id,
			instructor_id=excluded.instructor_id,
			court_id=excluded.court_id,
			start_time=excluded.start_time,
			end_time=excluded.end_time,
			max_players=excluded.max_players,
			has_recycled_vacancy=excluded.has_recycled_vacancy`,
		entity.ID,
		entity.ClubID,
		entity.InstructorID,
		courtID,
		entity.Start.UTC().Format(time.RFC3339Nano),
		entity.End.UTC().Format(time.RFC3339Nano),
		entity.MaxPlayers,
		boolToInt(entity.HasRecycledVacancy),
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM activity_option WHERE activity_id = ?", entity.ID); err != nil {
		return err
	}
	for _, opt := range entity.Options {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activity_option (activity_id, size, price) VALUES (?, ?, ?)",
			entity.ID, opt.Size, opt.Price); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes an Activity and its option rows.
// PRE: id is non-empty; caller has verified the activity is empty
// POST: Entity and options are removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM activity_option WHERE activity_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM activity WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByClubAndDate retrieves a club's activities starting on a calendar day.
// PRE: clubID is non-empty, date is YYYY-MM-DD format
// POST: Returns matching activities ordered by start time
func (s *SQLiteStore) ListByClubAndDate(ctx context.Context, clubID string, date string) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, club_id, instructor_id, court_id, start_time, end_time, max_players, has_recycled_vacancy
		FROM activity
		WHERE club_id = ? AND SUBSTR(start_time, 1, 10) = ?
		ORDER BY start_time ASC`, clubID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Activity
	for rows.Next() {
		entity, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		results[i].Options, err = s.loadOptions(ctx, results[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ListPastEmptyIDs returns ids of ended activities with zero participations.
// PRE: before is the cleanup cutoff
// POST: Returns candidate ids for housekeeping deletion
func (s *SQLiteStore) ListPastEmptyIDs(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id FROM activity a
		LEFT JOIN participation p ON p.activity_id = a.id
		WHERE a.end_time < ? AND p.id IS NULL`,
		before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanActivity maps one activity row through the given scan function.
func scanActivity(scan func(dest ...any) error) (domain.Activity, error) {
	var entity domain.Activity
	var courtID sql.NullString
	var startStr, endStr string
	var recycled int

	err := scan(
		&entity.ID,
		&entity.ClubID,
		&entity.InstructorID,
		&courtID,
		&startStr,
		&endStr,
		&entity.MaxPlayers,
		&recycled,
	)
	if err != nil {
		return domain.Activity{}, err
	}

	if courtID.Valid {
		entity.CourtID = courtID.String
	}
	entity.HasRecycledVacancy = recycled != 0

	entity.Start, err = time.Parse(time.RFC3339Nano, startStr)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	entity.End, err = time.Parse(time.RFC3339Nano, endStr)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	return entity, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
