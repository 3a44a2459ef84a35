package court

import (
	"context"
	"database/sql"

	"courtside/internal/adapters/storage"
	domain "courtside/internal/domain/court"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new court store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Court by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Court, error) {
	var entity domain.Court
	err := s.db.QueryRowContext(ctx,
		"SELECT id, club_id, number, name FROM court WHERE id = ?", id).Scan(
		&entity.ID, &entity.ClubID, &entity.Number, &entity.Name)
	if err == sql.ErrNoRows {
		return domain.Court{}, ErrNotFound
	}
	return entity, err
}

// Save persists a Court.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Court) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO court (id, club_id, number, name) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET club_id=excluded.club_id, number=excluded.number, name=excluded.name`,
		entity.ID, entity.ClubID, entity.Number, entity.Name)
	return err
}

// ListByClub retrieves a club's courts ordered by ascending number.
// PRE: clubID is non-empty
// POST: Returns courts in stable assignment order
func (s *SQLiteStore) ListByClub(ctx context.Context, clubID string) ([]domain.Court, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, club_id, number, name FROM court WHERE club_id = ? ORDER BY number ASC", clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Court
	for rows.Next() {
		var entity domain.Court
		if err := rows.Scan(&entity.ID, &entity.ClubID, &entity.Number, &entity.Name); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
