package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchArcherConflict = errors.New("archer already attached to this match")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the duration of the
	// transaction. Finishing a match and appending arrows read, check and
	// write under this lock so two concurrent calls cannot both pass the
	// finished or series-length guard.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	SetFinished(ctx context.Context, exec SQLExecutor, id int) error
	Delete(ctx context.Context, id int) error
	AddArcher(ctx context.Context, exec SQLExecutor, matchID, archerID int) error
	ListArchers(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Archer, error)
	// CountByArcher returns, per archer, the number of matches in the
	// tournament that archer is attached to. Missing archers count as zero.
	CountByArcher(ctx context.Context, exec SQLExecutor, tournamentID int) (map[int]int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, format, stage, finished, created_at, updated_at`

func scanMatch(row interface{ Scan(dest ...interface{}) error }, m *models.Match) error {
	return row.Scan(&m.ID, &m.TournamentID, &m.Format, &m.Stage, &m.Finished, &m.CreatedAt, &m.UpdatedAt)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, format, stage)
		VALUES ($1, $2, $3)
		RETURNING id, finished, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, m.TournamentID, m.Format, m.Stage).
		Scan(&m.ID, &m.Finished, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) getByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	m := &models.Match{}
	err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getByID(ctx, exec, id, false)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getByID(ctx, exec, id, true)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches by tournament: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := scanMatch(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

// SetFinished flips the finished flag. The flag is monotonic: there is no
// query to reset it.
func (r *postgresMatchRepository) SetFinished(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE matches SET finished = TRUE, updated_at = NOW() WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark match finished: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM matches WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) AddArcher(ctx context.Context, exec SQLExecutor, matchID, archerID int) error {
	query := `INSERT INTO match_archers (match_id, archer_id) VALUES ($1, $2)`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, matchID, archerID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrMatchArcherConflict
			case "23503":
				if pqErr.Constraint == "match_archers_archer_id_fkey" {
					return ErrArcherNotFound
				}
				return ErrMatchNotFound
			}
		}
		return fmt.Errorf("failed to attach archer to match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) ListArchers(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Archer, error) {
	query := `
		SELECT a.id, a.name, a.position, a.accuracy, a.photo_key, a.created_at
		FROM match_archers ma
		JOIN archers a ON a.id = ma.archer_id
		WHERE ma.match_id = $1
		ORDER BY a.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match archers: %w", err)
	}
	defer rows.Close()

	archers := make([]models.Archer, 0)
	for rows.Next() {
		var a models.Archer
		if err := rows.Scan(&a.ID, &a.Name, &a.Position, &a.Accuracy, &a.PhotoKey, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match archer row: %w", err)
		}
		archers = append(archers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match archer rows: %w", err)
	}
	return archers, nil
}

func (r *postgresMatchRepository) CountByArcher(ctx context.Context, exec SQLExecutor, tournamentID int) (map[int]int, error) {
	query := `
		SELECT ma.archer_id, COUNT(*)
		FROM match_archers ma
		JOIN matches m ON m.id = ma.match_id
		WHERE m.tournament_id = $1
		GROUP BY ma.archer_id`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches by archer: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var archerID, count int
		if err := rows.Scan(&archerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan match count row: %w", err)
		}
		counts[archerID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match count rows: %w", err)
	}
	return counts, nil
}
