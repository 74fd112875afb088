package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/lib/pq"
)

var ErrSeriesNotFound = errors.New("series not found")

// ArcherSeries pairs a series with the format of the match it belongs to,
// for the rolling-accuracy computation.
type ArcherSeries struct {
	models.Series
	MatchFormat models.MatchFormat
}

type SeriesRepository interface {
	Create(ctx context.Context, exec SQLExecutor, series *models.Series) error
	FindByMatchAndArcher(ctx context.Context, exec SQLExecutor, matchID, archerID int) (*models.Series, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Series, error)
	ListByArcher(ctx context.Context, exec SQLExecutor, archerID int) ([]ArcherSeries, error)
	UpdateArrows(ctx context.Context, exec SQLExecutor, id int, arrowsRaw string) error
	Delete(ctx context.Context, id int) error
}

type postgresSeriesRepository struct {
	db *sql.DB
}

func NewPostgresSeriesRepository(db *sql.DB) SeriesRepository {
	return &postgresSeriesRepository{db: db}
}

func (r *postgresSeriesRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSeriesRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Series) error {
	query := `
		INSERT INTO series (match_id, archer_id, arrows_raw)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, s.MatchID, s.ArcherID, s.ArrowsRaw).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "series_archer_id_fkey" {
				return ErrArcherNotFound
			}
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to create series: %w", err)
	}
	return nil
}

func (r *postgresSeriesRepository) FindByMatchAndArcher(ctx context.Context, exec SQLExecutor, matchID, archerID int) (*models.Series, error) {
	query := `
		SELECT id, match_id, archer_id, arrows_raw, created_at, updated_at
		FROM series
		WHERE match_id = $1 AND archer_id = $2`

	s := &models.Series{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, archerID).
		Scan(&s.ID, &s.MatchID, &s.ArcherID, &s.ArrowsRaw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("failed to find series: %w", err)
	}
	return s, nil
}

func (r *postgresSeriesRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Series, error) {
	query := `
		SELECT s.id, s.match_id, s.archer_id, s.arrows_raw, s.created_at, s.updated_at,
			a.id, a.name, a.position, a.accuracy, a.photo_key, a.created_at
		FROM series s
		JOIN archers a ON a.id = s.archer_id
		WHERE s.match_id = $1
		ORDER BY s.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series by match: %w", err)
	}
	defer rows.Close()

	seriesList := make([]models.Series, 0)
	for rows.Next() {
		var s models.Series
		var a models.Archer
		err := rows.Scan(
			&s.ID, &s.MatchID, &s.ArcherID, &s.ArrowsRaw, &s.CreatedAt, &s.UpdatedAt,
			&a.ID, &a.Name, &a.Position, &a.Accuracy, &a.PhotoKey, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		s.Archer = &a
		seriesList = append(seriesList, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series rows: %w", err)
	}
	return seriesList, nil
}

func (r *postgresSeriesRepository) ListByArcher(ctx context.Context, exec SQLExecutor, archerID int) ([]ArcherSeries, error) {
	query := `
		SELECT s.id, s.match_id, s.archer_id, s.arrows_raw, s.created_at, s.updated_at, m.format
		FROM series s
		JOIN matches m ON m.id = s.match_id
		WHERE s.archer_id = $1
		ORDER BY s.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, archerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series by archer: %w", err)
	}
	defer rows.Close()

	seriesList := make([]ArcherSeries, 0)
	for rows.Next() {
		var s ArcherSeries
		err := rows.Scan(&s.ID, &s.MatchID, &s.ArcherID, &s.ArrowsRaw, &s.CreatedAt, &s.UpdatedAt, &s.MatchFormat)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archer series row: %w", err)
		}
		seriesList = append(seriesList, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archer series rows: %w", err)
	}
	return seriesList, nil
}

func (r *postgresSeriesRepository) UpdateArrows(ctx context.Context, exec SQLExecutor, id int, arrowsRaw string) error {
	query := `UPDATE series SET arrows_raw = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, arrowsRaw, id)
	if err != nil {
		return fmt.Errorf("failed to update series arrows: %w", err)
	}
	return checkAffectedRows(result, ErrSeriesNotFound)
}

func (r *postgresSeriesRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM series WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete series: %w", err)
	}
	return checkAffectedRows(result, ErrSeriesNotFound)
}
