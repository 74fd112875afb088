package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict")
)

type ListTournamentsFilter struct {
	Format *models.TournamentFormat
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the duration of the
	// surrounding transaction. Stage advance, match generation and
	// participant renumbering all serialize on this lock.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Count(ctx context.Context, filter ListTournamentsFilter) (int, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStage(ctx context.Context, exec SQLExecutor, id int, stage models.TournamentStage) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	Delete(ctx context.Context, id int) error
	ListDueForStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, format, start_date, end_date, status, current_stage,
	advancing_count, target_count, banner_key, created_at, updated_at`

func scanTournament(row interface{ Scan(dest ...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Format, &t.StartDate, &t.EndDate, &t.Status, &t.CurrentStage,
		&t.AdvancingCount, &t.TargetCount, &t.BannerKey, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, format, start_date, end_date, status, current_stage,
			advancing_count, target_count, banner_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Format, t.StartDate, t.EndDate, t.Status, t.CurrentStage,
		t.AdvancingCount, t.TargetCount, t.BannerKey,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) getByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	t := &models.Tournament{}
	err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament by id: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, false)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, true)
}

func buildTournamentFilterClause(filter ListTournamentsFilter, args *[]interface{}) string {
	clause := ""
	if filter.Format != nil {
		*args = append(*args, *filter.Format)
		clause += fmt.Sprintf(" AND format = $%d", len(*args))
	}
	if filter.Status != nil {
		*args = append(*args, *filter.Status)
		clause += fmt.Sprintf(" AND status = $%d", len(*args))
	}
	return clause
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	args := make([]interface{}, 0, 4)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE TRUE` +
		buildTournamentFilterClause(filter, &args) +
		` ORDER BY start_date DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Count(ctx context.Context, filter ListTournamentsFilter) (int, error) {
	args := make([]interface{}, 0, 2)
	query := `SELECT COUNT(*) FROM tournaments WHERE TRUE` + buildTournamentFilterClause(filter, &args)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return count, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, start_date = $2, end_date = $3, status = $4,
			advancing_count = $5, target_count = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.StartDate, t.EndDate, t.Status, t.AdvancingCount, t.TargetCount, t.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStage(ctx context.Context, exec SQLExecutor, id int, stage models.TournamentStage) error {
	query := `UPDATE tournaments SET current_stage = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, stage, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament stage: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListDueForStatusUpdate returns upcoming tournaments whose start date has
// passed. Used by the status scheduler in cmd/main.go.
func (r *postgresTournamentRepository) ListDueForStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments
		WHERE status = $1 AND start_date <= $2`

	rows, err := r.db.QueryContext(ctx, query, models.StatusUpcoming, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments due for status update: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if err := scanTournament(rows, t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}
