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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name conflict for this tournament")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error)
	UpdateName(ctx context.Context, id int, name string) error
	UpdateProgress(ctx context.Context, exec SQLExecutor, team *models.Team) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, tournamentID, number int) error
	NextNumber(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, tournament_id, name, number, qualifiers_place, finals_place,
	tie_break_qualifiers, tie_break_finals, created_at, updated_at`

func scanTeam(row interface{ Scan(dest ...interface{}) error }, t *models.Team) error {
	return row.Scan(
		&t.ID, &t.TournamentID, &t.Name, &t.Number,
		&t.QualifiersPlace, &t.FinalsPlace,
		&t.TieBreakQualifiers, &t.TieBreakFinals,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Team) error {
	query := `
		INSERT INTO teams (tournament_id, name, number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, t.TournamentID, t.Name, t.Number).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrTeamNameConflict
			case "23503":
				return ErrTournamentNotFound
			}
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	t := &models.Team{}
	err := scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by id: %w", err)
	}
	return t, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = $1 ORDER BY number ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by tournament: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t := &models.Team{}
		if err := scanTeam(rows, t); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) UpdateName(ctx context.Context, id int, name string) error {
	query := `UPDATE teams SET name = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTeamNameConflict
		}
		return fmt.Errorf("failed to update team name: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateProgress(ctx context.Context, exec SQLExecutor, t *models.Team) error {
	query := `
		UPDATE teams
		SET qualifiers_place = $1, finals_place = $2,
			tie_break_qualifiers = $3, tie_break_finals = $4,
			updated_at = NOW()
		WHERE id = $5`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		t.QualifiersPlace, t.FinalsPlace, t.TieBreakQualifiers, t.TieBreakFinals, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update team progress: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM teams WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, tournamentID, number int) error {
	query := `UPDATE teams SET number = number - 1 WHERE tournament_id = $1 AND number > $2`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, number); err != nil {
		return fmt.Errorf("failed to shift team numbers: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) NextNumber(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `SELECT COALESCE(MAX(number), 0) + 1 FROM teams WHERE tournament_id = $1`

	var next int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next team number: %w", err)
	}
	return next, nil
}
