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
	ErrRosterEntryNotFound = errors.New("team roster entry not found")
	ErrRosterConflict      = errors.New("archer is already on this team")
)

// RosterRepository управляет archer_team_links — составами команд.
type RosterRepository interface {
	Add(ctx context.Context, exec SQLExecutor, link *models.ArcherTeamLink) error
	Find(ctx context.Context, exec SQLExecutor, teamID, archerID int) (*models.ArcherTeamLink, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]models.ArcherTeamLink, error)
	Remove(ctx context.Context, exec SQLExecutor, teamID, archerID int) error
	ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, teamID, number int) error
	NextNumber(ctx context.Context, exec SQLExecutor, teamID int) (int, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) Add(ctx context.Context, exec SQLExecutor, link *models.ArcherTeamLink) error {
	query := `INSERT INTO archer_team_links (team_id, archer_id, number) VALUES ($1, $2, $3)`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, link.TeamID, link.ArcherID, link.Number)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrRosterConflict
			case "23503":
				if pqErr.Constraint == "archer_team_links_archer_id_fkey" {
					return ErrArcherNotFound
				}
				return ErrTeamNotFound
			}
		}
		return fmt.Errorf("failed to add archer to team roster: %w", err)
	}
	return nil
}

func (r *postgresRosterRepository) Find(ctx context.Context, exec SQLExecutor, teamID, archerID int) (*models.ArcherTeamLink, error) {
	query := `SELECT team_id, archer_id, number FROM archer_team_links WHERE team_id = $1 AND archer_id = $2`

	link := &models.ArcherTeamLink{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, teamID, archerID).
		Scan(&link.TeamID, &link.ArcherID, &link.Number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRosterEntryNotFound
		}
		return nil, fmt.Errorf("failed to find roster entry: %w", err)
	}
	return link, nil
}

func (r *postgresRosterRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]models.ArcherTeamLink, error) {
	query := `
		SELECT l.team_id, l.archer_id, l.number,
			a.id, a.name, a.position, a.accuracy, a.photo_key, a.created_at
		FROM archer_team_links l
		JOIN archers a ON a.id = l.archer_id
		WHERE l.team_id = $1
		ORDER BY l.number ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team roster: %w", err)
	}
	defer rows.Close()

	roster := make([]models.ArcherTeamLink, 0)
	for rows.Next() {
		var link models.ArcherTeamLink
		var archer models.Archer
		err := rows.Scan(
			&link.TeamID, &link.ArcherID, &link.Number,
			&archer.ID, &archer.Name, &archer.Position, &archer.Accuracy, &archer.PhotoKey, &archer.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		link.Archer = &archer
		roster = append(roster, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster rows: %w", err)
	}
	return roster, nil
}

func (r *postgresRosterRepository) Remove(ctx context.Context, exec SQLExecutor, teamID, archerID int) error {
	query := `DELETE FROM archer_team_links WHERE team_id = $1 AND archer_id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamID, archerID)
	if err != nil {
		return fmt.Errorf("failed to remove archer from team roster: %w", err)
	}
	return checkAffectedRows(result, ErrRosterEntryNotFound)
}

func (r *postgresRosterRepository) ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, teamID, number int) error {
	query := `UPDATE archer_team_links SET number = number - 1 WHERE team_id = $1 AND number > $2`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, teamID, number); err != nil {
		return fmt.Errorf("failed to shift roster numbers: %w", err)
	}
	return nil
}

func (r *postgresRosterRepository) NextNumber(ctx context.Context, exec SQLExecutor, teamID int) (int, error) {
	query := `SELECT COALESCE(MAX(number), 0) + 1 FROM archer_team_links WHERE team_id = $1`

	var next int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, teamID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next roster number: %w", err)
	}
	return next, nil
}
