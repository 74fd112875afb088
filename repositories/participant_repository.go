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
	ErrParticipantNotFound = errors.New("tournament participant not found")
	ErrParticipantConflict = errors.New("archer already registered for this tournament")
)

// ParticipantRepository управляет записями archer_tournament_links —
// регистрациями лучников в индивидуальных турнирах.
type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, link *models.ArcherTournamentLink) error
	Find(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) (*models.ArcherTournamentLink, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, withArcher bool) ([]*models.ArcherTournamentLink, error)
	// UpdateProgress persists placement and tie-break columns for one link.
	UpdateProgress(ctx context.Context, exec SQLExecutor, link *models.ArcherTournamentLink) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) error
	// ShiftNumbersAfter decrements the number of every link above the given
	// number, keeping the 1..N sequence gapless after a removal.
	ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, tournamentID, number int) error
	NextNumber(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, link *models.ArcherTournamentLink) error {
	query := `
		INSERT INTO archer_tournament_links (tournament_id, archer_id, number)
		VALUES ($1, $2, $3)`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, link.TournamentID, link.ArcherID, link.Number)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrParticipantConflict
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "archer_tournament_links_archer_id_fkey" {
					return ErrArcherNotFound
				}
				return ErrTournamentNotFound
			}
		}
		return fmt.Errorf("failed to create tournament participant: %w", err)
	}
	return nil
}

func scanParticipantLink(row interface{ Scan(dest ...interface{}) error }, link *models.ArcherTournamentLink) error {
	return row.Scan(
		&link.TournamentID, &link.ArcherID, &link.Number,
		&link.QualifiersPlace, &link.FinalsPlace,
		&link.TieBreakQualifiers, &link.TieBreakFinals,
	)
}

func (r *postgresParticipantRepository) Find(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) (*models.ArcherTournamentLink, error) {
	query := `
		SELECT tournament_id, archer_id, number, qualifiers_place, finals_place,
			tie_break_qualifiers, tie_break_finals
		FROM archer_tournament_links
		WHERE tournament_id = $1 AND archer_id = $2`

	link := &models.ArcherTournamentLink{}
	err := scanParticipantLink(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, archerID), link)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find tournament participant: %w", err)
	}
	return link, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, withArcher bool) ([]*models.ArcherTournamentLink, error) {
	query := `
		SELECT l.tournament_id, l.archer_id, l.number, l.qualifiers_place, l.finals_place,
			l.tie_break_qualifiers, l.tie_break_finals`
	if withArcher {
		query += `,
			a.id, a.name, a.position, a.accuracy, a.photo_key, a.created_at`
	}
	query += `
		FROM archer_tournament_links l`
	if withArcher {
		query += `
		JOIN archers a ON a.id = l.archer_id`
	}
	query += `
		WHERE l.tournament_id = $1
		ORDER BY l.number ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament participants: %w", err)
	}
	defer rows.Close()

	links := make([]*models.ArcherTournamentLink, 0)
	for rows.Next() {
		link := &models.ArcherTournamentLink{}
		dest := []interface{}{
			&link.TournamentID, &link.ArcherID, &link.Number,
			&link.QualifiersPlace, &link.FinalsPlace,
			&link.TieBreakQualifiers, &link.TieBreakFinals,
		}
		var archer models.Archer
		if withArcher {
			dest = append(dest, &archer.ID, &archer.Name, &archer.Position, &archer.Accuracy, &archer.PhotoKey, &archer.CreatedAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		if withArcher {
			a := archer
			link.Archer = &a
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return links, nil
}

func (r *postgresParticipantRepository) UpdateProgress(ctx context.Context, exec SQLExecutor, link *models.ArcherTournamentLink) error {
	query := `
		UPDATE archer_tournament_links
		SET qualifiers_place = $1, finals_place = $2,
			tie_break_qualifiers = $3, tie_break_finals = $4
		WHERE tournament_id = $5 AND archer_id = $6`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		link.QualifiersPlace, link.FinalsPlace,
		link.TieBreakQualifiers, link.TieBreakFinals,
		link.TournamentID, link.ArcherID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant progress: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) error {
	query := `DELETE FROM archer_tournament_links WHERE tournament_id = $1 AND archer_id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, archerID)
	if err != nil {
		return fmt.Errorf("failed to delete tournament participant: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, tournamentID, number int) error {
	query := `
		UPDATE archer_tournament_links
		SET number = number - 1
		WHERE tournament_id = $1 AND number > $2`

	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, number); err != nil {
		return fmt.Errorf("failed to shift participant numbers: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) NextNumber(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `SELECT COALESCE(MAX(number), 0) + 1 FROM archer_tournament_links WHERE tournament_id = $1`

	var next int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next participant number: %w", err)
	}
	return next, nil
}
