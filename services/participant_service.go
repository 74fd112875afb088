package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
)

type ParticipantService interface {
	AddArcherToTournament(ctx context.Context, tournamentID, archerID int) (*models.ArcherTournamentLink, error)
	RemoveArcherFromTournament(ctx context.Context, tournamentID, archerID int) error
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.ArcherTournamentLink, error)
}

type participantService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	archerRepo      repositories.ArcherRepository
	logger          *slog.Logger
}

func NewParticipantService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	archerRepo repositories.ArcherRepository,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		archerRepo:      archerRepo,
		logger:          logger,
	}
}

// AddArcherToTournament registers an archer in an individual tournament,
// assigning the next free sequential number.
func (s *participantService) AddArcherToTournament(ctx context.Context, tournamentID, archerID int) (*models.ArcherTournamentLink, error) {
	if _, err := s.archerRepo.GetByID(ctx, archerID); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return nil, ErrArcherNotFound
		}
		return nil, fmt.Errorf("failed to get archer %d: %w", archerID, err)
	}

	var link *models.ArcherTournamentLink
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}
		if tournament.Format != models.FormatIndividual {
			return fmt.Errorf("%w: archers register directly only in individual tournaments", ErrWrongTournamentFormat)
		}

		number, err := s.participantRepo.NextNumber(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to allocate participant number: %w", err)
		}

		link = &models.ArcherTournamentLink{
			TournamentID: tournamentID,
			ArcherID:     archerID,
			Number:       number,
		}
		if err := s.participantRepo.Create(ctx, tx, link); err != nil {
			if errors.Is(err, repositories.ErrParticipantConflict) {
				return ErrRegistrationConflict
			}
			return fmt.Errorf("failed to register archer %d: %w", archerID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RemoveArcherFromTournament unregisters an archer and closes the gap in the
// numbering: every participant after the removed one shifts down by one.
func (s *participantService) RemoveArcherFromTournament(ctx context.Context, tournamentID, archerID int) error {
	return runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return s.removeArcher(ctx, tx, tournamentID, archerID)
	})
}

func (s *participantService) removeArcher(ctx context.Context, exec repositories.SQLExecutor, tournamentID, archerID int) error {
	if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	link, err := s.participantRepo.Find(ctx, exec, tournamentID, archerID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to find participant: %w", err)
	}

	if err := s.participantRepo.Delete(ctx, exec, tournamentID, archerID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if err := s.participantRepo.ShiftNumbersAfter(ctx, exec, tournamentID, link.Number); err != nil {
		return fmt.Errorf("failed to renumber participants: %w", err)
	}
	return nil
}

func (s *participantService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.ArcherTournamentLink, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID, true)
}
