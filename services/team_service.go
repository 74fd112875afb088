package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
)

type TeamService interface {
	CreateTeam(ctx context.Context, tournamentID int, name string) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	ListTeams(ctx context.Context, tournamentID int) ([]*models.Team, error)
	UpdateTeamName(ctx context.Context, id int, name string) (*models.Team, error)
	DeleteTeam(ctx context.Context, id int) error
	AddArcherToTeam(ctx context.Context, teamID, archerID int) (*models.ArcherTeamLink, error)
	RemoveArcherFromTeam(ctx context.Context, teamID, archerID int) error
}

type teamService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	rosterRepo     repositories.RosterRepository
	archerRepo     repositories.ArcherRepository
	logger         *slog.Logger
}

func NewTeamService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	archerRepo repositories.ArcherRepository,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		rosterRepo:     rosterRepo,
		archerRepo:     archerRepo,
		logger:         logger,
	}
}

// CreateTeam creates a team in a team-format tournament, assigning the next
// free sequential team number.
func (s *teamService) CreateTeam(ctx context.Context, tournamentID int, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	var team *models.Team
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}
		if tournament.Format != models.FormatTeam {
			return fmt.Errorf("%w: teams exist only in team tournaments", ErrWrongTournamentFormat)
		}

		number, err := s.teamRepo.NextNumber(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to allocate team number: %w", err)
		}

		team = &models.Team{
			TournamentID: tournamentID,
			Name:         name,
			Number:       number,
		}
		if err := s.teamRepo.Create(ctx, tx, team); err != nil {
			if errors.Is(err, repositories.ErrTeamNameConflict) {
				return ErrTeamNameConflict
			}
			return fmt.Errorf("failed to create team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	roster, err := s.rosterRepo.ListByTeam(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load team %d roster: %w", id, err)
	}
	team.Roster = roster
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		roster, err := s.rosterRepo.ListByTeam(ctx, nil, team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load team %d roster: %w", team.ID, err)
		}
		team.Roster = roster
	}
	return teams, nil
}

func (s *teamService) UpdateTeamName(ctx context.Context, id int, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	if err := s.teamRepo.UpdateName(ctx, id, name); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to rename team %d: %w", id, err)
	}
	return s.GetTeamByID(ctx, id)
}

// DeleteTeam removes the team and renumbers the remaining teams of the
// tournament so the sequence stays gapless.
func (s *teamService) DeleteTeam(ctx context.Context, id int) error {
	return runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		team, err := s.teamRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to get team %d: %w", id, err)
		}
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, team.TournamentID); err != nil {
			return fmt.Errorf("failed to lock tournament %d: %w", team.TournamentID, err)
		}

		if err := s.teamRepo.Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete team %d: %w", id, err)
		}
		if err := s.teamRepo.ShiftNumbersAfter(ctx, tx, team.TournamentID, team.Number); err != nil {
			return fmt.Errorf("failed to renumber teams: %w", err)
		}
		return nil
	})
}

// AddArcherToTeam appends an archer to the team roster. The archer with
// roster number 1 acts as the team representative in match generation.
func (s *teamService) AddArcherToTeam(ctx context.Context, teamID, archerID int) (*models.ArcherTeamLink, error) {
	if _, err := s.archerRepo.GetByID(ctx, archerID); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return nil, ErrArcherNotFound
		}
		return nil, fmt.Errorf("failed to get archer %d: %w", archerID, err)
	}

	var link *models.ArcherTeamLink
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		team, err := s.teamRepo.GetByID(ctx, tx, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to get team %d: %w", teamID, err)
		}
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, team.TournamentID); err != nil {
			return fmt.Errorf("failed to lock tournament %d: %w", team.TournamentID, err)
		}

		number, err := s.rosterRepo.NextNumber(ctx, tx, teamID)
		if err != nil {
			return fmt.Errorf("failed to allocate roster number: %w", err)
		}

		link = &models.ArcherTeamLink{
			TeamID:   teamID,
			ArcherID: archerID,
			Number:   number,
		}
		if err := s.rosterRepo.Add(ctx, tx, link); err != nil {
			if errors.Is(err, repositories.ErrRosterConflict) {
				return ErrRosterConflict
			}
			return fmt.Errorf("failed to add archer %d to team %d: %w", archerID, teamID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RemoveArcherFromTeam drops an archer from the roster and shifts the
// numbers of everyone after them down by one.
func (s *teamService) RemoveArcherFromTeam(ctx context.Context, teamID, archerID int) error {
	return runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return s.removeArcher(ctx, tx, teamID, archerID)
	})
}

func (s *teamService) removeArcher(ctx context.Context, exec repositories.SQLExecutor, teamID, archerID int) error {
	team, err := s.teamRepo.GetByID(ctx, exec, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, team.TournamentID); err != nil {
		return fmt.Errorf("failed to lock tournament %d: %w", team.TournamentID, err)
	}

	link, err := s.rosterRepo.Find(ctx, exec, teamID, archerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRosterEntryNotFound) {
			return ErrRosterEntryNotFound
		}
		return fmt.Errorf("failed to find roster entry: %w", err)
	}

	if err := s.rosterRepo.Remove(ctx, exec, teamID, archerID); err != nil {
		return fmt.Errorf("failed to remove archer %d from team %d: %w", archerID, teamID, err)
	}
	if err := s.rosterRepo.ShiftNumbersAfter(ctx, exec, teamID, link.Number); err != nil {
		return fmt.Errorf("failed to renumber roster: %w", err)
	}
	return nil
}
