package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/getsuraikai/kyudo-tournament/live"
	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
)

type MatchService interface {
	GenerateMatch(ctx context.Context, tournamentID int, format models.MatchFormat) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	FinishMatch(ctx context.Context, id int) (*models.Match, error)
	DeleteMatch(ctx context.Context, id int) error
}

type matchService struct {
	db              *sql.DB
	matchRepo       repositories.MatchRepository
	seriesRepo      repositories.SeriesRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	teamRepo        repositories.TeamRepository
	rosterRepo      repositories.RosterRepository
	hub             Notifier
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	seriesRepo repositories.SeriesRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	hub Notifier,
) MatchService {
	return &matchService{
		db:              db,
		matchRepo:       matchRepo,
		seriesRepo:      seriesRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		rosterRepo:      rosterRepo,
		hub:             hub,
	}
}

// MatchIsFinished reports whether a match can be finished, from its format
// and the series attached to it alone.
//
//   - standard/emperor: every attached archer has a full series with no
//     unresolved ensure outcome.
//   - enkin: every archer has claimed a position and all positions are
//     pairwise distinct; a duplicate means the archers must renegotiate.
//   - izume: no completion rule yet, always reports not finished.
func MatchIsFinished(match *models.Match) (bool, error) {
	seriesByArcher := make(map[int]*models.Series, len(match.Series))
	for i := range match.Series {
		seriesByArcher[match.Series[i].ArcherID] = &match.Series[i]
	}

	switch match.Format {
	case models.MatchStandard, models.MatchEmperor:
		for _, archer := range match.Archers {
			series, ok := seriesByArcher[archer.ID]
			if !ok {
				return false, nil
			}
			arrows, err := series.Arrows()
			if err != nil {
				return false, err
			}
			if len(arrows) != match.Format.ArrowCount() {
				return false, nil
			}
			if arrows.HasEnsure() {
				return false, nil
			}
		}
		return true, nil

	case models.MatchEnkin:
		claimed := make(map[models.HitOutcome]bool, len(match.Archers))
		for _, archer := range match.Archers {
			series, ok := seriesByArcher[archer.ID]
			if !ok {
				return false, nil
			}
			arrows, err := series.Arrows()
			if err != nil {
				return false, err
			}
			if len(arrows) == 0 {
				return false, nil
			}
			position := arrows[0]
			if claimed[position] {
				return false, nil
			}
			claimed[position] = true
		}
		return true, nil

	case models.MatchIzume:
		return false, nil
	}

	return false, fmt.Errorf("%w: %q", ErrInvalidMatchFormat, match.Format)
}

// filterEligibleLinks selects the participants allowed into a new match at
// the given stage.
func filterEligibleLinks(links []*models.ArcherTournamentLink, stage models.TournamentStage) []*models.ArcherTournamentLink {
	eligible := make([]*models.ArcherTournamentLink, 0, len(links))
	for _, link := range links {
		switch stage {
		case models.StageQualifiers:
			eligible = append(eligible, link)
		case models.StageQualifiersTieBreak:
			if link.TieBreakQualifiers {
				eligible = append(eligible, link)
			}
		case models.StageFinals:
			if link.QualifiersPlace != nil {
				eligible = append(eligible, link)
			}
		case models.StageFinalsTieBreak:
			if link.TieBreakFinals {
				eligible = append(eligible, link)
			}
		}
	}
	return eligible
}

func filterEligibleTeams(teams []*models.Team, stage models.TournamentStage) []*models.Team {
	eligible := make([]*models.Team, 0, len(teams))
	for _, team := range teams {
		switch stage {
		case models.StageQualifiers:
			eligible = append(eligible, team)
		case models.StageQualifiersTieBreak:
			if team.TieBreakQualifiers {
				eligible = append(eligible, team)
			}
		case models.StageFinals:
			if team.QualifiersPlace != nil {
				eligible = append(eligible, team)
			}
		case models.StageFinalsTieBreak:
			if team.TieBreakFinals {
				eligible = append(eligible, team)
			}
		}
	}
	return eligible
}

// selectLeastPlayed implements round-robin-by-least-played selection: archers
// with fewer appearances than the current maximum are caught up first, in
// stable seed order. When everyone is level the full ordered pool is used.
func selectLeastPlayed(archerIDs []int, played map[int]int, targetCount int) []int {
	maxPlayed := 0
	for _, id := range archerIDs {
		if played[id] > maxPlayed {
			maxPlayed = played[id]
		}
	}

	behind := make([]int, 0, len(archerIDs))
	for _, id := range archerIDs {
		if played[id] < maxPlayed {
			behind = append(behind, id)
		}
	}

	pool := behind
	if len(pool) == 0 {
		pool = archerIDs
	}
	if targetCount > 0 && len(pool) > targetCount {
		pool = pool[:targetCount]
	}
	return pool
}

// selectTeamsLeastPlayed applies the same least-played priority on each
// team's representative, then fills the match greedily with whole rosters
// until the running archer total reaches targetCount. A roster is never
// split across matches.
func selectTeamsLeastPlayed(teams []*models.Team, played map[int]int, targetCount int) []*models.Team {
	maxPlayed := 0
	for _, team := range teams {
		if rep := team.Representative(); rep != nil && played[rep.ArcherID] > maxPlayed {
			maxPlayed = played[rep.ArcherID]
		}
	}

	behind := make([]*models.Team, 0, len(teams))
	for _, team := range teams {
		rep := team.Representative()
		if rep != nil && played[rep.ArcherID] < maxPlayed {
			behind = append(behind, team)
		}
	}

	pool := behind
	if len(pool) == 0 {
		pool = teams
	}

	picked := make([]*models.Team, 0, len(pool))
	total := 0
	for _, team := range pool {
		picked = append(picked, team)
		total += len(team.Roster)
		if total >= targetCount {
			break
		}
	}
	return picked
}

func (s *matchService) GenerateMatch(ctx context.Context, tournamentID int, format models.MatchFormat) (*models.Match, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchFormat, format)
	}

	var match *models.Match
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}

		archerIDs, err := s.selectParticipants(ctx, tx, tournament, format)
		if err != nil {
			return err
		}

		match = &models.Match{
			TournamentID: tournamentID,
			Format:       format,
			// Permanent snapshot: later stage changes never touch
			// existing matches.
			Stage: tournament.CurrentStage,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return err
		}
		for _, archerID := range archerIDs {
			if err := s.matchRepo.AddArcher(ctx, tx, match.ID, archerID); err != nil {
				return err
			}
		}

		match.Archers, err = s.matchRepo.ListArchers(ctx, tx, match.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToTournament(tournamentID, live.EventNewMatch, match)
	return match, nil
}

func (s *matchService) selectParticipants(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, format models.MatchFormat) ([]int, error) {
	if tournament.Format == models.FormatTeam {
		return s.selectTeamParticipants(ctx, tx, tournament)
	}

	links, err := s.participantRepo.ListByTournament(ctx, tx, tournament.ID, false)
	if err != nil {
		return nil, err
	}
	eligible := filterEligibleLinks(links, tournament.CurrentStage)
	if len(eligible) == 0 {
		return nil, ErrEmptyEligiblePool
	}

	archerIDs := make([]int, len(eligible))
	for i, link := range eligible {
		archerIDs[i] = link.ArcherID
	}

	switch format {
	case models.MatchStandard, models.MatchEmperor:
		played, err := s.matchRepo.CountByArcher(ctx, tx, tournament.ID)
		if err != nil {
			return nil, err
		}
		return selectLeastPlayed(archerIDs, played, tournament.TargetCount), nil
	default:
		// enkin and izume run everyone eligible at once.
		return archerIDs, nil
	}
}

func (s *matchService) selectTeamParticipants(ctx context.Context, tx *sql.Tx, tournament *models.Tournament) ([]int, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		team.Roster, err = s.rosterRepo.ListByTeam(ctx, tx, team.ID)
		if err != nil {
			return nil, err
		}
	}

	eligible := filterEligibleTeams(teams, tournament.CurrentStage)
	if len(eligible) == 0 {
		return nil, ErrEmptyEligiblePool
	}

	played, err := s.matchRepo.CountByArcher(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}

	archerIDs := make([]int, 0)
	for _, team := range selectTeamsLeastPlayed(eligible, played, tournament.TargetCount) {
		for _, entry := range team.Roster {
			archerIDs = append(archerIDs, entry.ArcherID)
		}
	}
	if len(archerIDs) == 0 {
		return nil, ErrEmptyEligiblePool
	}
	return archerIDs, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	if match.Archers, err = s.matchRepo.ListArchers(ctx, nil, id); err != nil {
		return nil, err
	}
	if match.Series, err = s.seriesRepo.ListByMatch(ctx, nil, id); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		if match.Archers, err = s.matchRepo.ListArchers(ctx, nil, match.ID); err != nil {
			return nil, err
		}
		if match.Series, err = s.seriesRepo.ListByMatch(ctx, nil, match.ID); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// FinishMatch verifies completion and flips the monotonic finished flag.
// Finishing is never automatic: recording the last arrow does not finish a
// match, this explicit call does.
func (s *matchService) FinishMatch(ctx context.Context, id int) (*models.Match, error) {
	var match *models.Match
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.finishMatch(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToTournament(match.TournamentID, live.EventMatchFinished, match)
	return match, nil
}

// finishMatch reads the match row under FOR UPDATE, so of two concurrent
// finish calls the second one blocks and then fails the finished guard.
func (s *matchService) finishMatch(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	if match.Finished {
		return nil, ErrMatchAlreadyFinished
	}

	if match.Archers, err = s.matchRepo.ListArchers(ctx, exec, id); err != nil {
		return nil, err
	}
	if match.Series, err = s.seriesRepo.ListByMatch(ctx, exec, id); err != nil {
		return nil, err
	}

	finished, err := MatchIsFinished(match)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, ErrMatchNotFinishable
	}

	if err := s.matchRepo.SetFinished(ctx, exec, id); err != nil {
		return nil, err
	}
	match.Finished = true
	return match, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, id int) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return nil
}
