package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/getsuraikai/kyudo-tournament/live"
	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
	"github.com/getsuraikai/kyudo-tournament/storage"
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	GetTournamentWithRelations(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	ListTournamentsPaginated(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, int, error)
	UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	AdvanceStage(ctx context.Context, tournamentID int, advancing []AdvancingParticipant, tieBreakerNeeded bool) (*models.Tournament, error)
	ListTieBreakParticipants(ctx context.Context, tournamentID int, stage models.TournamentStage) (*TieBreakParticipants, error)
	UploadBanner(ctx context.Context, id int, contentType string, body io.Reader) (*models.Tournament, error)
	AutoUpdateTournamentStatusesByDates(ctx context.Context) error
}

type CreateTournamentInput struct {
	Name           string
	Format         models.TournamentFormat
	StartDate      time.Time
	EndDate        time.Time
	AdvancingCount int
	TargetCount    int
}

type UpdateTournamentInput struct {
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	Status         models.TournamentStatus
	AdvancingCount int
	TargetCount    int
}

// AdvancingParticipant — результат участника, по которому контроллер
// этапов решает, кто проходит дальше. В индивидуальном турнире ID — это
// archer_id, в командном — team_id.
type AdvancingParticipant struct {
	ID       int `json:"id"`
	HitCount int `json:"hit_count"`
}

// TieBreakParticipants carries whichever side of the participant lookup the
// tournament format uses.
type TieBreakParticipants struct {
	Stage   models.TournamentStage         `json:"stage"`
	Archers []*models.ArcherTournamentLink `json:"archers,omitempty"`
	Teams   []*models.Team                 `json:"teams,omitempty"`
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	teamRepo        repositories.TeamRepository
	rosterRepo      repositories.RosterRepository
	matchRepo       repositories.MatchRepository
	seriesRepo      repositories.SeriesRepository
	uploader        storage.FileUploader
	hub             Notifier
	logger          *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	matchRepo repositories.MatchRepository,
	seriesRepo repositories.SeriesRepository,
	uploader storage.FileUploader,
	hub Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		rosterRepo:      rosterRepo,
		matchRepo:       matchRepo,
		seriesRepo:      seriesRepo,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
	}
}

func validateTournamentInput(name string, start, end time.Time, advancingCount, targetCount int) error {
	if strings.TrimSpace(name) == "" {
		return ErrTournamentNameRequired
	}
	if end.Before(start) {
		return ErrTournamentInvalidDateRange
	}
	if advancingCount <= 0 || targetCount <= 0 {
		return ErrTournamentInvalidCounts
	}
	return nil
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrTournamentInvalidFormat, input.Format)
	}
	if err := validateTournamentInput(input.Name, input.StartDate, input.EndDate, input.AdvancingCount, input.TargetCount); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:           strings.TrimSpace(input.Name),
		Format:         input.Format,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         models.StatusUpcoming,
		CurrentStage:   models.StageQualifiers,
		AdvancingCount: input.AdvancingCount,
		TargetCount:    input.TargetCount,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

// GetTournamentWithRelations loads the tournament together with its
// participant links, teams (with rosters) and matches (with archers and
// series). The three branches are independent and fetched concurrently.
func (s *tournamentService) GetTournamentWithRelations(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		links, err := s.participantRepo.ListByTournament(gCtx, nil, id, true)
		if err != nil {
			return err
		}
		tournament.Archers = make([]models.ArcherTournamentLink, len(links))
		for i, link := range links {
			tournament.Archers[i] = *link
		}
		return nil
	})

	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		tournament.Teams = make([]models.Team, len(teams))
		for i, team := range teams {
			roster, err := s.rosterRepo.ListByTeam(gCtx, nil, team.ID)
			if err != nil {
				return err
			}
			team.Roster = roster
			tournament.Teams[i] = *team
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		tournament.Matches = make([]models.Match, len(matches))
		for i, match := range matches {
			if match.Archers, err = s.matchRepo.ListArchers(gCtx, nil, match.ID); err != nil {
				return err
			}
			if match.Series, err = s.seriesRepo.ListByMatch(gCtx, nil, match.ID); err != nil {
				return err
			}
			tournament.Matches[i] = *match
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d relations: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) ListTournamentsPaginated(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, int, error) {
	tournaments, err := s.ListTournaments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tournamentRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return tournaments, total, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input.Name, input.StartDate, input.EndDate, input.AdvancingCount, input.TargetCount); err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidationFailed, input.Status)
	}

	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tournament.Name = strings.TrimSpace(input.Name)
	tournament.StartDate = input.StartDate
	tournament.EndDate = input.EndDate
	tournament.Status = input.Status
	tournament.AdvancingCount = input.AdvancingCount
	tournament.TargetCount = input.TargetCount

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}

	if tournament.BannerKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.BannerKey); err != nil {
			s.logger.Warn("failed to delete tournament banner",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// UploadBanner stores the tournament banner image in object storage and
// records its key, replacing any previous banner.
func (s *tournamentService) UploadBanner(ctx context.Context, id int, contentType string, body io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file uploads are not configured", ErrValidationFailed)
	}

	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	oldKey := tournament.BannerKey
	key := fmt.Sprintf("tournaments/%d/banner%s", id, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament banner: %w", err)
	}

	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist tournament banner key: %w", err)
	}

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous tournament banner",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}

	tournament.BannerKey = &result.Key
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) populateBannerURL(tournament *models.Tournament) {
	if tournament == nil || tournament.BannerKey == nil || *tournament.BannerKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*tournament.BannerKey); url != "" {
		tournament.BannerURL = &url
	}
}

type rankedParticipant struct {
	ID       int
	HitCount int
	Place    int
}

// rankAdvancing orders the advancing list by hit count descending and splits
// it into clearly-advancing participants (with their 1-based place) and the
// tie-break cohort. Entries with equal hit counts keep their input order:
// the caller's ordering is the tie-break rule for equal scores.
func rankAdvancing(advancing []AdvancingParticipant, tieBreakerNeeded bool) (clear []rankedParticipant, tieBreak []int) {
	if len(advancing) == 0 {
		return nil, nil
	}

	sorted := make([]AdvancingParticipant, len(advancing))
	copy(sorted, advancing)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].HitCount > sorted[j].HitCount
	})

	leastHitCount := sorted[len(sorted)-1].HitCount
	for i, p := range sorted {
		if tieBreakerNeeded && p.HitCount == leastHitCount {
			tieBreak = append(tieBreak, p.ID)
			continue
		}
		clear = append(clear, rankedParticipant{ID: p.ID, HitCount: p.HitCount, Place: i + 1})
	}
	return clear, tieBreak
}

// nextStage computes the stage transition. finals_tie_break is terminal:
// advancing out of it is always rejected.
func nextStage(current models.TournamentStage, hasTieBreak bool) (next models.TournamentStage, finished bool, err error) {
	if current == models.StageFinalsTieBreak {
		return "", false, ErrAlreadyInFinalTieBreak
	}

	if hasTieBreak {
		switch current {
		case models.StageQualifiers:
			return models.StageQualifiersTieBreak, false, nil
		case models.StageFinals:
			return models.StageFinalsTieBreak, false, nil
		default:
			return "", false, ErrInvalidStageTransition
		}
	}

	switch current {
	case models.StageQualifiers, models.StageQualifiersTieBreak:
		return models.StageFinals, false, nil
	case models.StageFinals:
		return "", true, nil
	default:
		return "", false, ErrInvalidStageTransition
	}
}

// AdvanceStage moves the tournament to its next stage, recording placements
// for clearly-advancing participants and flagging the tie-break cohort.
func (s *tournamentService) AdvanceStage(ctx context.Context, tournamentID int, advancing []AdvancingParticipant, tieBreakerNeeded bool) (*models.Tournament, error) {
	if len(advancing) == 0 {
		return nil, ErrAdvancingListEmpty
	}

	var tournament *models.Tournament
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		tournament, err = s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}

		clear, tieBreak := rankAdvancing(advancing, tieBreakerNeeded)
		next, finished, err := nextStage(tournament.CurrentStage, len(tieBreak) > 0)
		if err != nil {
			return err
		}

		if tournament.Format == models.FormatIndividual {
			err = s.applyToLinks(ctx, tx, tournament, clear, tieBreak)
		} else {
			err = s.applyToTeams(ctx, tx, tournament, clear, tieBreak)
		}
		if err != nil {
			return err
		}

		if finished {
			if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusFinished); err != nil {
				return err
			}
			tournament.Status = models.StatusFinished
			return nil
		}
		if err := s.tournamentRepo.UpdateStage(ctx, tx, tournamentID, next); err != nil {
			return err
		}
		tournament.CurrentStage = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToTournament(tournamentID, live.EventTournamentStageChange, tournament)
	return tournament, nil
}

func (s *tournamentService) applyToLinks(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, clear []rankedParticipant, tieBreak []int) error {
	qualifiersFamily := tournament.CurrentStage.IsQualifiersFamily()

	for _, rp := range clear {
		link, err := s.findLink(ctx, tx, tournament.ID, rp.ID)
		if err != nil {
			return err
		}
		if qualifiersFamily {
			link.QualifiersPlace = intPtr(rp.Place)
		} else {
			link.FinalsPlace = intPtr(rp.Place)
		}
		if err := s.participantRepo.UpdateProgress(ctx, tx, link); err != nil {
			return err
		}
	}

	for _, id := range tieBreak {
		link, err := s.findLink(ctx, tx, tournament.ID, id)
		if err != nil {
			return err
		}
		if qualifiersFamily {
			link.TieBreakQualifiers = true
		} else {
			link.TieBreakFinals = true
		}
		if err := s.participantRepo.UpdateProgress(ctx, tx, link); err != nil {
			return err
		}
	}
	return nil
}

func (s *tournamentService) applyToTeams(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, clear []rankedParticipant, tieBreak []int) error {
	qualifiersFamily := tournament.CurrentStage.IsQualifiersFamily()

	for _, rp := range clear {
		team, err := s.findTeam(ctx, tx, tournament.ID, rp.ID)
		if err != nil {
			return err
		}
		if qualifiersFamily {
			team.QualifiersPlace = intPtr(rp.Place)
		} else {
			team.FinalsPlace = intPtr(rp.Place)
		}
		if err := s.teamRepo.UpdateProgress(ctx, tx, team); err != nil {
			return err
		}
	}

	for _, id := range tieBreak {
		team, err := s.findTeam(ctx, tx, tournament.ID, id)
		if err != nil {
			return err
		}
		if qualifiersFamily {
			team.TieBreakQualifiers = true
		} else {
			team.TieBreakFinals = true
		}
		if err := s.teamRepo.UpdateProgress(ctx, tx, team); err != nil {
			return err
		}
	}
	return nil
}

func (s *tournamentService) findLink(ctx context.Context, tx *sql.Tx, tournamentID, archerID int) (*models.ArcherTournamentLink, error) {
	link, err := s.participantRepo.Find(ctx, tx, tournamentID, archerID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, fmt.Errorf("%w: archer %d", ErrParticipantNotFound, archerID)
		}
		return nil, err
	}
	return link, nil
}

func (s *tournamentService) findTeam(ctx context.Context, tx *sql.Tx, tournamentID, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, tx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: team %d", ErrTeamNotFound, teamID)
		}
		return nil, err
	}
	if team.TournamentID != tournamentID {
		return nil, fmt.Errorf("%w: team %d", ErrTeamNotFound, teamID)
	}
	return team, nil
}

// ListTieBreakParticipants returns the participants flagged for the
// tie-break of the given stage family.
func (s *tournamentService) ListTieBreakParticipants(ctx context.Context, tournamentID int, stage models.TournamentStage) (*TieBreakParticipants, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: invalid stage %q", ErrValidationFailed, stage)
	}

	tournament, err := s.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	result := &TieBreakParticipants{Stage: stage}
	if tournament.Format == models.FormatIndividual {
		links, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, true)
		if err != nil {
			return nil, err
		}
		result.Archers = make([]*models.ArcherTournamentLink, 0)
		for _, link := range links {
			if stage.IsQualifiersFamily() && link.TieBreakQualifiers ||
				stage.IsFinalsFamily() && link.TieBreakFinals {
				result.Archers = append(result.Archers, link)
			}
		}
		return result, nil
	}

	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	result.Teams = make([]*models.Team, 0)
	for _, team := range teams {
		if stage.IsQualifiersFamily() && team.TieBreakQualifiers ||
			stage.IsFinalsFamily() && team.TieBreakFinals {
			result.Teams = append(result.Teams, team)
		}
	}
	return result, nil
}

// AutoUpdateTournamentStatusesByDates flips upcoming tournaments to live
// once their start date has passed. Called periodically from cmd/main.go.
func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	due, err := s.tournamentRepo.ListDueForStatusUpdate(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, tournament := range due {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, models.StatusLive); err != nil {
			s.logger.Error("failed to auto-update tournament status",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
			continue
		}
		s.logger.Info("tournament switched to live",
			slog.Int("tournament_id", tournament.ID), slog.String("name", tournament.Name))
	}
	return nil
}
