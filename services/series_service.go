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

// SeriesService — журнал выстрелов: append-only последовательность
// результатов для пары (лучник, матч).
type SeriesService interface {
	RecordArrow(ctx context.Context, matchID, archerID int, outcome models.HitOutcome) (*models.Series, error)
	UpdateArrow(ctx context.Context, matchID, archerID, arrowIndex int, outcome models.HitOutcome) (*models.Series, error)
	GetArrow(ctx context.Context, matchID, archerID, arrowIndex int) (models.HitOutcome, error)
	GetSeries(ctx context.Context, matchID, archerID int) (*models.Series, error)
}

type seriesService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	seriesRepo repositories.SeriesRepository
	archerRepo repositories.ArcherRepository
	hub        Notifier
}

func NewSeriesService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	seriesRepo repositories.SeriesRepository,
	archerRepo repositories.ArcherRepository,
	hub Notifier,
) SeriesService {
	return &seriesService{
		db:         db,
		matchRepo:  matchRepo,
		seriesRepo: seriesRepo,
		archerRepo: archerRepo,
		hub:        hub,
	}
}

func validateOutcome(format models.MatchFormat, outcome models.HitOutcome) error {
	if format == models.MatchEnkin {
		// For enkin the recorded value is a claimed standing position,
		// not a hit outcome.
		if outcome < 1 {
			return fmt.Errorf("%w: enkin position must be positive, got %d", ErrValidationFailed, outcome)
		}
		return nil
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidHitOutcome, outcome)
	}
	return nil
}

// appendOutcome enforces the format's fixed series length on every append.
func appendOutcome(arrows models.ArrowSequence, outcome models.HitOutcome, format models.MatchFormat) (models.ArrowSequence, error) {
	if len(arrows) >= format.ArrowCount() {
		return nil, ErrSeriesFull
	}
	return append(arrows, outcome), nil
}

// RecordArrow appends an outcome to the archer's series for the match,
// creating the series on first use. The series never grows past the
// format's arrow count; use UpdateArrow to correct an entry instead.
func (s *seriesService) RecordArrow(ctx context.Context, matchID, archerID int, outcome models.HitOutcome) (*models.Series, error) {
	var (
		series       *models.Series
		tournamentID int
	)

	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		match, err := s.getMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		tournamentID = match.TournamentID

		if err := validateOutcome(match.Format, outcome); err != nil {
			return err
		}

		series, err = s.seriesRepo.FindByMatchAndArcher(ctx, tx, matchID, archerID)
		if errors.Is(err, repositories.ErrSeriesNotFound) {
			series = &models.Series{MatchID: matchID, ArcherID: archerID}
			series.SetArrows(models.ArrowSequence{})
			if createErr := s.seriesRepo.Create(ctx, tx, series); createErr != nil {
				if errors.Is(createErr, repositories.ErrArcherNotFound) {
					return ErrArcherNotFound
				}
				return fmt.Errorf("failed to create series: %w", createErr)
			}
		} else if err != nil {
			return fmt.Errorf("failed to find series: %w", err)
		}

		arrows, err := series.Arrows()
		if err != nil {
			return err
		}
		arrows, err = appendOutcome(arrows, outcome, match.Format)
		if err != nil {
			return err
		}
		series.SetArrows(arrows)
		if err := s.seriesRepo.UpdateArrows(ctx, tx, series.ID, series.ArrowsRaw); err != nil {
			return err
		}

		return s.refreshRollingAccuracy(ctx, tx, archerID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToTournament(tournamentID, live.EventNewArrow, series)
	return series, nil
}

// UpdateArrow replaces a single existing entry in place.
func (s *seriesService) UpdateArrow(ctx context.Context, matchID, archerID, arrowIndex int, outcome models.HitOutcome) (*models.Series, error) {
	var (
		series       *models.Series
		tournamentID int
	)

	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		match, err := s.getMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		tournamentID = match.TournamentID

		if err := validateOutcome(match.Format, outcome); err != nil {
			return err
		}

		series, err = s.seriesRepo.FindByMatchAndArcher(ctx, tx, matchID, archerID)
		if err != nil {
			if errors.Is(err, repositories.ErrSeriesNotFound) {
				return ErrSeriesNotFound
			}
			return fmt.Errorf("failed to find series: %w", err)
		}

		arrows, err := series.Arrows()
		if err != nil {
			return err
		}
		if arrowIndex < 0 || arrowIndex >= len(arrows) {
			return ErrArrowNotFound
		}

		arrows[arrowIndex] = outcome
		series.SetArrows(arrows)
		if err := s.seriesRepo.UpdateArrows(ctx, tx, series.ID, series.ArrowsRaw); err != nil {
			return err
		}

		return s.refreshRollingAccuracy(ctx, tx, archerID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToTournament(tournamentID, live.EventArrowUpdate, series)
	return series, nil
}

func (s *seriesService) GetArrow(ctx context.Context, matchID, archerID, arrowIndex int) (models.HitOutcome, error) {
	series, err := s.GetSeries(ctx, matchID, archerID)
	if err != nil {
		return 0, err
	}
	arrows, err := series.Arrows()
	if err != nil {
		return 0, err
	}
	if arrowIndex < 0 || arrowIndex >= len(arrows) {
		return 0, ErrArrowNotFound
	}
	return arrows[arrowIndex], nil
}

func (s *seriesService) GetSeries(ctx context.Context, matchID, archerID int) (*models.Series, error) {
	series, err := s.seriesRepo.FindByMatchAndArcher(ctx, nil, matchID, archerID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeriesNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("failed to find series: %w", err)
	}
	return series, nil
}

// getMatch reads the match row under FOR UPDATE. The series row may not
// exist yet on the first arrow, so the match row is the lock that
// serializes concurrent writes to the same match.
func (s *seriesService) getMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	return match, nil
}

// refreshRollingAccuracy recomputes the archer's hit ratio over every
// standard and emperor series. Enkin and izume series store positions, not
// hit outcomes, and are excluded.
func (s *seriesService) refreshRollingAccuracy(ctx context.Context, tx *sql.Tx, archerID int) error {
	all, err := s.seriesRepo.ListByArcher(ctx, tx, archerID)
	if err != nil {
		return err
	}

	total, hits := 0, 0
	for _, as := range all {
		if as.MatchFormat != models.MatchStandard && as.MatchFormat != models.MatchEmperor {
			continue
		}
		arrows, err := as.Arrows()
		if err != nil {
			return err
		}
		total += len(arrows)
		hits += arrows.HitCount()
	}
	if total == 0 {
		return nil
	}

	return s.archerRepo.UpdateAccuracy(ctx, tx, archerID, float64(hits)/float64(total))
}
