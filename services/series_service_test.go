package services

import (
	"context"
	"errors"
	"testing"

	"github.com/getsuraikai/kyudo-tournament/models"
)

func TestAppendOutcomeBound(t *testing.T) {
	arrows := models.ArrowSequence{}
	var err error
	for i := 0; i < 4; i++ {
		arrows, err = appendOutcome(arrows, models.Hit, models.MatchStandard)
		if err != nil {
			t.Fatalf("arrow %d rejected: %v", i+1, err)
		}
	}

	// A standard series holds exactly four arrows.
	if _, err := appendOutcome(arrows, models.Miss, models.MatchStandard); !errors.Is(err, ErrSeriesFull) {
		t.Fatalf("fifth arrow: err = %v, want ErrSeriesFull", err)
	}
}

func TestAppendOutcomePerFormat(t *testing.T) {
	cases := []struct {
		format models.MatchFormat
		max    int
	}{
		{models.MatchStandard, 4},
		{models.MatchEmperor, 2},
		{models.MatchEnkin, 1},
		{models.MatchIzume, 1},
	}

	for _, tc := range cases {
		arrows := models.ArrowSequence{}
		var err error
		for i := 0; i < tc.max; i++ {
			if arrows, err = appendOutcome(arrows, models.Hit, tc.format); err != nil {
				t.Fatalf("%s: arrow %d rejected: %v", tc.format, i+1, err)
			}
		}
		if _, err := appendOutcome(arrows, models.Hit, tc.format); !errors.Is(err, ErrSeriesFull) {
			t.Errorf("%s: overflow err = %v, want ErrSeriesFull", tc.format, err)
		}
	}
}

func TestValidateOutcome(t *testing.T) {
	if err := validateOutcome(models.MatchStandard, models.Ensure); err != nil {
		t.Errorf("ensure rejected for standard: %v", err)
	}
	if err := validateOutcome(models.MatchStandard, models.HitOutcome(3)); !errors.Is(err, ErrInvalidHitOutcome) {
		t.Errorf("out-of-range outcome: err = %v, want ErrInvalidHitOutcome", err)
	}
	// Enkin stores a claimed position, which must be at least 1.
	if err := validateOutcome(models.MatchEnkin, models.HitOutcome(3)); err != nil {
		t.Errorf("enkin position 3 rejected: %v", err)
	}
	if err := validateOutcome(models.MatchEnkin, models.HitOutcome(0)); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("enkin position 0: err = %v, want ErrValidationFailed", err)
	}
}

func TestGetMatchLocksRow(t *testing.T) {
	match := &models.Match{ID: 3, TournamentID: 1, Format: models.MatchStandard}
	repo := &stubMatchRepo{match: match}
	svc := &seriesService{matchRepo: repo}

	got, err := svc.getMatch(context.Background(), nil, 3)
	if err != nil {
		t.Fatalf("getMatch: %v", err)
	}
	if got.ID != 3 {
		t.Fatalf("got match %d, want 3", got.ID)
	}
	// Arrow writes serialize on the match row, so the read must lock it.
	if repo.lockReads != 1 || repo.plainReads != 0 {
		t.Errorf("getMatch used %d locking and %d plain reads, want 1 and 0", repo.lockReads, repo.plainReads)
	}

	if _, err := svc.getMatch(context.Background(), nil, 99); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("unknown match: got %v, want ErrMatchNotFound", err)
	}
}
