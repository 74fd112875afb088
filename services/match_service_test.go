package services

import (
	"context"
	"errors"
	"testing"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
)

func matchWith(format models.MatchFormat, series map[int]models.ArrowSequence) *models.Match {
	match := &models.Match{Format: format}
	for archerID, arrows := range series {
		match.Archers = append(match.Archers, models.Archer{ID: archerID})
		s := models.Series{ArcherID: archerID}
		s.SetArrows(arrows)
		match.Series = append(match.Series, s)
	}
	return match
}

func TestMatchIsFinishedStandard(t *testing.T) {
	cases := []struct {
		name   string
		series map[int]models.ArrowSequence
		want   bool
	}{
		{
			"all full series",
			map[int]models.ArrowSequence{
				1: {models.Hit, models.Miss, models.Hit, models.Hit},
				2: {models.Miss, models.Miss, models.Miss, models.Miss},
			},
			true,
		},
		{
			"one archer short",
			map[int]models.ArrowSequence{
				1: {models.Hit, models.Miss, models.Hit, models.Hit},
				2: {models.Hit, models.Miss},
			},
			false,
		},
		{
			"unresolved ensure blocks",
			map[int]models.ArrowSequence{
				1: {models.Hit, models.Ensure, models.Hit, models.Hit},
				2: {models.Miss, models.Miss, models.Miss, models.Miss},
			},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MatchIsFinished(matchWith(models.MatchStandard, tc.series))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("MatchIsFinished = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatchIsFinishedStandardMissingSeries(t *testing.T) {
	match := matchWith(models.MatchStandard, map[int]models.ArrowSequence{
		1: {models.Hit, models.Hit, models.Hit, models.Hit},
	})
	// Second archer attached but has not shot yet.
	match.Archers = append(match.Archers, models.Archer{ID: 2})

	got, err := MatchIsFinished(match)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("match with an archer who has no series reported finished")
	}
}

func TestMatchIsFinishedEmperor(t *testing.T) {
	match := matchWith(models.MatchEmperor, map[int]models.ArrowSequence{
		1: {models.Hit, models.Miss},
		2: {models.Hit, models.Hit},
	})
	got, err := MatchIsFinished(match)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("complete emperor match reported not finished")
	}
}

func TestMatchIsFinishedEnkin(t *testing.T) {
	cases := []struct {
		name   string
		series map[int]models.ArrowSequence
		want   bool
	}{
		{
			"distinct positions",
			map[int]models.ArrowSequence{1: {0}, 2: {1}, 3: {2}},
			true,
		},
		{
			"duplicate position forces rerun",
			map[int]models.ArrowSequence{1: {1}, 2: {1}},
			false,
		},
		{
			"archer has not claimed yet",
			map[int]models.ArrowSequence{1: {0}, 2: {}},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MatchIsFinished(matchWith(models.MatchEnkin, tc.series))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("MatchIsFinished = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatchIsFinishedIzumeNeverFinishes(t *testing.T) {
	match := matchWith(models.MatchIzume, map[int]models.ArrowSequence{
		1: {models.Hit},
		2: {models.Miss},
	})
	got, err := MatchIsFinished(match)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("izume match reported finished")
	}
}

func TestMatchIsFinishedUnknownFormat(t *testing.T) {
	_, err := MatchIsFinished(&models.Match{Format: "bogus"})
	if !errors.Is(err, ErrInvalidMatchFormat) {
		t.Fatalf("expected ErrInvalidMatchFormat, got %v", err)
	}
}

func TestSelectLeastPlayed(t *testing.T) {
	// A, B and D are one match behind C, so they are caught up first.
	ids := []int{1, 2, 3, 4}
	played := map[int]int{1: 1, 2: 1, 3: 2, 4: 1}

	got := selectLeastPlayed(ids, played, 4)
	want := []int{1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("selectLeastPlayed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("selectLeastPlayed = %v, want %v", got, want)
		}
	}
}

func TestSelectLeastPlayedAllLevel(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5}
	played := map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2}

	got := selectLeastPlayed(ids, played, 3)
	if len(got) != 3 {
		t.Fatalf("expected pool truncated to 3, got %v", got)
	}
	for i, want := range []int{1, 2, 3} {
		if got[i] != want {
			t.Fatalf("selectLeastPlayed = %v, want seed order prefix [1 2 3]", got)
		}
	}
}

func TestSelectLeastPlayedNoHistory(t *testing.T) {
	got := selectLeastPlayed([]int{7, 8}, map[int]int{}, 4)
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Fatalf("selectLeastPlayed with no history = %v, want [7 8]", got)
	}
}

func teamWithRoster(id int, archerIDs ...int) *models.Team {
	team := &models.Team{ID: id}
	for i, archerID := range archerIDs {
		team.Roster = append(team.Roster, models.ArcherTeamLink{
			TeamID:   id,
			ArcherID: archerID,
			Number:   i + 1,
		})
	}
	return team
}

func TestSelectTeamsLeastPlayed(t *testing.T) {
	teams := []*models.Team{
		teamWithRoster(1, 10, 11, 12),
		teamWithRoster(2, 20, 21, 22),
		teamWithRoster(3, 30, 31, 32),
	}
	// Team 2's representative has played more than the others.
	played := map[int]int{10: 0, 20: 1, 30: 0}

	got := selectTeamsLeastPlayed(teams, played, 6)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		ids := make([]int, len(got))
		for i, team := range got {
			ids[i] = team.ID
		}
		t.Fatalf("selected team IDs = %v, want [1 3]", ids)
	}
}

func TestSelectTeamsLeastPlayedWholeRosters(t *testing.T) {
	teams := []*models.Team{
		teamWithRoster(1, 10, 11, 12),
		teamWithRoster(2, 20, 21, 22),
	}
	played := map[int]int{}

	// Target of 4 cannot be met by one roster of 3, so a second whole
	// roster is pulled in rather than splitting it.
	got := selectTeamsLeastPlayed(teams, played, 4)
	if len(got) != 2 {
		t.Fatalf("expected 2 whole teams, got %d", len(got))
	}
}

func TestFilterEligibleLinks(t *testing.T) {
	place := 1
	links := []*models.ArcherTournamentLink{
		{ArcherID: 1, QualifiersPlace: &place},
		{ArcherID: 2, TieBreakQualifiers: true},
		{ArcherID: 3},
	}

	if got := filterEligibleLinks(links, models.StageQualifiers); len(got) != 3 {
		t.Errorf("qualifiers: %d eligible, want 3", len(got))
	}
	if got := filterEligibleLinks(links, models.StageQualifiersTieBreak); len(got) != 1 || got[0].ArcherID != 2 {
		t.Errorf("qualifiers tie-break: wrong selection")
	}
	if got := filterEligibleLinks(links, models.StageFinals); len(got) != 1 || got[0].ArcherID != 1 {
		t.Errorf("finals: wrong selection")
	}
	if got := filterEligibleLinks(links, models.StageFinalsTieBreak); len(got) != 0 {
		t.Errorf("finals tie-break: %d eligible, want 0", len(got))
	}
}

// stubMatchRepo serves one match from memory and records which read variant
// the service used.
type stubMatchRepo struct {
	repositories.MatchRepository
	match      *models.Match
	plainReads int
	lockReads  int
}

func (r *stubMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.plainReads++
	return r.get(id)
}

func (r *stubMatchRepo) GetByIDForUpdate(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.lockReads++
	return r.get(id)
}

func (r *stubMatchRepo) get(id int) (*models.Match, error) {
	if r.match == nil || r.match.ID != id {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *r.match
	copied.Archers = nil
	copied.Series = nil
	return &copied, nil
}

func (r *stubMatchRepo) ListArchers(_ context.Context, _ repositories.SQLExecutor, _ int) ([]models.Archer, error) {
	return r.match.Archers, nil
}

func (r *stubMatchRepo) SetFinished(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if r.match == nil || r.match.ID != id {
		return repositories.ErrMatchNotFound
	}
	r.match.Finished = true
	return nil
}

type stubSeriesRepo struct {
	repositories.SeriesRepository
	series []models.Series
}

func (r *stubSeriesRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, _ int) ([]models.Series, error) {
	return r.series, nil
}

func TestFinishMatchSecondCallRejected(t *testing.T) {
	match := matchWith(models.MatchStandard, map[int]models.ArrowSequence{
		1: {models.Hit, models.Miss, models.Hit, models.Hit},
	})
	match.ID = 9
	repo := &stubMatchRepo{match: match}
	svc := &matchService{
		matchRepo:  repo,
		seriesRepo: &stubSeriesRepo{series: match.Series},
	}

	got, err := svc.finishMatch(context.Background(), nil, 9)
	if err != nil {
		t.Fatalf("first finish: %v", err)
	}
	if !got.Finished {
		t.Fatal("first finish did not set the flag")
	}

	// A repeated finish observes the committed flag and fails the guard
	// without touching the row again.
	if _, err := svc.finishMatch(context.Background(), nil, 9); !errors.Is(err, ErrMatchAlreadyFinished) {
		t.Fatalf("second finish: got %v, want ErrMatchAlreadyFinished", err)
	}

	if repo.lockReads != 2 || repo.plainReads != 0 {
		t.Errorf("finish used %d locking and %d plain reads, want 2 and 0", repo.lockReads, repo.plainReads)
	}
}

func TestFinishMatchNotFinishable(t *testing.T) {
	match := matchWith(models.MatchStandard, map[int]models.ArrowSequence{
		1: {models.Hit, models.Miss},
	})
	match.ID = 9
	repo := &stubMatchRepo{match: match}
	svc := &matchService{
		matchRepo:  repo,
		seriesRepo: &stubSeriesRepo{series: match.Series},
	}

	if _, err := svc.finishMatch(context.Background(), nil, 9); !errors.Is(err, ErrMatchNotFinishable) {
		t.Fatalf("got %v, want ErrMatchNotFinishable", err)
	}
	if repo.match.Finished {
		t.Error("incomplete match was marked finished")
	}
}
