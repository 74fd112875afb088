package services

import (
	"context"
	"errors"
	"testing"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
)

type stubTeamRepo struct {
	repositories.TeamRepository
	team *models.Team
}

func (r *stubTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	if r.team == nil || r.team.ID != id {
		return nil, repositories.ErrTeamNotFound
	}
	return r.team, nil
}

type memRosterRepo struct {
	repositories.RosterRepository
	links []*models.ArcherTeamLink
}

func (r *memRosterRepo) Find(_ context.Context, _ repositories.SQLExecutor, teamID, archerID int) (*models.ArcherTeamLink, error) {
	for _, l := range r.links {
		if l.TeamID == teamID && l.ArcherID == archerID {
			return l, nil
		}
	}
	return nil, repositories.ErrRosterEntryNotFound
}

func (r *memRosterRepo) Remove(_ context.Context, _ repositories.SQLExecutor, teamID, archerID int) error {
	for i, l := range r.links {
		if l.TeamID == teamID && l.ArcherID == archerID {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return nil
		}
	}
	return repositories.ErrRosterEntryNotFound
}

func (r *memRosterRepo) ShiftNumbersAfter(_ context.Context, _ repositories.SQLExecutor, teamID, number int) error {
	for _, l := range r.links {
		if l.TeamID == teamID && l.Number > number {
			l.Number--
		}
	}
	return nil
}

func TestRemoveArcherRenumbersRoster(t *testing.T) {
	roster := &memRosterRepo{}
	for i := 1; i <= 3; i++ {
		roster.links = append(roster.links, &models.ArcherTeamLink{
			TeamID:   5,
			ArcherID: i * 100,
			Number:   i,
		})
	}
	svc := &teamService{
		teamRepo:       &stubTeamRepo{team: &models.Team{ID: 5, TournamentID: 1}},
		tournamentRepo: &stubTournamentRepo{tournament: &models.Tournament{ID: 1, Format: models.FormatTeam}},
		rosterRepo:     roster,
	}

	// Removing the representative (number 1) promotes the rest by one.
	if err := svc.removeArcher(context.Background(), nil, 5, 100); err != nil {
		t.Fatalf("removeArcher: %v", err)
	}

	if len(roster.links) != 2 {
		t.Fatalf("got %d roster entries, want 2", len(roster.links))
	}
	wantNumbers := map[int]int{200: 1, 300: 2}
	for _, l := range roster.links {
		if want := wantNumbers[l.ArcherID]; l.Number != want {
			t.Errorf("archer %d has number %d, want %d", l.ArcherID, l.Number, want)
		}
	}
}

func TestRemoveArcherNotOnRoster(t *testing.T) {
	svc := &teamService{
		teamRepo:       &stubTeamRepo{team: &models.Team{ID: 5, TournamentID: 1}},
		tournamentRepo: &stubTournamentRepo{tournament: &models.Tournament{ID: 1, Format: models.FormatTeam}},
		rosterRepo:     &memRosterRepo{},
	}
	err := svc.removeArcher(context.Background(), nil, 5, 100)
	if !errors.Is(err, ErrRosterEntryNotFound) {
		t.Fatalf("got %v, want ErrRosterEntryNotFound", err)
	}
}
