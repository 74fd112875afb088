package services

import (
	"context"
	"errors"
	"testing"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
)

type stubTournamentRepo struct {
	repositories.TournamentRepository
	tournament *models.Tournament
}

func (r *stubTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	if r.tournament == nil || r.tournament.ID != id {
		return nil, repositories.ErrTournamentNotFound
	}
	return r.tournament, nil
}

func (r *stubTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

// memParticipantRepo keeps links in memory under the same contract as the
// SQL implementation: Delete removes the row, ShiftNumbersAfter decrements
// every number above the removed one.
type memParticipantRepo struct {
	repositories.ParticipantRepository
	links []*models.ArcherTournamentLink
}

func (r *memParticipantRepo) Find(_ context.Context, _ repositories.SQLExecutor, tournamentID, archerID int) (*models.ArcherTournamentLink, error) {
	for _, l := range r.links {
		if l.TournamentID == tournamentID && l.ArcherID == archerID {
			return l, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *memParticipantRepo) Delete(_ context.Context, _ repositories.SQLExecutor, tournamentID, archerID int) error {
	for i, l := range r.links {
		if l.TournamentID == tournamentID && l.ArcherID == archerID {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *memParticipantRepo) ShiftNumbersAfter(_ context.Context, _ repositories.SQLExecutor, tournamentID, number int) error {
	for _, l := range r.links {
		if l.TournamentID == tournamentID && l.Number > number {
			l.Number--
		}
	}
	return nil
}

func TestRemoveArcherRenumbersParticipants(t *testing.T) {
	repo := &memParticipantRepo{}
	for i := 1; i <= 5; i++ {
		repo.links = append(repo.links, &models.ArcherTournamentLink{
			TournamentID: 1,
			ArcherID:     i * 10,
			Number:       i,
		})
	}
	svc := &participantService{
		tournamentRepo:  &stubTournamentRepo{tournament: &models.Tournament{ID: 1, Format: models.FormatIndividual}},
		participantRepo: repo,
	}

	// Removing number 3 must shift 4 and 5 down by exactly one.
	if err := svc.removeArcher(context.Background(), nil, 1, 30); err != nil {
		t.Fatalf("removeArcher: %v", err)
	}

	if len(repo.links) != 4 {
		t.Fatalf("got %d links after removal, want 4", len(repo.links))
	}
	wantNumbers := map[int]int{10: 1, 20: 2, 40: 3, 50: 4}
	seen := make(map[int]bool)
	for _, l := range repo.links {
		want, ok := wantNumbers[l.ArcherID]
		if !ok {
			t.Fatalf("unexpected archer %d still registered", l.ArcherID)
		}
		if l.Number != want {
			t.Errorf("archer %d has number %d, want %d", l.ArcherID, l.Number, want)
		}
		if seen[l.Number] {
			t.Errorf("number %d assigned twice", l.Number)
		}
		seen[l.Number] = true
	}
	for n := 1; n <= len(repo.links); n++ {
		if !seen[n] {
			t.Errorf("numbering has a gap at %d", n)
		}
	}
}

func TestRemoveArcherNotRegistered(t *testing.T) {
	svc := &participantService{
		tournamentRepo:  &stubTournamentRepo{tournament: &models.Tournament{ID: 1, Format: models.FormatIndividual}},
		participantRepo: &memParticipantRepo{},
	}
	err := svc.removeArcher(context.Background(), nil, 1, 99)
	if !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("got %v, want ErrParticipantNotFound", err)
	}
}

func TestRemoveArcherUnknownTournament(t *testing.T) {
	svc := &participantService{
		tournamentRepo:  &stubTournamentRepo{},
		participantRepo: &memParticipantRepo{},
	}
	err := svc.removeArcher(context.Background(), nil, 7, 10)
	if !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("got %v, want ErrTournamentNotFound", err)
	}
}
