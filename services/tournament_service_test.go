package services

import (
	"errors"
	"testing"

	"github.com/getsuraikai/kyudo-tournament/models"
)

func TestRankAdvancingWithTieBreak(t *testing.T) {
	advancing := []AdvancingParticipant{
		{ID: 1, HitCount: 10},
		{ID: 2, HitCount: 10},
		{ID: 3, HitCount: 8},
	}

	clear, tieBreak := rankAdvancing(advancing, true)

	if len(clear) != 2 {
		t.Fatalf("clear = %v, want 2 entries", clear)
	}
	if clear[0].ID != 1 || clear[0].Place != 1 {
		t.Errorf("first place = %+v, want ID 1 place 1", clear[0])
	}
	if clear[1].ID != 2 || clear[1].Place != 2 {
		t.Errorf("second place = %+v, want ID 2 place 2", clear[1])
	}
	if len(tieBreak) != 1 || tieBreak[0] != 3 {
		t.Fatalf("tieBreak = %v, want [3]", tieBreak)
	}
}

func TestRankAdvancingTieCohortSpansSeveral(t *testing.T) {
	advancing := []AdvancingParticipant{
		{ID: 1, HitCount: 9},
		{ID: 2, HitCount: 7},
		{ID: 3, HitCount: 7},
	}

	clear, tieBreak := rankAdvancing(advancing, true)

	if len(clear) != 1 || clear[0].ID != 1 {
		t.Fatalf("clear = %v, want only ID 1", clear)
	}
	// Both participants at the least hit count enter the tie-break.
	if len(tieBreak) != 2 || tieBreak[0] != 2 || tieBreak[1] != 3 {
		t.Fatalf("tieBreak = %v, want [2 3]", tieBreak)
	}
}

func TestRankAdvancingNoTieBreak(t *testing.T) {
	advancing := []AdvancingParticipant{
		{ID: 5, HitCount: 3},
		{ID: 6, HitCount: 6},
	}

	clear, tieBreak := rankAdvancing(advancing, false)

	if len(tieBreak) != 0 {
		t.Fatalf("tieBreak = %v, want empty", tieBreak)
	}
	if len(clear) != 2 {
		t.Fatalf("clear = %v, want 2 entries", clear)
	}
	// Sorted by hit count descending.
	if clear[0].ID != 6 || clear[0].Place != 1 || clear[1].ID != 5 || clear[1].Place != 2 {
		t.Fatalf("clear = %+v, want ID 6 first, ID 5 second", clear)
	}
}

func TestRankAdvancingEqualScoresKeepInputOrder(t *testing.T) {
	advancing := []AdvancingParticipant{
		{ID: 8, HitCount: 4},
		{ID: 9, HitCount: 4},
	}

	clear, _ := rankAdvancing(advancing, false)
	if clear[0].ID != 8 || clear[1].ID != 9 {
		t.Fatalf("equal scores reordered: %+v", clear)
	}
}

func TestNextStage(t *testing.T) {
	cases := []struct {
		name         string
		current      models.TournamentStage
		hasTieBreak  bool
		wantNext     models.TournamentStage
		wantFinished bool
		wantErr      error
	}{
		{"qualifiers to finals", models.StageQualifiers, false, models.StageFinals, false, nil},
		{"qualifiers to tie-break", models.StageQualifiers, true, models.StageQualifiersTieBreak, false, nil},
		{"qualifiers tie-break to finals", models.StageQualifiersTieBreak, false, models.StageFinals, false, nil},
		{"finals ends tournament", models.StageFinals, false, "", true, nil},
		{"finals to tie-break", models.StageFinals, true, models.StageFinalsTieBreak, false, nil},
		{"finals tie-break is terminal", models.StageFinalsTieBreak, false, "", false, ErrAlreadyInFinalTieBreak},
		{"finals tie-break rejects another tie", models.StageFinalsTieBreak, true, "", false, ErrAlreadyInFinalTieBreak},
		{"no second qualifiers tie-break", models.StageQualifiersTieBreak, true, "", false, ErrInvalidStageTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, finished, err := nextStage(tc.current, tc.hasTieBreak)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next != tc.wantNext || finished != tc.wantFinished {
				t.Fatalf("nextStage = (%q, %v), want (%q, %v)", next, finished, tc.wantNext, tc.wantFinished)
			}
		})
	}
}
