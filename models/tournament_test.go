package models

import "testing"

func TestTournamentStageFamilies(t *testing.T) {
	cases := []struct {
		stage      TournamentStage
		qualifiers bool
		finals     bool
	}{
		{StageQualifiers, true, false},
		{StageQualifiersTieBreak, true, false},
		{StageFinals, false, true},
		{StageFinalsTieBreak, false, true},
	}
	for _, tc := range cases {
		if got := tc.stage.IsQualifiersFamily(); got != tc.qualifiers {
			t.Errorf("%q IsQualifiersFamily = %v, want %v", tc.stage, got, tc.qualifiers)
		}
		if got := tc.stage.IsFinalsFamily(); got != tc.finals {
			t.Errorf("%q IsFinalsFamily = %v, want %v", tc.stage, got, tc.finals)
		}
	}
}

func TestTeamRepresentative(t *testing.T) {
	team := &Team{
		Roster: []ArcherTeamLink{
			{ArcherID: 7, Number: 2},
			{ArcherID: 5, Number: 1},
		},
	}
	rep := team.Representative()
	if rep == nil || rep.ArcherID != 5 {
		t.Fatalf("Representative = %+v, want archer 5", rep)
	}

	if (&Team{}).Representative() != nil {
		t.Fatal("empty roster should have no representative")
	}
}
