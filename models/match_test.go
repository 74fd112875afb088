package models

import "testing"

func TestMatchFormatArrowCount(t *testing.T) {
	cases := []struct {
		format MatchFormat
		want   int
	}{
		{MatchStandard, 4},
		{MatchEmperor, 2},
		{MatchEnkin, 1},
		{MatchIzume, 1},
		{MatchFormat("bogus"), 0},
	}
	for _, tc := range cases {
		if got := tc.format.ArrowCount(); got != tc.want {
			t.Errorf("ArrowCount(%q) = %d, want %d", tc.format, got, tc.want)
		}
	}
}

func TestMatchFormatValid(t *testing.T) {
	for _, f := range []MatchFormat{MatchStandard, MatchEmperor, MatchEnkin, MatchIzume} {
		if !f.Valid() {
			t.Errorf("format %q reported invalid", f)
		}
	}
	if MatchFormat("standart").Valid() {
		t.Error("misspelled format reported valid")
	}
}
