package models

import "testing"

func TestParseArrowsRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want ArrowSequence
	}{
		{"empty string", "", ArrowSequence{}},
		{"empty array", "[]", ArrowSequence{}},
		{"single hit", "[1]", ArrowSequence{Hit}},
		{"full standard series", "[1,0,2,1]", ArrowSequence{Hit, Miss, Ensure, Hit}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			arrows, err := ParseArrows(tc.raw)
			if err != nil {
				t.Fatalf("ParseArrows(%q) returned error: %v", tc.raw, err)
			}
			if len(arrows) != len(tc.want) {
				t.Fatalf("ParseArrows(%q) = %v, want %v", tc.raw, arrows, tc.want)
			}
			for i := range arrows {
				if arrows[i] != tc.want[i] {
					t.Fatalf("ParseArrows(%q)[%d] = %d, want %d", tc.raw, i, arrows[i], tc.want[i])
				}
			}

			reparsed, err := ParseArrows(arrows.Raw())
			if err != nil {
				t.Fatalf("round-trip of %q failed: %v", tc.raw, err)
			}
			if len(reparsed) != len(arrows) {
				t.Fatalf("round-trip of %q changed length: %v -> %v", tc.raw, arrows, reparsed)
			}
		})
	}
}

func TestParseArrowsInvalid(t *testing.T) {
	if _, err := ParseArrows("not json"); err == nil {
		t.Fatal("expected error for malformed arrows_raw, got nil")
	}
}

func TestArrowSequenceHasEnsure(t *testing.T) {
	if (ArrowSequence{Hit, Miss, Hit, Miss}).HasEnsure() {
		t.Error("sequence without ensure reported HasEnsure")
	}
	if !(ArrowSequence{Hit, Ensure}).HasEnsure() {
		t.Error("sequence with ensure not reported")
	}
	if (ArrowSequence{}).HasEnsure() {
		t.Error("empty sequence reported HasEnsure")
	}
}

func TestArrowSequenceHitCount(t *testing.T) {
	cases := []struct {
		arrows ArrowSequence
		want   int
	}{
		{ArrowSequence{}, 0},
		{ArrowSequence{Miss, Miss}, 0},
		{ArrowSequence{Hit, Miss, Hit, Hit}, 3},
		// Ensure is not a confirmed hit.
		{ArrowSequence{Hit, Ensure}, 1},
	}
	for _, tc := range cases {
		if got := tc.arrows.HitCount(); got != tc.want {
			t.Errorf("HitCount(%v) = %d, want %d", tc.arrows, got, tc.want)
		}
	}
}

func TestSeriesSetArrows(t *testing.T) {
	var s Series
	s.SetArrows(ArrowSequence{Hit, Miss})
	if s.ArrowsRaw != "[1,0]" {
		t.Fatalf("SetArrows stored %q, want %q", s.ArrowsRaw, "[1,0]")
	}

	arrows, err := s.Arrows()
	if err != nil {
		t.Fatalf("Arrows() returned error: %v", err)
	}
	if len(arrows) != 2 || arrows[0] != Hit || arrows[1] != Miss {
		t.Fatalf("Arrows() = %v, want [1 0]", arrows)
	}
}
