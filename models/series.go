package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// HitOutcome — результат выстрела, как он хранится в arrows_raw.
type HitOutcome int

const (
	Miss HitOutcome = 0
	Hit  HitOutcome = 1
	// Ensure marks a provisional hit pending adjudication. An unresolved
	// ensure blocks match completion.
	Ensure HitOutcome = 2
)

func (o HitOutcome) Valid() bool {
	return o == Miss || o == Hit || o == Ensure
}

// ArrowSequence is the ordered list of outcomes stored in a series.
// It is persisted as a JSON int array in the arrows_raw column.
type ArrowSequence []HitOutcome

func ParseArrows(raw string) (ArrowSequence, error) {
	if raw == "" {
		return ArrowSequence{}, nil
	}
	var arrows ArrowSequence
	if err := json.Unmarshal([]byte(raw), &arrows); err != nil {
		return nil, fmt.Errorf("invalid arrows_raw %q: %w", raw, err)
	}
	return arrows, nil
}

func (a ArrowSequence) Raw() string {
	if a == nil {
		a = ArrowSequence{}
	}
	data, _ := json.Marshal(a)
	return string(data)
}

func (a ArrowSequence) HasEnsure() bool {
	for _, o := range a {
		if o == Ensure {
			return true
		}
	}
	return false
}

func (a ArrowSequence) HitCount() int {
	count := 0
	for _, o := range a {
		if o == Hit {
			count++
		}
	}
	return count
}

type Series struct {
	ID        int       `json:"id"`
	MatchID   int       `json:"match_id"`
	ArcherID  int       `json:"archer_id"`
	ArrowsRaw string    `json:"arrows_raw"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Archer *Archer `json:"archer,omitempty"`
}

func (s *Series) Arrows() (ArrowSequence, error) {
	return ParseArrows(s.ArrowsRaw)
}

func (s *Series) SetArrows(arrows ArrowSequence) {
	s.ArrowsRaw = arrows.Raw()
}
