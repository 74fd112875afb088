package models

import "time"

// MatchFormat определяет формат матча и число стрел в серии.
type MatchFormat string

const (
	MatchStandard MatchFormat = "standard"
	MatchEmperor  MatchFormat = "emperor"
	MatchEnkin    MatchFormat = "enkin"
	MatchIzume    MatchFormat = "izume"
)

func (f MatchFormat) Valid() bool {
	switch f {
	case MatchStandard, MatchEmperor, MatchEnkin, MatchIzume:
		return true
	}
	return false
}

// ArrowCount returns the fixed number of arrows per series for the format.
// For enkin the single value holds a claimed standing position, not a hit.
func (f MatchFormat) ArrowCount() int {
	switch f {
	case MatchStandard:
		return 4
	case MatchEmperor:
		return 2
	case MatchEnkin:
		return 1
	case MatchIzume:
		return 1
	}
	return 0
}

type Match struct {
	ID           int             `json:"id"`
	TournamentID int             `json:"tournament_id"`
	Format       MatchFormat     `json:"format"`
	Stage        TournamentStage `json:"stage"` // snapshot of the tournament stage at creation
	Finished     bool            `json:"finished"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Archers []Archer `json:"archers,omitempty"`
	Series  []Series `json:"series,omitempty"`
}
