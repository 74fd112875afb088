package models

import "time"

type Team struct {
	ID                 int       `json:"id" db:"id"`
	TournamentID       int       `json:"tournament_id" db:"tournament_id"`
	Name               string    `json:"name" db:"name"`
	Number             int       `json:"number" db:"number"`
	QualifiersPlace    *int      `json:"qualifiers_place,omitempty" db:"qualifiers_place"`
	FinalsPlace        *int      `json:"finals_place,omitempty" db:"finals_place"`
	TieBreakQualifiers bool      `json:"tie_break_qualifiers" db:"tie_break_qualifiers"`
	TieBreakFinals     bool      `json:"tie_break_finals" db:"tie_break_finals"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`

	Roster []ArcherTeamLink `json:"archers,omitempty" db:"-"`
}

// Representative returns the roster entry used for match-count balancing
// (the archer with within-team number 1), or nil for an empty roster.
func (t *Team) Representative() *ArcherTeamLink {
	for i := range t.Roster {
		if t.Roster[i].Number == 1 {
			return &t.Roster[i]
		}
	}
	return nil
}
