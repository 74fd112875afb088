package models

// ArcherTeamLink — ordered team roster entry. Number is the within-team
// shooting order, contiguous from 1.
type ArcherTeamLink struct {
	TeamID   int `json:"team_id"`
	ArcherID int `json:"archer_id"`
	Number   int `json:"number"`

	Archer *Archer `json:"archer,omitempty"`
}
