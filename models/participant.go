package models

// ArcherTournamentLink регистрирует лучника в индивидуальном турнире.
// Number — стабильный порядковый номер 1..N без пропусков; при удалении
// участника номера всех последующих сдвигаются на -1.
type ArcherTournamentLink struct {
	TournamentID       int  `json:"tournament_id"`
	ArcherID           int  `json:"archer_id"`
	Number             int  `json:"number"`
	QualifiersPlace    *int `json:"qualifiers_place,omitempty"`
	FinalsPlace        *int `json:"finals_place,omitempty"`
	TieBreakQualifiers bool `json:"tie_break_qualifiers"`
	TieBreakFinals     bool `json:"tie_break_finals"`

	Archer *Archer `json:"archer,omitempty"`
}
