package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusFinished  TournamentStatus = "finished"
	StatusCancelled TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

type TournamentFormat string

const (
	FormatIndividual TournamentFormat = "individual"
	FormatTeam       TournamentFormat = "team"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatIndividual || f == FormatTeam
}

// TournamentStage — этап турнира. Переходы между этапами выполняет
// только TournamentService.AdvanceStage.
type TournamentStage string

const (
	StageQualifiers         TournamentStage = "qualifiers"
	StageQualifiersTieBreak TournamentStage = "qualifiers_tie_break"
	StageFinals             TournamentStage = "finals"
	StageFinalsTieBreak     TournamentStage = "finals_tie_break"
)

func (s TournamentStage) Valid() bool {
	switch s {
	case StageQualifiers, StageQualifiersTieBreak, StageFinals, StageFinalsTieBreak:
		return true
	}
	return false
}

// IsQualifiersFamily reports whether the stage belongs to the qualification
// phase (placements go to qualifiers_place, tie-break flags to
// tie_break_qualifiers).
func (s TournamentStage) IsQualifiersFamily() bool {
	return s == StageQualifiers || s == StageQualifiersTieBreak
}

func (s TournamentStage) IsFinalsFamily() bool {
	return s == StageFinals || s == StageFinalsTieBreak
}

// Tournament представляет турнир.
type Tournament struct {
	ID             int              `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Format         TournamentFormat `json:"format" db:"format"`
	StartDate      time.Time        `json:"start_date" db:"start_date"`
	EndDate        time.Time        `json:"end_date" db:"end_date"`
	Status         TournamentStatus `json:"status" db:"status"`
	CurrentStage   TournamentStage  `json:"current_stage" db:"current_stage"`
	AdvancingCount int              `json:"advancing_count" db:"advancing_count"`
	TargetCount    int              `json:"target_count" db:"target_count"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
	BannerKey      *string          `json:"-" db:"banner_key"`
	BannerURL      *string          `json:"banner_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Archers []ArcherTournamentLink `json:"archers,omitempty" db:"-"`
	Teams   []Team                 `json:"teams,omitempty" db:"-"`
	Matches []Match                `json:"matches,omitempty" db:"-"`
}
