package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки "не найдено" по сущностям
	ErrArcherNotFound      = errors.New("archer not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrSeriesNotFound      = errors.New("series not found")
	ErrArrowNotFound       = errors.New("arrow not found in series")
	ErrParticipantNotFound = errors.New("tournament participant not found")
	ErrRosterEntryNotFound = errors.New("archer is not on this team")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed           = errors.New("validation failed")
	ErrArcherNameRequired         = errors.New("archer name is required")
	ErrArcherInvalidPosition      = errors.New("invalid archer position")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrTournamentInvalidFormat    = errors.New("invalid tournament format")
	ErrTournamentInvalidDateRange = errors.New("tournament end date must not be before start date")
	ErrTournamentInvalidCounts    = errors.New("advancing count and target count must be positive")
	ErrTeamNameRequired           = errors.New("team name is required")
	ErrWrongTournamentFormat      = errors.New("operation not allowed for this tournament format")
	ErrInvalidMatchFormat         = errors.New("invalid match format")
	ErrInvalidHitOutcome          = errors.New("invalid hit outcome")
	ErrSeriesFull                 = errors.New("series already holds the maximum arrow count for this format")
	ErrEmptyEligiblePool          = errors.New("cannot generate match: no eligible participants for the current stage")
	ErrAdvancingListEmpty         = errors.New("advancing participants list is empty")

	// Ошибки недопустимого состояния
	ErrMatchAlreadyFinished   = errors.New("match is already finished")
	ErrMatchNotFinishable     = errors.New("match is not eligible to be finished")
	ErrAlreadyInFinalTieBreak = errors.New("already in final tie-break")
	ErrInvalidStageTransition = errors.New("invalid tournament stage transition")

	// Ошибки конфликтов
	ErrRegistrationConflict   = errors.New("archer is already registered for this tournament")
	ErrTeamNameConflict       = errors.New("team name is already in use for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrRosterConflict         = errors.New("archer is already on this team")
)
