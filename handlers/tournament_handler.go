package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
	"github.com/getsuraikai/kyudo-tournament/services"
)

type TournamentHandler struct {
	tournamentService  services.TournamentService
	participantService services.ParticipantService
	teamService        services.TeamService
	matchService       services.MatchService
}

func NewTournamentHandler(
	ts services.TournamentService,
	ps services.ParticipantService,
	tms services.TeamService,
	ms services.MatchService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService:  ts,
		participantService: ps,
		teamService:        tms,
		matchService:       ms,
	}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name           string                  `json:"name"`
		Format         models.TournamentFormat `json:"format"`
		StartDate      time.Time               `json:"start_date"`
		EndDate        time.Time               `json:"end_date"`
		AdvancingCount int                     `json:"advancing_count"`
		TargetCount    int                     `json:"target_count"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), services.CreateTournamentInput{
		Name:           input.Name,
		Format:         input.Format,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		AdvancingCount: input.AdvancingCount,
		TargetCount:    input.TargetCount,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /tournaments/{tournamentID}.
// Возвращает турнир со всеми связями: участники, команды, матчи с сериями.
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournamentWithRelations(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseTournamentFilter(r *http.Request) (repositories.ListTournamentsFilter, error) {
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if formatStr := query.Get("format"); formatStr != "" {
		format := models.TournamentFormat(formatStr)
		if !format.Valid() {
			return filter, errors.New("invalid format query parameter")
		}
		filter.Format = &format
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		if !status.Valid() {
			return filter, errors.New("invalid status query parameter")
		}
		filter.Status = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return filter, errors.New("invalid limit query parameter")
		}
		filter.Limit = limit
	} else {
		filter.Limit = 20
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filter, errors.New("invalid offset query parameter")
		}
		filter.Offset = offset
	}
	return filter, nil
}

// ListHandler обрабатывает GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTournamentFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPaginatedHandler обрабатывает GET /tournaments/paginate
func (h *TournamentHandler) ListPaginatedHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTournamentFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournaments, total, err := h.tournamentService.ListTournamentsPaginated(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	env := jsonResponse{
		"tournaments": tournaments,
		"total":       total,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /tournaments/{tournamentID}
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name           string                  `json:"name"`
		StartDate      time.Time               `json:"start_date"`
		EndDate        time.Time               `json:"end_date"`
		Status         models.TournamentStatus `json:"status"`
		AdvancingCount int                     `json:"advancing_count"`
		TargetCount    int                     `json:"target_count"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), id, services.UpdateTournamentInput{
		Name:           input.Name,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         input.Status,
		AdvancingCount: input.AdvancingCount,
		TargetCount:    input.TargetCount,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /tournaments/{tournamentID}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadBannerHandler обрабатывает POST /tournaments/{tournamentID}/banner
func (h *TournamentHandler) UploadBannerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("banner")
	if err != nil {
		badRequestResponse(w, r, errors.New("banner file is required"))
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UploadBanner(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddArcherHandler обрабатывает POST /tournaments/{tournamentID}/archers/{archerID}
func (h *TournamentHandler) AddArcherHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	archerID, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	link, err := h.participantService.AddArcherToTournament(r.Context(), tournamentID, archerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": link}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveArcherHandler обрабатывает DELETE /tournaments/{tournamentID}/archers/{archerID}
func (h *TournamentHandler) RemoveArcherHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	archerID, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.RemoveArcherFromTournament(r.Context(), tournamentID, archerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateTeamHandler обрабатывает POST /tournaments/{tournamentID}/teams
func (h *TournamentHandler) CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), tournamentID, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMatchesHandler обрабатывает GET /tournaments/{tournamentID}/matches
func (h *TournamentHandler) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateMatchHandler обрабатывает POST /tournaments/{tournamentID}/matches
func (h *TournamentHandler) GenerateMatchHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Format models.MatchFormat `json:"format"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GenerateMatch(r.Context(), tournamentID, input.Format)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// NextStageHandler обрабатывает PUT /tournaments/{tournamentID}/next-stage
func (h *TournamentHandler) NextStageHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Advancing        []services.AdvancingParticipant `json:"advancing"`
		TieBreakerNeeded bool                            `json:"tie_breaker_needed"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.AdvanceStage(r.Context(), tournamentID, input.Advancing, input.TieBreakerNeeded)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TieBreakParticipantsHandler обрабатывает GET /tournaments/{tournamentID}/tie-break-participants
func (h *TournamentHandler) TieBreakParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stage := models.TournamentStage(r.URL.Query().Get("stage"))
	participants, err := h.tournamentService.ListTieBreakParticipants(r.Context(), tournamentID, stage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tie_break": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
