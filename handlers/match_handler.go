package handlers

import (
	"net/http"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/services"
)

type MatchHandler struct {
	matchService  services.MatchService
	seriesService services.SeriesService
}

func NewMatchHandler(ms services.MatchService, ss services.SeriesService) *MatchHandler {
	return &MatchHandler{
		matchService:  ms,
		seriesService: ss,
	}
}

// GetByIDHandler обрабатывает GET /matches/{matchID}
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FinishHandler обрабатывает PUT /matches/{matchID}/finish
func (h *MatchHandler) FinishHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.FinishMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /matches/{matchID}
func (h *MatchHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordArrowHandler обрабатывает POST /matches/{matchID}/archers/{archerID}/arrows
func (h *MatchHandler) RecordArrowHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	archerID, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Outcome models.HitOutcome `json:"outcome"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	series, err := h.seriesService.RecordArrow(r.Context(), matchID, archerID, input.Outcome)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"series": series}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetArrowHandler обрабатывает GET /matches/{matchID}/archers/{archerID}/arrows/{arrowID}.
// arrowID — порядковый номер стрелы в серии, начиная с 1.
func (h *MatchHandler) GetArrowHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	archerID, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	arrowID, err := getIDFromURL(r, "arrowID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.seriesService.GetArrow(r.Context(), matchID, archerID, arrowID-1)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateArrowHandler обрабатывает PUT /matches/{matchID}/archers/{archerID}/arrows/{arrowID}
func (h *MatchHandler) UpdateArrowHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	archerID, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	arrowID, err := getIDFromURL(r, "arrowID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Outcome models.HitOutcome `json:"outcome"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	series, err := h.seriesService.UpdateArrow(r.Context(), matchID, archerID, arrowID-1, input.Outcome)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"series": series}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
