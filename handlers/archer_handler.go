package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
	"github.com/getsuraikai/kyudo-tournament/services"
)

type ArcherHandler struct {
	archerService services.ArcherService
}

func NewArcherHandler(as services.ArcherService) *ArcherHandler {
	return &ArcherHandler{archerService: as}
}

// CreateHandler обрабатывает POST /archers
func (h *ArcherHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string                `json:"name"`
		Position models.ArcherPosition `json:"position"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	archer, err := h.archerService.CreateArcher(r.Context(), services.CreateArcherInput{
		Name:     input.Name,
		Position: input.Position,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"archer": archer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /archers/{archerID}
func (h *ArcherHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	archer, err := h.archerService.GetArcherByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"archer": archer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseArcherFilter(r *http.Request) (repositories.ListArchersFilter, error) {
	var filter repositories.ListArchersFilter
	query := r.URL.Query()

	filter.Name = query.Get("name")
	if positionStr := query.Get("position"); positionStr != "" {
		position := models.ArcherPosition(positionStr)
		if !position.Valid() {
			return filter, errors.New("invalid position query parameter")
		}
		filter.Position = &position
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

// ListHandler обрабатывает GET /archers
func (h *ArcherHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseArcherFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	archers, err := h.archerService.ListArchers(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"archers": archers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPaginatedHandler обрабатывает GET /archers/paginate
func (h *ArcherHandler) ListPaginatedHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseArcherFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	archers, total, err := h.archerService.ListArchersPaginated(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	env := jsonResponse{
		"archers": archers,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /archers/{archerID}
func (h *ArcherHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name     string                `json:"name"`
		Position models.ArcherPosition `json:"position"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	archer, err := h.archerService.UpdateArcher(r.Context(), id, services.UpdateArcherInput{
		Name:     input.Name,
		Position: input.Position,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"archer": archer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /archers/{archerID}
func (h *ArcherHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.archerService.DeleteArcher(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadPhotoHandler обрабатывает POST /archers/{archerID}/photo
func (h *ArcherHandler) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "archerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequestResponse(w, r, errors.New("photo file is required"))
		return
	}
	defer file.Close()

	archer, err := h.archerService.UploadPhoto(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"archer": archer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
