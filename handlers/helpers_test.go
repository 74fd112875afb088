package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsuraikai/kyudo-tournament/services"
	"github.com/go-chi/chi/v5"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"archer not found", services.ErrArcherNotFound, http.StatusNotFound},
		{"arrow not found", services.ErrArrowNotFound, http.StatusNotFound},
		{"registration conflict", services.ErrRegistrationConflict, http.StatusConflict},
		{"team name conflict", services.ErrTeamNameConflict, http.StatusConflict},
		{"series full", services.ErrSeriesFull, http.StatusBadRequest},
		{"wrong tournament format", services.ErrWrongTournamentFormat, http.StatusBadRequest},
		{"match already finished", services.ErrMatchAlreadyFinished, http.StatusBadRequest},
		{"final tie-break terminal", services.ErrAlreadyInFinalTieBreak, http.StatusBadRequest},
		{"unknown error", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			mapServiceErrorToHTTP(rec, req, tc.err)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func requestWithURLParam(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetIDFromURL(t *testing.T) {
	id, err := getIDFromURL(requestWithURLParam("archerID", "42"), "archerID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}

	if _, err := getIDFromURL(requestWithURLParam("archerID", "abc"), "archerID"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := getIDFromURL(requestWithURLParam("archerID", "0"), "archerID"); err == nil {
		t.Fatal("expected error for zero id")
	}
	if _, err := getIDFromURL(httptest.NewRequest(http.MethodGet, "/", nil), "archerID"); err == nil {
		t.Fatal("expected error for missing URL param")
	}
}
