package routes

import (
	"github.com/getsuraikai/kyudo-tournament/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Archer     *handlers.ArcherHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Match      *handlers.MatchHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/archers", func(r chi.Router) {
		r.Get("/", h.Archer.ListHandler)
		r.Post("/", h.Archer.CreateHandler)
		r.Get("/paginate", h.Archer.ListPaginatedHandler)

		r.Route("/{archerID}", func(r chi.Router) {
			r.Get("/", h.Archer.GetByIDHandler)
			r.Put("/", h.Archer.UpdateHandler)
			r.Delete("/", h.Archer.DeleteHandler)
			r.Post("/photo", h.Archer.UploadPhotoHandler)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Post("/", h.Tournament.CreateHandler)
		r.Get("/paginate", h.Tournament.ListPaginatedHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.Tournament.GetByIDHandler)
			r.Put("/", h.Tournament.UpdateHandler)
			r.Delete("/", h.Tournament.DeleteHandler)
			r.Post("/banner", h.Tournament.UploadBannerHandler)

			r.Post("/archers/{archerID}", h.Tournament.AddArcherHandler)
			r.Delete("/archers/{archerID}", h.Tournament.RemoveArcherHandler)

			r.Post("/teams", h.Tournament.CreateTeamHandler)

			r.Get("/matches", h.Tournament.ListMatchesHandler)
			r.Post("/matches", h.Tournament.GenerateMatchHandler)

			r.Put("/next-stage", h.Tournament.NextStageHandler)
			r.Get("/tie-break-participants", h.Tournament.TieBreakParticipantsHandler)
		})
	})

	router.Route("/teams/{teamID}", func(r chi.Router) {
		r.Get("/", h.Team.GetByIDHandler)
		r.Put("/", h.Team.UpdateNameHandler)
		r.Delete("/", h.Team.DeleteHandler)

		r.Post("/archers/{archerID}", h.Team.AddArcherHandler)
		r.Delete("/archers/{archerID}", h.Team.RemoveArcherHandler)
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Match.GetByIDHandler)
		r.Delete("/", h.Match.DeleteHandler)
		r.Put("/finish", h.Match.FinishHandler)

		r.Route("/archers/{archerID}/arrows", func(r chi.Router) {
			r.Post("/", h.Match.RecordArrowHandler)
			r.Get("/{arrowID}", h.Match.GetArrowHandler)
			r.Put("/{arrowID}", h.Match.UpdateArrowHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeTournamentWs)

	return router
}
