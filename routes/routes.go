package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/dance-battle/handlers"
	"github.com/Dosada05/dance-battle/middleware"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	// RateLimiter ограничивает публичные POST оценок и голосов; nil отключает ограничение.
	RateLimiter *middleware.IPRateLimiter
}

type Handlers struct {
	Auth         *handlers.AuthHandler
	Events       *handlers.EventHandler
	Tournaments  *handlers.TournamentHandler
	Participants *handlers.ParticipantHandler
	Preselection *handlers.PreselectionHandler
	Matches      *handlers.MatchHandler
	Uploads      *handlers.UploadHandler
	WebSocket    *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	requireAdmin := middleware.RequireAdmin(opts.JWTSecret)
	limited := func(next http.Handler) http.Handler {
		if opts.RateLimiter == nil {
			return next
		}
		return opts.RateLimiter.Middleware(next)
	}

	router.Post("/admin/login", h.Auth.Login)
	router.With(requireAdmin).Post("/uploads", h.Uploads.UploadImage)

	router.Route("/events", func(r chi.Router) {
		r.Get("/", h.Events.GetAllEvents)
		r.Get("/{eventID}", h.Events.GetEventByID)
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.Events.CreateEvent)
			r.Delete("/{eventID}", h.Events.DeleteEvent)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournaments.ListHandler)
		r.With(requireAdmin).Post("/", h.Tournaments.CreateHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.Tournaments.GetByIDHandler)
			r.Get("/participants", h.Participants.ListParticipants)
			r.Post("/participants", h.Participants.RegisterParticipant)
			r.Get("/judges", h.Participants.ListJudges)
			r.Post("/judges", h.Participants.RegisterJudge)
			r.Get("/standings", h.Preselection.ListStandings)
			r.With(limited).Post("/scores", h.Preselection.SubmitScore)
			r.Get("/matches", h.Matches.ListTournamentMatches)
			r.Get("/current-match", h.Matches.CurrentMatch)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Delete("/", h.Tournaments.DeleteHandler)
				r.Delete("/participants/{participantID}", h.Participants.DeleteParticipant)
				r.Post("/finish-preselection", h.Preselection.FinishPreselection)
				r.Post("/generate-brackets", h.Tournaments.GenerateBracketsHandler)
				r.Post("/start", h.Tournaments.StartHandler)
			})
		})
	})

	router.Route("/judges/{judgeID}", func(r chi.Router) {
		r.Get("/", h.Participants.GetJudge)
		r.Post("/finish-scoring", h.Preselection.FinishJudgeScoring)
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Matches.GetMatch)
		r.Get("/votes", h.Matches.ListVotes)
		r.With(limited).Post("/votes", h.Matches.CastVote)
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/winner", h.Matches.DeclareWinner)
			r.Post("/finish", h.Matches.FinishMatch)
			r.Post("/reset", h.Matches.ResetMatch)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
}
