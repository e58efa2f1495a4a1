package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/matchdesk/docs" // регистрирует swagger-спецификацию
	"github.com/Dosada05/matchdesk/handlers"
	"github.com/Dosada05/matchdesk/middleware"
	"github.com/Dosada05/matchdesk/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers собирает все HTTP-обработчики приложения.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Round       *handlers.RoundHandler
	Match       *handlers.MatchHandler
	Team        *handlers.TeamHandler
	Participant *handlers.ParticipantHandler
	TeamPortal  *handlers.TeamPortalHandler
	WebSocket   *handlers.WebSocketHandler
	Health      *handlers.HealthHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	// RequestTimeout не применяется к /ws: соединение живёт дольше запроса.
	RequestTimeout time.Duration
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", h.Health.Health)
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.With(
		middleware.AuthenticateWebSocket(opts.JWTSecret),
		middleware.RequireRole(models.RoleAdmin, models.RoleTeam),
	).Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/admin/register", h.Auth.RegisterAdmin)
			r.Post("/admin/login", h.Auth.LoginAdmin)
			r.Post("/team/login", h.Auth.LoginTeam)
		})

		// Маршруты администратора
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Route("/tournaments", func(r chi.Router) {
				r.Get("/", h.Tournament.ListTournaments)
				r.Post("/", h.Tournament.CreateTournament)

				r.Route("/{tournamentID}", func(r chi.Router) {
					r.Get("/", h.Tournament.GetTournament)
					r.Put("/", h.Tournament.UpdateTournament)
					r.Delete("/", h.Tournament.DeleteTournament)
					r.Get("/overview", h.Tournament.GetOverview)
					r.Get("/matches", h.Match.ListMatches)

					r.Get("/rounds", h.Round.ListRounds)
					r.Post("/rounds", h.Round.CreateRound)
					r.Post("/rounds/{roundID}/close", h.Round.CloseRound)
					r.Post("/rounds/{roundID}/reopen", h.Round.ReopenRound)
				})
			})

			r.Route("/matches", func(r chi.Router) {
				r.Post("/", h.Match.CreateMatch)
				r.Get("/{matchID}", h.Match.GetMatch)
				r.Put("/{matchID}", h.Match.UpdateMatch)
				r.Delete("/{matchID}", h.Match.DeleteMatch)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", h.Team.ListTeams)
				r.Post("/", h.Team.CreateTeam)
				r.Get("/{teamID}", h.Team.GetTeam)
				r.Put("/{teamID}", h.Team.UpdateTeam)
				r.Delete("/{teamID}", h.Team.DeleteTeam)
				r.Post("/{teamID}/reset-password", h.Team.ResetPassword)
				r.Get("/{teamID}/participants", h.Participant.ListParticipants)
				r.Post("/{teamID}/participants", h.Participant.AddParticipant)
			})

			r.Put("/participants/{participantID}", h.Participant.UpdateParticipant)
			r.Delete("/participants/{participantID}", h.Participant.RemoveParticipant)
		})

		// Маршруты команды
		r.Route("/team", func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))
			r.Use(middleware.RequireRole(models.RoleTeam))

			r.Get("/me", h.TeamPortal.Me)
			r.Get("/participants", h.TeamPortal.ListParticipants)
			r.Get("/matches", h.TeamPortal.ListMatches)
			r.Get("/matches/{matchID}", h.TeamPortal.GetMatch)
			r.Put("/matches/{matchID}", h.TeamPortal.UpdateMatch)
			r.Delete("/matches/{matchID}", h.TeamPortal.DeleteMatch)
			r.Post("/matches/{matchID}/result", h.TeamPortal.SubmitResult)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"the requested resource could not be found"}` + "\n"))
	})
}
