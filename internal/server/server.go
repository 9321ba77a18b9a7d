package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/emotion"
	"github.com/dukerupert/quietcuration/internal/handler"
	"github.com/dukerupert/quietcuration/internal/invite"
	"github.com/dukerupert/quietcuration/internal/locale"
	"github.com/dukerupert/quietcuration/internal/middleware"
	"github.com/dukerupert/quietcuration/internal/pairing"
	"github.com/dukerupert/quietcuration/internal/saved"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/today"
	ws "github.com/dukerupert/quietcuration/internal/websocket"
)

// Sign-in endpoints allow a burst of 10 per client IP, refilling one every
// six seconds.
const (
	signInBurst    = 10
	signInInterval = 6 * time.Second
)

type Config struct {
	SiteURL               string
	CronSecret            string
	FallbackCurationID    string
	DefaultLocale         string
	EmotionLoggingEnabled bool
	CORSOrigins           []string
	TrustedProxies        []string
}

type Server struct {
	db            *database.DB
	hub           *ws.Hub
	authenticator *middleware.Authenticator
	authH         *handler.AuthHandler
	profileH      *handler.ProfileHandler
	readingH      *handler.ReadingHandler
	pairingH      *handler.PairingHandler
	savedH        *handler.SavedHandler
	emotionH      *handler.EmotionHandler
	verseH        *handler.VerseHandler
	cronH         *handler.CronHandler
	sessions      *store.SessionStore
	codes         *store.SignInCodeStore
	rateLimiter   *middleware.RateLimiter
	clientIP      *middleware.ClientIP
	inviteRunner  *invite.Runner
	corsOrigins   []string
	logger        *slog.Logger
}

func New(db *database.DB, calendar *dates.Calendar, sender email.Sender, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)
	neg := locale.Negotiator{Default: cfg.DefaultLocale}
	clientIP, err := middleware.NewClientIP(cfg.TrustedProxies)
	if err != nil {
		logger.Error("ignoring trusted proxies", "error", err)
		clientIP = &middleware.ClientIP{}
	}

	profiles := store.NewProfileStore(db)
	sessions := store.NewSessionStore(db)
	codes := store.NewSignInCodeStore(db)

	resolver := today.NewResolver(db, calendar, logger)
	pairings := pairing.NewService(db, calendar, hub, logger)
	inviteLocale := cfg.DefaultLocale
	if !locale.IsSupported(inviteLocale) {
		inviteLocale = locale.English
	}
	runner := invite.NewRunner(db, resolver, sender, invite.Options{
		SiteURL:            cfg.SiteURL,
		FallbackCurationID: cfg.FallbackCurationID,
		Locale:             inviteLocale,
	}, logger)

	return &Server{
		db:            db,
		hub:           hub,
		authenticator: middleware.NewAuthenticator(sessions, profiles),
		authH:         handler.NewAuthHandler(profiles, sessions, codes, sender, logger.With("component", "auth")),
		profileH:      handler.NewProfileHandler(profiles, logger.With("component", "profile")),
		readingH:      handler.NewReadingHandler(resolver, pairings, neg, logger.With("component", "reading")),
		pairingH:      handler.NewPairingHandler(pairings, logger.With("component", "pairing")),
		savedH:        handler.NewSavedHandler(saved.NewService(db, logger), logger.With("component", "saved")),
		emotionH:      handler.NewEmotionHandler(emotion.NewService(db, resolver, cfg.EmotionLoggingEnabled, logger), neg, logger.With("component", "emotion")),
		verseH:        handler.NewVerseHandler(store.NewVerseStore(db), logger.With("component", "verses")),
		cronH:         handler.NewCronHandler(runner, cfg.CronSecret, logger.With("component", "cron")),
		sessions:      sessions,
		codes:         codes,
		rateLimiter:   middleware.NewRateLimiter(signInInterval, signInBurst),
		clientIP:      clientIP,
		inviteRunner:  runner,
		corsOrigins:   cfg.CORSOrigins,
		logger:        logger,
	}
}

// InviteRunner returns the runner shared by the cron endpoint and the
// in-process scheduler.
func (s *Server) InviteRunner() *invite.Runner {
	return s.inviteRunner
}

// Cleanup removes expired sessions, sign-in codes and idle limiter entries.
func (s *Server) Cleanup(ctx context.Context) {
	if n, err := s.sessions.DeleteExpired(ctx); err != nil {
		s.logger.Error("session cleanup", "error", err)
	} else if n > 0 {
		s.logger.Info("cleaned up expired sessions", "count", n)
	}
	if n, err := s.codes.DeleteExpired(ctx); err != nil {
		s.logger.Error("sign-in code cleanup", "error", err)
	} else if n > 0 {
		s.logger.Info("cleaned up expired sign-in codes", "count", n)
	}
	s.rateLimiter.Cleanup(10 * time.Minute)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.logger.With("component", "http")))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.authenticator.Identify)

	r.Get("/health", s.healthHandler)

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(s.rateLimiter, s.clientIP.RealIP)).Post("/login", s.authH.Login)
		r.With(middleware.RateLimit(s.rateLimiter, s.clientIP.RealIP)).Post("/verify", s.authH.Verify)
		r.With(s.authenticator.RequireSession).Post("/logout", s.authH.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/today", s.readingH.Today)
		r.Get("/pairings/{id}", s.readingH.Pairing)
		r.Get("/emotions/taxonomy", s.emotionH.Taxonomy)
		r.Get("/cron/quiet-invite", s.cronH.QuietInvite)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticator.RequireSession)

			r.Get("/profile", s.profileH.Get)
			r.Put("/profile", s.profileH.Update)

			r.Get("/saved", s.savedH.List)
			r.Post("/saved/{pairingID}", s.savedH.Save)
			r.Delete("/saved/{pairingID}", s.savedH.Unsave)

			r.Get("/emotions/today", s.emotionH.Today)
			r.Post("/emotions", s.emotionH.Upsert)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireCurator)

				r.Get("/pairings", s.pairingH.List)
				r.Post("/pairings", s.pairingH.Create)
				r.Get("/pairings/{id}", s.pairingH.Get)
				r.Put("/pairings/{id}", s.pairingH.Update)
				r.Post("/pairings/{id}/approve", s.pairingH.Approve)
				r.Post("/pairings/{id}/unapprove", s.pairingH.Unapprove)
				r.Post("/pairings/{id}/set-today", s.pairingH.SetToday)

				r.Get("/verses", s.verseH.Search)

				r.Get("/ws", ws.HandleWebSocket(s.hub, s.corsOrigins, s.logger.With("component", "websocket")))
			})
		})
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}
