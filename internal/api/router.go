package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/skillnotes-be/internal/api/handlers"
	"github.com/isdelr/skillnotes-be/internal/auth"
	"github.com/isdelr/skillnotes-be/internal/services"
	"github.com/isdelr/skillnotes-be/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	DB          handlers.Pinger
	Sessions    *auth.SessionManager
	GitHub      *auth.GitHubProvider // nil disables GitHub sign-in
	Users       services.UserServiceProvider
	Notes       services.NoteServiceProvider
	Exports     services.ExportServiceProvider
	Hub         *websocket.Hub
	AuthLimiter *IPRateLimiter // nil disables rate limiting
	CORSOrigins []string
	PublicDir   string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(deps.Sessions.Sessions)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, deps.GitHub)
	noteHandler := handlers.NewNoteHandler(deps.Notes, deps.Exports)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CORSOrigins)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	limit := func(h http.HandlerFunc) http.Handler {
		if deps.AuthLimiter == nil {
			return h
		}
		return deps.AuthLimiter.Middleware(h)
	}

	// Pages
	r.Get("/", authHandler.Index)
	r.Method(http.MethodPost, "/signup", limit(authHandler.SignUp))
	r.Method(http.MethodPost, "/login", limit(authHandler.Login))
	r.Get("/logout", authHandler.Logout)
	r.With(auth.RequireLogin).Get("/dashboard", authHandler.Dashboard)
	r.Get("/auth/github", authHandler.GitHubLogin)
	r.Get("/auth/github/callback", authHandler.GitHubCallback)
	r.Get("/healthz", healthHandler.Check)

	notesAPI := func(r chi.Router) {
		r.Use(auth.RequireAPI)
		r.Get("/", noteHandler.List)
		r.Post("/", noteHandler.Create)
		r.Delete("/", noteHandler.DeleteArchived)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", noteHandler.Get)
			r.Put("/", noteHandler.Update)
			r.Delete("/", noteHandler.Delete)
			r.Post("/archive", noteHandler.Archive)
			r.Post("/unarchive", noteHandler.Unarchive)
			r.Get("/pdf", noteHandler.PDF)
		})
	}
	r.Route("/api/notes", notesAPI)
	r.Route("/notes", notesAPI)

	// WebSocket connection endpoint
	r.With(auth.RequireAPI).Get("/ws", wsHandler.Serve)

	if deps.PublicDir != "" {
		r.Get("/*", staticFiles(deps.PublicDir))
	}
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	return r
}

// requestIDLogger adds chi's request id to the request logger.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger := zerolog.Ctx(r.Context())
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("ip", r.RemoteAddr).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}

// staticFiles serves regular files under dir. Directories and missing files
// get the plain 404.
func staticFiles(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		info, err := os.Stat(name)
		if err != nil || info.IsDir() {
			handlers.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
