package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/monitop/monitop/internal/auth"
	"github.com/monitop/monitop/internal/authz"
	"github.com/monitop/monitop/internal/observability"
	"github.com/monitop/monitop/internal/roles"
	"github.com/monitop/monitop/internal/shared"
	"github.com/monitop/monitop/internal/users"
	"github.com/monitop/monitop/internal/view"
	"github.com/monitop/monitop/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	AuthzHandler   *authz.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	Gate           authz.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(params.Gate.Require(authz.PermDashboardView))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
			var flash *shared.FlashMessage
			if sess != nil {
				flash = sess.PopFlash()
			}
			data := view.TemplateData{
				Title:       "Dashboard",
				CSRFToken:   csrfToken,
				Flash:       flash,
				CurrentPath: r.URL.Path,
				Actor:       authz.SnapshotFromContext(r.Context()),
			}
			if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
				params.Logger.Error("render home", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AuthzHandler != nil {
		r.Route("/api", params.AuthzHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
