package handler

import (
	"go-pages-app/internal/logger"
	"go-pages-app/internal/middleware"
	"go-pages-app/internal/session"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router bundles what NewRouter wires together.
type Router struct {
	Pages    *PageHandler
	Auth     *AuthHandler
	API      *APIHandler
	SEO      *SeoHandler
	Authz    func(http.Handler) http.Handler
	Errors   func(middleware.AppHandler) http.Handler
	Sessions session.Manager
	Static   fs.FS
	Log      logger.Logger
}

// NewRouter creates and configures a new chi router.
//
// Parameters:
//   - rt: The handlers and middleware to mount. rt.Static may be nil to serve no
//     static assets; every other field is required.
//
// HTML routes share the session and authorization middleware. The /api routes add
// CORS in front of them. Unknown paths render the error page with a 404.
func NewRouter(rt Router) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware, in the order they wrap each request.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(rt.Log))
	r.Use(chimw.Recoverer)

	// Routes that need neither a session nor authorization.
	if rt.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(rt.Static))))
	}
	r.Get("/robots.txt", rt.SEO.robotsHandler)
	r.Get("/sitemap.xml", rt.SEO.sitemapHandler)

	e := rt.Errors

	// HTML routes. Handlers return an *AppError that rt.Errors turns into the error page.
	r.Group(func(r chi.Router) {
		r.Use(rt.Sessions.LoadAndSave)
		r.Use(rt.Authz)

		r.Method(http.MethodGet, "/", e(rt.Pages.homeHandler))
		r.Method(http.MethodGet, "/search", e(rt.Pages.searchHandler))
		r.Method(http.MethodPost, "/search", e(rt.Pages.searchHandler))
		r.Method(http.MethodGet, "/page/{id}", e(rt.Pages.pageHandler))
		r.Method(http.MethodPost, "/page/{id}", e(rt.Pages.commentHandler))
		r.Method(http.MethodGet, "/random", e(rt.Pages.randomHandler))
		r.Method(http.MethodGet, "/category/{id}", e(rt.Pages.categoryHandler))
		r.Method(http.MethodGet, "/profile/{username}", e(rt.Pages.profileHandler))
		r.Method(http.MethodGet, "/create_page", e(rt.Pages.createPageHandler))
		r.Method(http.MethodPost, "/create_page", e(rt.Pages.saveNewPageHandler))
		r.Method(http.MethodGet, "/edit_page/{id}", e(rt.Pages.editPageHandler))
		r.Method(http.MethodPost, "/edit_page/{id}", e(rt.Pages.saveEditHandler))

		r.Method(http.MethodGet, "/register", e(rt.Auth.registerFormHandler))
		r.Method(http.MethodPost, "/register", e(rt.Auth.registerHandler))
		r.Method(http.MethodGet, "/register/confirm", e(rt.Auth.confirmFormHandler))
		r.Method(http.MethodPost, "/register/confirm", e(rt.Auth.confirmHandler))
		r.Method(http.MethodGet, "/login", e(rt.Auth.loginFormHandler))
		r.Method(http.MethodPost, "/login", e(rt.Auth.loginHandler))
		r.Method(http.MethodGet, "/logout", e(rt.Auth.logoutHandler))
		r.Method(http.MethodGet, "/auth/login", e(rt.Auth.oidcLoginHandler))
		r.Method(http.MethodGet, "/auth/callback", e(rt.Auth.oidcCallbackHandler))
	})

	// CORS runs before authorization so preflight requests are answered directly.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(rt.Sessions.LoadAndSave)
		r.Use(rt.Authz)

		r.Post("/search", rt.API.searchHandler)
		r.Get("/pages", rt.API.pagesHandler)
		r.Get("/categories", rt.API.categoriesHandler)
	})

	// The 404 page still loads the session so flashes and the login state render.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		rt.Sessions.LoadAndSave(e(func(w http.ResponseWriter, r *http.Request) *middleware.AppError {
			return &middleware.AppError{Message: "Page not found", Code: http.StatusNotFound}
		})).ServeHTTP(w, req)
	})

	return r
}
