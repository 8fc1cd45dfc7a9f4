package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/cargosense/cargosense/internal/domain/auth"
	"github.com/cargosense/cargosense/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs        *service.JobService
	Advisor     *service.AdvisorService
	Receipts    *service.ReceiptService
	Preferences *service.PreferencesService
	// Auth is optional; when nil every route is open (dev mode).
	Auth         *service.AuthService
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	statsHandlers := &StatsHandlers{Jobs: services.Jobs}
	chatHandlers := &ChatHandlers{Svc: services.Advisor, Logger: logger}
	receiptHandlers := &ReceiptHandlers{Svc: services.Receipts, Logger: logger}
	prefsHandlers := &PreferencesHandlers{Svc: services.Preferences}

	cfg := routeConfig{Auth: services.Auth}

	registerJobRoutes(mux, jobHandlers, cfg)
	registerStatsRoutes(mux, statsHandlers, cfg)
	registerChatRoutes(mux, chatHandlers, cfg)
	registerReceiptRoutes(mux, receiptHandlers, cfg)
	registerPreferenceRoutes(mux, prefsHandlers, cfg)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{
			Svc:          services.Auth,
			CookieDomain: services.CookieDomain,
			Logger:       logger,
		}
		registerAuthRoutes(mux, authHandlers)
	}

	return mux
}

// routeConfig carries auth wiring for route registration. All wrappers are
// nil-safe so the API stays usable without an identity provider configured.
type routeConfig struct {
	Auth *service.AuthService
}

// authWrap requires a valid session when auth is configured.
func (cfg routeConfig) authWrap() func(http.Handler) http.Handler {
	if cfg.Auth == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return RequireAuth(cfg.Auth)
}

// adminWrap requires the admin role when auth is configured.
func (cfg routeConfig) adminWrap() func(http.Handler) http.Handler {
	if cfg.Auth == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return RequireRole(cfg.Auth, domainauth.RoleAdmin)
}

// sessionWrap attaches the session when present but never rejects.
func (cfg routeConfig) sessionWrap() func(http.Handler) http.Handler {
	if cfg.Auth == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return OptionalAuth(cfg.Auth)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, cfg routeConfig) {
	wrap := cfg.authWrap()
	wrapAdmin := cfg.adminWrap()
	mux.Handle("POST /api/jobs", wrap(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/jobs", wrap(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/jobs/export", wrap(http.HandlerFunc(h.Export)))
	mux.Handle("GET /api/jobs/{id}", wrap(http.HandlerFunc(h.GetByID)))
	mux.Handle("PUT /api/jobs/{id}", wrap(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/jobs/{id}", wrapAdmin(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /api/jobs/{id}/history", wrap(http.HandlerFunc(h.History)))
}

func registerStatsRoutes(mux *http.ServeMux, h *StatsHandlers, cfg routeConfig) {
	wrap := cfg.authWrap()
	mux.Handle("GET /api/stats", wrap(http.HandlerFunc(h.Get)))
}

func registerChatRoutes(mux *http.ServeMux, h *ChatHandlers, cfg routeConfig) {
	wrap := cfg.sessionWrap()
	mux.Handle("POST /api/chat", wrap(http.HandlerFunc(h.Chat)))
}

func registerReceiptRoutes(mux *http.ServeMux, h *ReceiptHandlers, cfg routeConfig) {
	wrap := cfg.authWrap()
	wrapAdmin := cfg.adminWrap()
	mux.Handle("POST /api/receipts", wrap(http.HandlerFunc(h.Upload)))
	mux.Handle("DELETE /api/receipts/{key}", wrapAdmin(http.HandlerFunc(h.Delete)))
	// Signed-URL access; the signature is the credential.
	mux.Handle("GET /receipts/view", http.HandlerFunc(h.View))
}

func registerPreferenceRoutes(mux *http.ServeMux, h *PreferencesHandlers, cfg routeConfig) {
	wrap := cfg.authWrap()
	mux.Handle("GET /api/preferences/notifications", wrap(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/preferences/notifications", wrap(http.HandlerFunc(h.Put)))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}
