// Package router assembles the HTTP surface: public availability and
// webhook endpoints, JWT-protected staff scheduling endpoints, and the
// realtime dashboard socket.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborhealth/telecare-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/harborhealth/telecare-ai-platform/internal/http/middleware"
	"github.com/harborhealth/telecare-ai-platform/internal/realtime"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Scheduling         *handlers.SchedulingHandler
	Webhook            *handlers.WebhookHandler
	RealtimeHub        *realtime.Hub
	MetricsHandler     http.Handler
	StaffAuthSecret    string
	CORSAllowedOrigins []string

	// WebhookRateLimit is requests/sec per IP on the inbound message
	// webhook; zero disables limiting.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Scheduling != nil {
			public.Get("/providers/{providerID}/slots", cfg.Scheduling.ListSlots)
			public.Post("/appointments/check-availability", cfg.Scheduling.CheckAvailability)
		}
		if cfg.Webhook != nil {
			webhook := public
			if cfg.WebhookRateLimit > 0 {
				webhook = public.With(httpmiddleware.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
			}
			webhook.Post("/webhooks/messages/inbound", cfg.Webhook.HandleInbound)
		}
		if cfg.RealtimeHub != nil {
			public.Get("/ws/appointments", cfg.RealtimeHub.HandleWebSocket)
		}
	})

	// Staff endpoints, JWT-protected.
	if cfg.Scheduling != nil {
		r.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
			staff.Post("/appointments", cfg.Scheduling.CreateAppointment)
			staff.Patch("/appointments/{id}", cfg.Scheduling.UpdateAppointment)
		})
	}

	return r
}
