package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Sabbir9535/BlinkChat/docs"
	"github.com/Sabbir9535/BlinkChat/internal/assets"
	"github.com/Sabbir9535/BlinkChat/internal/ratelimit"
	"github.com/Sabbir9535/BlinkChat/internal/security"
	"github.com/Sabbir9535/BlinkChat/internal/service"
	"github.com/Sabbir9535/BlinkChat/internal/ws"
)

// Deps is everything the router needs. UploadDir may be empty when images
// live in an object store; Limiter may be nil to disable send throttling.
type Deps struct {
	Auth        *service.AuthService
	Messages    *service.MessageService
	Encryptor   *security.Encryptor
	Registry    *ws.Registry
	Images      *assets.Store
	Limiter     ratelimit.Limiter
	UploadDir   string
	CORSOrigins []string
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	if d.UploadDir != "" {
		r.Get("/uploads/{filename}", handleServeUpload(d.UploadDir))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(d.Auth))
			r.Post("/login", handleLogin(d.Auth))
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Auth))

			r.Get("/auth/me", handleMe())
			r.Get("/users/online", handleListOnline(d.Registry))
			r.Get("/conversations", handleSidebar(d.Messages))

			r.Route("/conversation/{otherID}", func(r chi.Router) {
				r.Get("/", handleConversation(d.Messages))
				r.With(SendRateLimit(d.Limiter)).Post("/send", handleSend(d.Messages, d.Encryptor))
			})
			r.Put("/message/{messageID}/seen", handleMarkSeen(d.Messages))

			if d.Images != nil {
				r.Post("/uploads", handleUpload(d.Images))
			}
		})
	})

	r.Get("/ws", ws.MakeHandler(d.Registry, d.Auth, d.CORSOrigins))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
