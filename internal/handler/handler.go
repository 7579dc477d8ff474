package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gigantefleur/storefront/internal/service"
)

type Handler struct {
	router   *chi.Mux
	sessions *service.SessionManager
	cart     *service.CartManager
	catalog  *service.CatalogSync
	checkout *service.CheckoutService
}

func NewHandler(sessions *service.SessionManager, cart *service.CartManager, catalog *service.CatalogSync, checkout *service.CheckoutService, corsOrigins []string) *Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         600,
	}))

	compressor := middleware.NewCompressor(5, "application/json", "text/plain")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	router.Use(compressor.Handler)

	h := &Handler{
		router:   router,
		sessions: sessions,
		cart:     cart,
		catalog:  catalog,
		checkout: checkout,
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
		})

		r.Route("/flowers", func(r chi.Router) {
			r.Get("/", h.ListFlowers)
			r.Get("/{id}", h.GetFlower)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Post("/", h.CreateFlower)
				r.Post("/reload", h.ReloadFlowers)
				r.Put("/{id}", h.UpdateFlower)
				r.Delete("/{id}", h.DeleteFlower)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{id}", h.SetCartItemQuantity)
			r.Delete("/items/{id}", h.RemoveCartItem)
			r.Post("/checkout", h.Checkout)
		})
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// RequireAdmin rejects requests unless the current session is an admin.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.sessions.Current() == nil {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		if !h.sessions.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handler] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}
