package router

import (
	"log"
	"net/http"

	"github.com/caretray/api/internal/config"
	"github.com/caretray/api/internal/database"
	"github.com/caretray/api/internal/enum"
	"github.com/caretray/api/internal/handler"
	mw "github.com/caretray/api/internal/middleware"
	"github.com/caretray/api/internal/service"
	"github.com/caretray/api/internal/session"
	"github.com/caretray/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, sessions *session.Manager, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // kiosk dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Catalog feeds the kiosks load from (public, read-only)
	catalogHandler := handler.NewCatalogHandler(queries)
	catalogHandler.RegisterRoutes(r)
	stayHandler := handler.NewStayHandler(queries)
	stayHandler.RegisterRoutes(r)

	// Order placement shared by kiosk confirm and staff administration
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore)

	// Kiosk session workflow (public; kiosks are unauthenticated devices)
	kioskHandler := handler.NewKioskHandler(sessions, orderService, hub)
	kioskHandler.RegisterRoutes(r)

	// WebSocket route (gates access via the kiosk session query param)
	r.Get("/ws/patients/{pid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, sessions, w, r)
	})

	// Staff routes (require authentication + role)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.StaffRoleAdmin, enum.StaffRoleKitchen))

		orderHandler := handler.NewOrderHandler(orderService, hub)
		r.Route("/staff", orderHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
