package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authservice "github.com/agendalink/server/internal/auth"
	authHandler "github.com/agendalink/server/internal/handler/auth"
	contactHandler "github.com/agendalink/server/internal/handler/contact"
	reportHandler "github.com/agendalink/server/internal/handler/report"
	userHandler "github.com/agendalink/server/internal/handler/user"
	"github.com/agendalink/server/internal/handler/ws"
	middlewarePkg "github.com/agendalink/server/internal/middleware"
	reportservice "github.com/agendalink/server/internal/service/report"
	"github.com/agendalink/server/internal/service/relay"
	"github.com/agendalink/server/internal/store"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(tokens *authservice.TokenService, st *store.Store, engine *relay.Engine, reports *reportservice.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	credentials := authHandler.New(st, tokens)
	contacts := contactHandler.New(st)
	users := userHandler.New(st)
	reportsHandler := reportHandler.New(reports)
	wsHandler := ws.New(engine)

	r.Route("/api", func(api chi.Router) {
		credentials.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireAuth(tokens))
			contacts.RegisterRoutes(protected)

			protected.Group(func(admin chi.Router) {
				admin.Use(middlewarePkg.RequireAdmin)
				users.RegisterRoutes(admin)
				reportsHandler.RegisterRoutes(admin)
			})
		})
	})

	// The chat relay authenticates in-band with its own auth event, so the
	// websocket endpoint sits outside the Bearer middleware.
	r.Get("/ws", wsHandler.Handle)

	return r
}
