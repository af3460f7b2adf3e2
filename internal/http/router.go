package httpx

import (
	"net/http"
	"net/url"

	"krostyshop/internal/config"
	"krostyshop/internal/http/handlers"
	middlewarex "krostyshop/internal/http/middleware"
	"krostyshop/internal/realtime"
	"krostyshop/internal/services/auth"
	catalogsvc "krostyshop/internal/services/catalog"
	"krostyshop/internal/services/chat"
	"krostyshop/internal/services/data"
	"krostyshop/internal/services/event"
	ordersvc "krostyshop/internal/services/order"
	"krostyshop/internal/services/payment"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config         config.Cfg
	AuthService    *auth.Service
	CatalogService *catalogsvc.Service
	OrderService   *ordersvc.Service
	ChatService    *chat.Service
	PaymentService *payment.Service
	DataService    *data.Service
	ReplayService  *event.ReplayService
	Hub            *realtime.Hub
	// Proofs is served read-only under /proofs/
	Proofs http.Handler
}

// NewRouter creates the HTTP router
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Proofs != nil {
		r.Handle("/proofs/*", http.StripPrefix("/proofs", deps.Proofs))
	}

	origins := websocketOrigins(deps.Config.App.BaseURL)
	requireUser := middlewarex.RequireUser(deps.AuthService)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handlers.SignUp(deps.AuthService))
		r.Post("/login", handlers.Login(deps.AuthService))
		r.Post("/reset", handlers.RequestPasswordReset(deps.AuthService))
		r.With(middlewarex.OptionalUser(deps.AuthService)).
			Post("/password", handlers.UpdatePassword(deps.AuthService))
	})

	// Operator routes (static admin token)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminToken(deps.Config.Auth.AdminToken))
		r.Post("/bootstrap", handlers.Bootstrap(deps.AuthService))
	})

	// Webhook endpoints (public, but validated by provider signature)
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/binance", handlers.BinanceWebhook(deps.PaymentService))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", handlers.ListProducts(deps.CatalogService))
		r.Get("/products/{id}", handlers.GetProduct(deps.CatalogService))

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/checkout/manual", handlers.ManualCheckout(deps.OrderService, deps.Config.Storage.MaxProofBytes))
			r.Post("/checkout/binance", handlers.BinanceCheckout(deps.PaymentService))

			r.Get("/orders", handlers.ListMyOrders(deps.OrderService))
			r.Get("/orders/{id}", handlers.GetOrder(deps.OrderService))
			r.Get("/orders/{id}/messages", handlers.ListMessages(deps.ChatService))
			r.Post("/orders/{id}/messages", handlers.SendMessage(deps.ChatService))
			r.Get("/orders/{id}/chat/ws", handlers.ChatStream(deps.ChatService, deps.Hub, origins))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireUser)
			r.Use(middlewarex.RequireAdmin)

			r.Get("/orders", handlers.ListOrders(deps.DataService))
			r.Get("/orders/ws", handlers.AdminOrdersStream(deps.Hub, origins))
			r.Post("/orders/{id}/review", handlers.ReviewOrder(deps.OrderService))

			r.Post("/products", handlers.CreateProduct(deps.CatalogService))
			r.Put("/products/{id}", handlers.UpdateProduct(deps.CatalogService))
			r.Delete("/products/{id}", handlers.DeleteProduct(deps.CatalogService))
			r.Post("/products/{id}/variants", handlers.AddVariant(deps.CatalogService))
			r.Delete("/variants/{id}", handlers.DeleteVariant(deps.CatalogService))

			r.Get("/events", handlers.ListEvents(deps.DataService))
			r.Post("/events/replay", handlers.ReplayEvents(deps.ReplayService))
		})
	})

	return r
}

// websocketOrigins allows the storefront host in addition to same-origin
func websocketOrigins(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
