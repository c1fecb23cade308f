package http

import (
	"net/http"

	"vibepay/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler, tokens *auth.TokenManager) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/signup", handler.Signup)
	r.Post("/auth/login", handler.Login)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(tokens))

		r.Get("/auth/me", handler.Me)

		r.Get("/points/balance", handler.Balance)
		r.Get("/points/history", handler.PointHistory)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handler.CreateOrder)
			r.Get("/", handler.ListOrders)
			r.Get("/{orderId}", handler.GetOrder)
			r.Delete("/{orderId}", handler.CancelOrder)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", handler.PaymentHistory)
			r.Get("/{paymentId}", handler.GetPayment)
			r.Post("/{paymentId}/cancel", handler.CancelPayment)
		})

		r.Post("/pg/auth-params", handler.AuthParams)
	})

	return &Server{Router: r}
}
