package handlers

import (
	"net/http"

	_ "github.com/dancelink/settled/docs"
	adminhandlers "github.com/dancelink/settled/internal/handlers/admin"
	bookingshandlers "github.com/dancelink/settled/internal/handlers/bookings"
	walletshandlers "github.com/dancelink/settled/internal/handlers/wallets"
	"github.com/dancelink/settled/internal/service"
	"github.com/dancelink/settled/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type BookingHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Confirm(w http.ResponseWriter, r *http.Request)
	OpenPayment(w http.ResponseWriter, r *http.Request)
	Pay(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	PurchaseWebhook(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	CreateAdjustment(w http.ResponseWriter, r *http.Request)
	CreateCommission(w http.ResponseWriter, r *http.Request)
	UpdateCommission(w http.ResponseWriter, r *http.Request)
	DeactivateCommission(w http.ResponseWriter, r *http.Request)
	ListCommissions(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	BookingHandler BookingHandler
	WalletHandler  WalletHandler
	AdminHandler   AdminHandler
}

func New(s *service.Services) *Handlers {
	return &Handlers{
		BookingHandler: bookingshandlers.New(s.BookingService, s.SettlementService),
		WalletHandler:  walletshandlers.New(s.WalletService),
		AdminHandler:   adminhandlers.New(s.AdminWalletService, s.CommissionService),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.AuthMiddleware)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.BookingHandler.Create)
			r.Get("/", h.BookingHandler.List)
			r.Get("/{id}", h.BookingHandler.Get)
			r.With(auth.RequireRole(auth.RoleTrainer)).Post("/{id}/confirm", h.BookingHandler.Confirm)
			r.With(auth.RequireRole(auth.RoleTrainer)).Post("/{id}/open-payment", h.BookingHandler.OpenPayment)
			r.With(auth.RequireRole(auth.RoleAdmin)).Post("/{id}/pay", h.BookingHandler.Pay)
			r.Post("/{id}/cancel", h.BookingHandler.Cancel)
			r.With(auth.RequireRole(auth.RoleTrainer)).Post("/{id}/reject", h.BookingHandler.Reject)
		})

		r.With(auth.RequireRole(auth.RoleAdmin)).Post("/settlement/purchase", h.BookingHandler.PurchaseWebhook)

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{ownerType}/{ownerID}", h.WalletHandler.GetBalance)
			r.Get("/{ownerType}/{ownerID}/transactions", h.WalletHandler.GetHistory)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Post("/adjustments", h.AdminHandler.CreateAdjustment)
			r.Route("/commissions", func(r chi.Router) {
				r.Post("/", h.AdminHandler.CreateCommission)
				r.Get("/", h.AdminHandler.ListCommissions)
				r.Put("/{id}", h.AdminHandler.UpdateCommission)
				r.Delete("/{id}", h.AdminHandler.DeactivateCommission)
			})
		})
	})

	return r
}
