package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/coletas-service/internal/middleware"
	"github.com/mmeshcher/coletas-service/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
// allowedOrigins задаёт источники для CORS; пустой список разрешает любой источник.
func (h *Handler) SetupRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r.Use(chimiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(custommiddleware.GzipMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		DisableCompression: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/coletas/solicitar", h.CreateShipment)

		r.Route("/rastreamento", func(r chi.Router) {
			r.Post("/remetente", h.TrackSender)
			r.Post("/destinatario", h.TrackRecipient)
			r.Get("/publico/{id}", h.TrackPublic)
		})

		r.Post("/driver/update", h.DriverUpdate)
		r.Post("/devolucao/solicitar", h.RequestReturn)

		r.Get("/fatura/{nf}", h.Invoice)
		r.Get("/etiqueta/{nf}", h.Label)

		r.Route("/cliente", func(r chi.Router) {
			r.Post("/login", h.ClientLogin)
			r.Post("/cadastro", h.ClientRegister)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Use(custommiddleware.RequireRole(model.RoleClient))

				r.Get("/minhas-coletas", h.MyShipments)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.StaffLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Use(custommiddleware.RequireRole(model.RoleAdmin))

				r.Get("/coletas", h.ListShipments)
				r.Put("/coletas/{id}", h.UpdateShipment)
				r.Delete("/coletas/{id}", h.DeleteShipment)
				r.Post("/coletas/{nf}/historico", h.AppendHistory)

				r.Get("/stats", h.Stats)

				r.Get("/funcionarios", h.ListEmployees)
				r.Post("/funcionarios", h.CreateEmployee)
				r.Put("/funcionarios/{id}", h.UpdateEmployee)
				r.Delete("/funcionarios/{id}", h.DeleteEmployee)

				r.Post("/clientes/registrar", h.CreateClient)
				r.Get("/clientes/list", h.ListClients)
				r.Put("/clientes/{id}", h.UpdateClient)

				r.Get("/devolucoes", h.ListReturns)
				r.Put("/devolucoes/{nf}/aprovar", h.ApproveReturn)
				r.Put("/devolucoes/{nf}/rejeitar", h.RejectReturn)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}
