package api

import (
	"net/http"
	"time"

	"github.com/athebyme/offers-service/internal/api/handlers"
	"github.com/athebyme/offers-service/internal/api/middleware"
	"github.com/athebyme/offers-service/internal/domain/services"
	"github.com/athebyme/offers-service/internal/security"
	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SetupRouter настраивает маршрутизатор
func SetupRouter(
	productService services.ProductServiceInterface,
	logger interfaces.LoggerPort,
	corsAllowedOrigins []string,
	jwtManager *security.JWTManager,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS(corsAllowedOrigins))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtManager, logger))

		productHandler := handlers.NewProductHandler(productService, logger)

		// Маршруты для товаров
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Post("/", productHandler.CreateProduct)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.GetProduct)
				r.Put("/", productHandler.UpdateProduct)
				r.Delete("/", productHandler.DeleteProduct)

				// Синхронизированные предложения товара
				r.Get("/offers", productHandler.ListOffers)
			})
		})
	})

	return r
}
