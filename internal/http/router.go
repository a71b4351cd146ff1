package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pos-order-service/internal/config"
	"pos-order-service/internal/http/handlers"
	"pos-order-service/internal/middleware"
	"pos-order-service/internal/orders"
	"pos-order-service/internal/stock"
	"pos-order-service/internal/ws"
)

func NewRouter(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config, engine *orders.Engine, ledger *stock.Ledger, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{DB: db, Logger: logger, Config: cfg, Engine: engine, Stock: ledger, Hub: hub}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/ws", hub.HandleWS)
	r.Get("/socket/status", h.SocketStatus)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Get("/orders", h.OrdersList)
		r.Post("/orders", h.OrdersCreate)
		r.Get("/orders/pending/count", h.OrdersPendingCount)
		r.Get("/orders/{orderId}", h.OrderDetail)
		r.Put("/orders/{orderId}", h.OrderUpdate)
		r.Post("/orders/{orderId}/complete", h.OrderComplete)
		r.Post("/orders/{orderId}/cancel", h.OrderCancel)
		r.Get("/orders/{orderId}/payments", h.OrderPayments)

		r.Get("/tables", h.TablesList)
		r.Post("/tables", h.TablesCreate)
		r.Get("/tables/available", h.TablesAvailable)
		r.Get("/tables/{tableId}", h.TableDetail)
		r.Put("/tables/{tableId}", h.TableUpdate)
		r.Patch("/tables/{tableId}/status", h.TableStatusPatch)
		r.Delete("/tables/{tableId}", h.TableDelete)

		r.Get("/products", h.ProductsList)
		r.Post("/products", h.ProductsCreate)
		r.Get("/products/{productId}", h.ProductDetail)
		r.Put("/products/{productId}", h.ProductUpdate)
		r.Delete("/products/{productId}", h.ProductDelete)
		r.Post("/products/{productId}/stock", h.StockAdjust)
		r.Get("/products/{productId}/stock/availability", h.StockAvailability)
		r.Get("/products/{productId}/stock-movements", h.ProductStockMovements)

		r.Get("/stock-movements", h.StockMovementsList)

		r.Get("/payments", h.PaymentsList)
		r.Get("/payments/{paymentId}", h.PaymentDetail)
		r.Post("/payments/{paymentId}/refund", h.PaymentRefund)
	})

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

// Hijack keeps websocket upgrades working behind the logging middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
