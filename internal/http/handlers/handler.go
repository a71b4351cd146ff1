package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pos-order-service/internal/config"
	"pos-order-service/internal/orders"
	"pos-order-service/internal/stock"
	"pos-order-service/internal/ws"
)

type Handler struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config
	Engine *orders.Engine
	Stock  *stock.Ledger
	Hub    *ws.Hub
}
