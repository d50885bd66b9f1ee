package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC      *usecase.ProductUseCase
	RecordMovement *inventory.RecordMovementUseCase
	History        *inventory.HistoryUseCase
	LowStock       *inventory.LowStockUseCase
	Idempotency    repository.IdempotencyRepository // nil = sin llaves de idempotencia
	Metrics        prometheus.Gatherer              // nil = sin /metrics
	Log            *logger.Logger
	JWTSecret      string
	ServiceName    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	// Rutas protegidas (requieren Bearer Token; la empresa sale del token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(jwt.RoleAdmin)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleStaff)

	// Products
	products := api.Group("/products", anyRole)
	productHandler := NewProductHandler(deps.ProductUC, log)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", adminOnly, productHandler.Create)
	products.Patch("/:id/threshold", adminOnly, productHandler.UpdateThreshold)
	products.Delete("/:id", adminOnly, productHandler.Deactivate)

	// Inventory ledger
	inv := api.Group("/inventory", anyRole)
	inventoryHandler := NewInventoryHandler(deps.RecordMovement, deps.History, deps.LowStock, log)
	inv.Post("/movements", Idempotency(deps.Idempotency, log), inventoryHandler.RecordMovement)
	inv.Get("/movements", inventoryHandler.History)
	inv.Get("/low-stock", inventoryHandler.LowStock)
	inv.Get("/products/:id/verify", adminOnly, inventoryHandler.VerifyProduct)
}
