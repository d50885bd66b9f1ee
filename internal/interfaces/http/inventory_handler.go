package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// InventoryHandler maneja las peticiones HTTP del ledger de movimientos (protegido).
type InventoryHandler struct {
	record   *inventory.RecordMovementUseCase
	history  *inventory.HistoryUseCase
	lowStock *inventory.LowStockUseCase
	log      *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(record *inventory.RecordMovementUseCase, history *inventory.HistoryUseCase, lowStock *inventory.LowStockUseCase, log *logger.Logger) *InventoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryHandler{record: record, history: history, lowStock: lowStock, log: log}
}

// RecordMovement POST /api/inventory/movements → 201 con el movimiento confirmado.
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecordMovementRequest
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.record.RecordMovementFromRequest(c.Context(), companyID, GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// History GET /api/inventory/movements?product_id&type&search&from&to&limit&offset
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	from, err := parseTimeQuery(c, "from", false)
	if err != nil {
		return respondError(c, h.log, err)
	}
	to, err := parseTimeQuery(c, "to", true)
	if err != nil {
		return respondError(c, h.log, err)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	if err := validate.Struct(page); err != nil {
		return respondError(c, h.log, toValidationError(err))
	}

	out, err := h.history.History(c.Context(), companyID, inventory.HistoryFilter{
		ProductID: strings.TrimSpace(c.Query("product_id")),
		Type:      strings.TrimSpace(c.Query("type")),
		Search:    c.Query("search"),
		From:      from,
		To:        to,
		Page:      page,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// LowStock GET /api/inventory/low-stock
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	items, err := h.lowStock.LowStockReport(c.Context(), companyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

// VerifyProduct GET /api/inventory/products/:id/verify (auditoría de la cadena de movimientos).
func (h *InventoryHandler) VerifyProduct(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	out, err := h.history.VerifyProduct(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// parseTimeQuery acepta RFC3339 o YYYY-MM-DD. Con endOfDay, una fecha sola cubre el día completo.
func parseTimeQuery(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.NewValidationError(key, "fecha inválida, use RFC3339 o YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
