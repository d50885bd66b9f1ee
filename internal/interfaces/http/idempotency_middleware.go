package http

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// HeaderIdempotencyKey header opcional en POST /api/inventory/movements.
const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency repite la respuesta guardada cuando llega de nuevo la misma llave (por empresa).
// Sin header, o sin store configurado, la petición pasa tal cual.
//   - misma llave con otro cuerpo: 422 IDEMPOTENCY_KEY_REUSED.
//   - misma llave aún en curso: 409 IDEMPOTENCY_IN_FLIGHT.
//   - respuestas 5xx no se guardan para que el cliente pueda reintentar.
func Idempotency(store repository.IdempotencyRepository, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if store == nil || key == "" {
			return c.Next()
		}
		if len(key) > 200 {
			return respondError(c, log, domain.NewValidationError(HeaderIdempotencyKey, "la llave supera 200 caracteres"))
		}
		scope := GetCompanyID(c)
		hash := hashBody(c.Body())
		ctx := c.Context()

		record, reserved, err := store.Reserve(ctx, scope, key, hash)
		if err != nil {
			log.Error().Err(err).Msg("reservar llave de idempotencia")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_UNAVAILABLE", Message: "no se pudo verificar la llave de idempotencia"})
		}
		if !reserved {
			if record.RequestHash != hash {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_KEY_REUSED", Message: "la llave ya se usó con otro cuerpo"})
			}
			if record.Pending {
				return respondError(c, log, domain.ErrIdempotencyInFlight)
			}
			c.Set("Idempotent-Replayed", "true")
			if record.ContentType != "" {
				c.Set(fiber.HeaderContentType, record.ContentType)
			}
			return c.Status(record.Status).Send(record.Body)
		}

		if err := c.Next(); err != nil {
			_ = store.Release(ctx, scope, key)
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			if err := store.Release(ctx, scope, key); err != nil {
				log.Warn().Err(err).Msg("liberar llave de idempotencia")
			}
			return nil
		}
		if err := store.Complete(ctx, scope, key, repository.IdempotencyRecord{
			RequestHash: hash,
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}); err != nil {
			log.Warn().Err(err).Msg("guardar respuesta idempotente")
		}
		return nil
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}
