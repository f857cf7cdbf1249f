package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/database"
)

// TenantTx opens a per-request DB transaction pinned to the shop's schema.
// Order: run AFTER IsAuthenticatedHeader() (so schema/userID are present),
// and AFTER Idempotency() (so idempotency records aren't tied to the handler TX).
//
// Handlers that delegate to the ledger engine manage their own transactions,
// each pinned with its own SET LOCAL (the engine retries conflicts, which is
// not possible inside an already-aborted outer transaction); this middleware
// covers the plain CRUD handlers.
func TenantTx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		schema, _ := c.Locals("schema").(string)
		if strings.TrimSpace(schema) == "" {
			// Public endpoints (e.g., /login) won't have schema; just proceed.
			return c.Next()
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		// Ensure we always cleanup.
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so Fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				if errLog != nil {
					errLog.Errorw("tx commit failed", "error", e)
				}
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		// Pin the tenant schema for this TX only. SET LOCAL reverts at TX end.
		if e := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; e != nil {
			_ = tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "failed to set tenant schema")
		}

		// Make the TX available to handlers via database.GetTenantDB(c).
		c.Locals("tx", tx)

		err = c.Next()
		return err
	}
}
