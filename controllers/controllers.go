package controllers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"atelier-backend/database"
	"atelier-backend/ledger"
)

var log *zap.SugaredLogger

// Setup wires the shared logger into the controllers package.
func Setup(logger *zap.SugaredLogger) {
	log = logger
}

// engineFor builds a ledger engine for this request. The repository carries
// the shop's schema and pins it with SET LOCAL inside each of its own
// transactions; the engine manages those itself (with conflict retries), so
// it deliberately does not run on the TenantTx request transaction.
func engineFor(c *fiber.Ctx) (*ledger.Engine, error) {
	schema, err := database.RequestSchema(c)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "tenant schema missing")
	}
	return ledger.NewEngine(database.NewLedgerRepository(database.DB, schema), log), nil
}
