package routes

import (
	"github.com/gofiber/fiber/v2"

	"atelier-backend/controllers"
	"atelier-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard FIRST (not tied to request TX)
	protected.Use(middlewares.Idempotency())

	// Then per-request tenant transaction (pins search_path and commits/rolls back)
	protected.Use(middlewares.TenantTx())

	// Clients
	protected.Post("/client", controllers.CreateClient)
	protected.Get("/clients", controllers.GetClients)
	protected.Get("/client/:id", controllers.GetClient)
	protected.Put("/client/:id", controllers.UpdateClient)

	// Service catalog (price list)
	protected.Post("/catalog", controllers.CreateCatalogServices) // batch create
	protected.Get("/catalog", controllers.GetCatalogServices)
	protected.Put("/catalog/:id", controllers.UpdateCatalogService)

	// Orders
	protected.Post("/order", controllers.CreateOrder)
	protected.Get("/orders", controllers.GetOrders)
	protected.Get("/order/:id", controllers.GetOrder)

	// Garments
	protected.Post("/orders/:id/garments", controllers.CreateGarment)
	protected.Get("/garment/:id", controllers.GetGarment)
	protected.Get("/garment/:id/history", controllers.GetGarmentHistory)
	protected.Put("/garment/:id/pickup", controllers.ConfirmPickup)

	// Garment services (ledger engine)
	protected.Post("/garments/:id/services", controllers.AttachService)
	protected.Put("/services/:id/complete", controllers.CompleteService)
	protected.Put("/services/:id/uncomplete", controllers.UncompleteService)

	// Invoices & payments (ledger engine)
	protected.Get("/invoices", controllers.GetInvoices)
	protected.Get("/invoice/:id", controllers.GetInvoice)
	protected.Get("/invoice/:id/balance", controllers.GetInvoiceBalance)
	protected.Post("/orders/:id/invoices", controllers.CreateInvoice)
	protected.Post("/invoice/:id/payments", controllers.CreatePayment)
	protected.Get("/invoice/:id/payments", controllers.ListPayments)
	protected.Post("/payments/:id/refund", controllers.RefundPayment)
}
