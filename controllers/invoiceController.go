package controllers

import (
	"github.com/gofiber/fiber/v2"

	"atelier-backend/database"
	"atelier-backend/ledger"
	"atelier-backend/middlewares"
	"atelier-backend/models"
	"atelier-backend/utils"
)

func GetInvoices(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	q := tenantDB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if orderID := c.Query("order_id"); orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}

	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list invoices")
	}
	return c.JSON(invoices)
}

func GetInvoice(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var invoice models.Invoice
	err = tenantDB.
		Preload("Items").
		Preload("Payments").
		First(&invoice, c.Params("id")).Error
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "invoice not found")
	}
	return c.JSON(invoice)
}

// GetInvoiceBalance returns the engine's financial rollup for one invoice.
func GetInvoiceBalance(c *fiber.Ctx) error {
	invoiceID := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if invoiceID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid invoice id")
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}

	balance, err := engine.InvoiceBalance(c.Context(), invoiceID)
	if err != nil {
		return err
	}
	return c.JSON(balance)
}

// CreateInvoice bills a batch of unbilled services of an order on a new
// invoice (initial, additional or adjustment).
func CreateInvoice(c *fiber.Ctx) error {
	orderID := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if orderID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var in ledger.SupplementalInvoiceInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	in.OrderId = orderID
	if in.InvoiceType == "" {
		in.InvoiceType = models.InvoiceTypeAdditional
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}

	invoice, err := engine.CreateSupplementalInvoice(c.Context(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// CreatePayment records a payment against an invoice and returns the
// resulting balance.
func CreatePayment(c *fiber.Ctx) error {
	invoiceID := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if invoiceID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid invoice id")
	}

	var in ledger.PaymentInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}

	balance, err := engine.RecordPayment(c.Context(), invoiceID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(balance)
}

func ListPayments(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var payments []models.Payment
	err = tenantDB.
		Where("invoice_id = ?", c.Params("id")).
		Order("processed_at DESC").
		Find(&payments).Error
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list payments")
	}
	return c.JSON(payments)
}

type RefundInput struct {
	Amount string `json:"amount" validate:"required"` // decimal string, e.g. "25.00"
}

// RefundPayment records a partial or full refund against one payment.
func RefundPayment(c *fiber.Ctx) error {
	paymentID := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if paymentID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment id")
	}

	var in RefundInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	cents, err := utils.ParseCents(in.Amount)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid refund amount")
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}

	balance, err := engine.RefundPayment(c.Context(), paymentID, cents)
	if err != nil {
		return err
	}
	return c.JSON(balance)
}
