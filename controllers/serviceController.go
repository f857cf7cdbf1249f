package controllers

import (
	"github.com/gofiber/fiber/v2"

	"atelier-backend/ledger"
	"atelier-backend/middlewares"
	"atelier-backend/utils"
)

type AttachServiceInput struct {
	Service           ledger.ServiceSpec `json:"service"`
	AutoCreateInvoice bool               `json:"auto_create_invoice"`
	InvoiceNotes      string             `json:"invoice_notes"`
}

// AttachService adds a service to a garment and lets the ledger engine decide
// how it attaches to billing.
func AttachService(c *fiber.Ctx) error {
	garmentID := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if garmentID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid garment id")
	}

	var in AttachServiceInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}

	res, err := engine.AttachService(c.Context(), garmentID, in.Service, in.AutoCreateInvoice, in.InvoiceNotes)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// CompleteService marks a service done and re-derives the garment stage.
func CompleteService(c *fiber.Ctx) error {
	return setCompletion(c, true)
}

// UncompleteService reverts a completion and re-derives the garment stage.
func UncompleteService(c *fiber.Ctx) error {
	return setCompletion(c, false)
}

func setCompletion(c *fiber.Ctx, done bool) error {
	serviceID := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if serviceID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid service id")
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}

	stage, err := engine.SetServiceCompletion(c.Context(), serviceID, done)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"is_done": done, "stage": stage})
}
