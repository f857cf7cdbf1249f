package controllers

import (
	"github.com/gofiber/fiber/v2"

	"atelier-backend/database"
	"atelier-backend/middlewares"
	"atelier-backend/models"
)

type OrderInput struct {
	ClientId uint   `json:"client_id" validate:"required"`
	Notes    string `json:"notes"`
}

func CreateOrder(c *fiber.Ctx) error {
	var in OrderInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var client models.Client
	if err := tenantDB.First(&client, in.ClientId).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "client not found")
	}

	order := models.Order{
		ClientId: in.ClientId,
		Status:   models.OrderStatusOpen,
		Notes:    in.Notes,
	}
	if err := tenantDB.Create(&order).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create order")
	}
	order.Client = client

	return c.Status(fiber.StatusCreated).JSON(order)
}

func GetOrders(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	q := tenantDB.Preload("Client").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list orders")
	}
	return c.JSON(orders)
}

func GetOrder(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var order models.Order
	err = tenantDB.
		Preload("Client").
		Preload("Garments.Services").
		Preload("Invoices.Items").
		First(&order, c.Params("id")).Error
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	return c.JSON(order)
}
