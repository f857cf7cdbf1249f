package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/database"
	"atelier-backend/middlewares"
	"atelier-backend/models"
	"atelier-backend/utils"
)

type GarmentInput struct {
	Name      string     `json:"name" validate:"required"`
	DueDate   *time.Time `json:"due_date"`
	EventDate *time.Time `json:"event_date"`
}

func CreateGarment(c *fiber.Ctx) error {
	var in GarmentInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var order models.Order
	if err := tenantDB.First(&order, c.Params("id")).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}

	garment := models.Garment{
		OrderId:   order.Id,
		Name:      in.Name,
		Stage:     models.StageNew,
		DueDate:   in.DueDate,
		EventDate: in.EventDate,
	}
	if err := tenantDB.Create(&garment).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create garment")
	}

	return c.Status(fiber.StatusCreated).JSON(garment)
}

func GetGarment(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var garment models.Garment
	err = tenantDB.
		Preload("Services").
		First(&garment, c.Params("id")).Error
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "garment not found")
	}
	return c.JSON(garment)
}

// ConfirmPickup is the explicit transition to Done; the engine refuses it
// unless the garment is ready for pickup.
func ConfirmPickup(c *fiber.Ctx) error {
	id := uint(utils.ParseIntDefault(c.Params("id"), 0))
	if id == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid garment id")
	}

	engine, err := engineFor(c)
	if err != nil {
		return err
	}
	if err := engine.ConfirmPickup(c.Context(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stage": models.StageDone})
}

func GetGarmentHistory(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var events []models.GarmentHistory
	err = tenantDB.
		Where("garment_id = ?", c.Params("id")).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load history")
	}
	return c.JSON(events)
}
