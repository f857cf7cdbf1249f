package controllers

import (
	"github.com/gofiber/fiber/v2"

	"atelier-backend/database"
	"atelier-backend/middlewares"
	"atelier-backend/models"
	"atelier-backend/utils"
)

type ClientInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Notes       string `json:"notes"`
}

func CreateClient(c *fiber.Ctx) error {
	var in ClientInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	client := models.Client{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
		City:        in.City,
		Zip:         in.Zip,
		Notes:       in.Notes,
		Active:      true,
	}
	if err := tenantDB.Create(&client).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create client")
	}

	return c.Status(fiber.StatusCreated).JSON(client)
}

func GetClients(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var clients []models.Client
	if err := tenantDB.Where("active = ?", true).Order("last_name, first_name").Find(&clients).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list clients")
	}
	return c.JSON(clients)
}

func GetClient(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var client models.Client
	if err := tenantDB.First(&client, c.Params("id")).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "client not found")
	}
	return c.JSON(client)
}

type ClientPatch struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Zip         *string `json:"zip"`
	Notes       *string `json:"notes"`
	Active      *bool   `json:"active"`
}

func UpdateClient(c *fiber.Ctx) error {
	var patch ClientPatch
	if err := middlewares.BindAndValidate(c, &patch); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&patch)

	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var client models.Client
	if err := tenantDB.First(&client, c.Params("id")).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "client not found")
	}

	updates := utils.UpdatesFromPtrDTO(&patch, nil)
	if len(updates) == 0 {
		return c.JSON(client)
	}
	if err := tenantDB.Model(&client).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not update client")
	}
	return c.JSON(client)
}
