package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/database"
	"atelier-backend/middlewares"
	"atelier-backend/models"
	"atelier-backend/utils"
)

type CatalogServiceInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"` // decimal string, e.g. "15.00"
}

// CreateCatalogServices batch-creates price-list entries.
func CreateCatalogServices(c *fiber.Ctx) error {
	var inputs []CatalogServiceInput
	if err := c.BodyParser(&inputs); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var created []models.CatalogService
	for i := range inputs {
		in := inputs[i]
		utils.NormalizeDTO(&in)
		if err := middlewares.ValidateStruct(in); err != nil {
			return err
		}

		cents, err := utils.ParseCents(in.UnitPrice)
		if err != nil || cents < 0 {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid unit price at index %d", i))
		}

		entry := models.CatalogService{
			Name:           in.Name,
			Description:    in.Description,
			Unit:           in.Unit,
			UnitPriceCents: cents,
			Active:         true,
		}
		if err := tenantDB.Create(&entry).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("could not create catalog service at index %d", i))
		}
		created = append(created, entry)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func GetCatalogServices(c *fiber.Ctx) error {
	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var entries []models.CatalogService
	if err := tenantDB.Where("active = ?", true).Order("name").Find(&entries).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list catalog")
	}
	return c.JSON(entries)
}

type CatalogServicePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
	UnitPrice   *string `json:"unit_price"`
	Active      *bool   `json:"active"`
}

func UpdateCatalogService(c *fiber.Ctx) error {
	var patch CatalogServicePatch
	if err := middlewares.BindAndValidate(c, &patch); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&patch)

	tenantDB, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var entry models.CatalogService
	if err := tenantDB.Where("id = ?", c.Params("id")).First(&entry).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "catalog service not found")
	}

	updates := utils.UpdatesFromPtrDTO(&patch, nil)
	if raw, ok := updates["unit_price"]; ok {
		cents, err := utils.ParseCents(raw.(string))
		if err != nil || cents < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid unit price format")
		}
		delete(updates, "unit_price")
		updates["unit_price_cents"] = cents
	}
	if len(updates) == 0 {
		return c.JSON(entry)
	}

	if err := tenantDB.Model(&entry).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not update catalog service")
	}
	return c.JSON(entry)
}
