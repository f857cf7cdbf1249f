package controllers

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atelier-backend/database"
	"atelier-backend/middlewares"
	"atelier-backend/models"
)

type RegisterInput struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	ShopName        string `json:"shop_name" validate:"required"`
}

// Register creates a shop owner account plus the shop's tenant schema.
func Register(c *fiber.Ctx) error {
	var in RegisterInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	if in.Password != in.PasswordConfirm {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "passwords do not match",
		})
	}

	var mailExist models.User
	database.DB.Where("email = ?", in.Email).First(&mailExist)
	if mailExist.Email != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "email already exists",
		})
	}

	schemaName, err := tenantSchemaName(in.ShopName)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid shop name",
			"error":   err.Error(),
		})
	}

	user := models.User{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.TrimSpace(in.Email),
		ShopName:   strings.TrimSpace(in.ShopName),
		SchemaName: schemaName,
	}
	user.SetPassword(in.Password)

	// Schema, owner account and tenant migrations commit or roll back as one;
	// a failed registration must not leave an orphaned schema behind.
	if err := database.CreateTenant(database.DB, &user, schemaName); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "registration failed",
			"error":   err.Error(),
		})
	}

	log.Infow("shop registered", "user_id", user.Id, "schema", schemaName)
	return c.JSON(user)
}

// tenantSchemaName derives a safe Postgres schema name from the shop name.
func tenantSchemaName(shopName string) (string, error) {
	safeName := strings.ToLower(strings.TrimSpace(shopName))
	safeName = strings.ReplaceAll(safeName, " ", "_")
	// Only letters, numbers, underscores; must start with letter/underscore
	valid := regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	if !valid.MatchString(safeName) {
		return "", fmt.Errorf("invalid schema name after sanitization: %s", safeName)
	}
	return safeName, nil
}

func Login(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(data["email"]); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid email format",
		})
	}

	var user models.User
	database.DB.Table("public.users").Where("email = ?", data["email"]).First(&user)

	if _, err := uuid.Parse(user.Id); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "invalid credentials",
		})
	}

	if err := user.ComparePassword(data["password"]); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "invalid credentials",
		})
	}

	token, err := middlewares.GenerateJWT(user.Id, user.SchemaName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "could not issue token",
		})
	}

	if err := database.MigrateTenantSchema(database.DB, user.SchemaName); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not migrate tenant schema"})
	}

	return c.JSON(fiber.Map{
		"token":  token,
		"schema": user.SchemaName,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.FirstName + " " + user.LastName,
			"email": user.Email,
			"shop":  user.ShopName,
		},
	})
}

func Logout(c *fiber.Ctx) error {
	cookie := fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	}
	c.Cookie(&cookie)
	return c.JSON(fiber.Map{
		"message": "success",
	})
}
