package database

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"atelier-backend/models"
)

// GetTenantDB returns the request's schema-pinned transaction, opened by
// middlewares.TenantTx. There is no pooled-session fallback: a SET issued
// outside a transaction lands on an arbitrary pool connection and cannot pin
// the schema for later statements.
func GetTenantDB(c *fiber.Ctx) (*gorm.DB, error) {
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx, nil
		}
	}
	return nil, errors.New("no request transaction; TenantTx middleware not active")
}

// RequestSchema extracts the tenant schema stashed by the auth middleware.
func RequestSchema(c *fiber.Ctx) (string, error) {
	schema, _ := c.Locals("schema").(string)
	if strings.TrimSpace(schema) == "" {
		return "", errors.New("tenant schema missing")
	}
	return schema, nil
}

// CreateTenant provisions a shop in one transaction: the tenant schema, the
// owner's user row and the tenant migrations commit or roll back together,
// so a failed registration leaves no orphaned schema behind.
func CreateTenant(db *gorm.DB, user *models.User, schema string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE SCHEMA IF NOT EXISTS ` + schema).Error; err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return MigrateTenantSchema(tx, schema)
	})
}
