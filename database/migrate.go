package database

import (
	"fmt"

	"gorm.io/gorm"

	"atelier-backend/models"
)

// MigrateTenantSchema applies (idempotent) schema migrations for a single
// shop schema. It pins search_path to the tenant and performs:
// - AutoMigrate (tables/columns/index tags)
// - Money column types (BIGINT cents)
// - Indexes the ledger engine's queries rely on
// - Basic CHECK constraints on money and quantity columns
// db may already be a transaction (tenant provisioning); gorm then nests via
// savepoint.
func MigrateTenantSchema(db *gorm.DB, schema string) error {
	if schema == "" {
		return fmt.Errorf("schema name is empty")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// SET LOCAL reverts at transaction end and never leaks onto the pool
		if err := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}

		if err := tx.AutoMigrate(
			&models.Client{},
			&models.CatalogService{},
			&models.Order{},
			&models.Garment{},
			&models.GarmentService{},
			&models.Invoice{},
			&models.InvoiceLineItem{},
			&models.Payment{},
			&models.GarmentHistory{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("tenant automigrate failed: %w", err)
		}

		// --- Money columns are integer cents (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE catalog_services  ALTER COLUMN unit_price_cents      TYPE bigint`,
			`ALTER TABLE garment_services  ALTER COLUMN unit_price_cents      TYPE bigint`,
			`ALTER TABLE garment_services  ALTER COLUMN paid_amount_cents     TYPE bigint`,
			`ALTER TABLE invoices          ALTER COLUMN amount_cents          TYPE bigint`,
			`ALTER TABLE invoices          ALTER COLUMN deposit_amount_cents  TYPE bigint`,
			`ALTER TABLE invoice_line_items ALTER COLUMN unit_price_cents     TYPE bigint`,
			`ALTER TABLE invoice_line_items ALTER COLUMN total_cents          TYPE bigint`,
			`ALTER TABLE payments          ALTER COLUMN amount_cents          TYPE bigint`,
			`ALTER TABLE payments          ALTER COLUMN refunded_amount_cents TYPE bigint`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Indexes behind the engine's hot queries (idempotent) ---
		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_invoices_order_status_created ON invoices (order_id, status, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_invoice_processed ON payments (invoice_id, processed_at)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_line_items_invoice ON invoice_line_items (invoice_id)`,
			`CREATE INDEX IF NOT EXISTS idx_garment_services_garment ON garment_services (garment_id)`,
			`CREATE INDEX IF NOT EXISTS idx_garment_histories_garment ON garment_histories (garment_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Basic CHECK constraints (idempotent) ---
		checks := []struct{ table, name, expr string }{
			{"catalog_services", "chk_catalog_unit_price_nonneg", "unit_price_cents >= 0"},
			{"garment_services", "chk_services_unit_price_nonneg", "unit_price_cents >= 0"},
			{"garment_services", "chk_services_quantity_nonneg", "quantity >= 0"},
			{"garment_services", "chk_services_paid_amount_nonneg", "paid_amount_cents >= 0"},
			{"invoices", "chk_invoices_amount_nonneg", "amount_cents >= 0"},
			{"invoices", "chk_invoices_deposit_nonneg", "deposit_amount_cents >= 0"},
			{"payments", "chk_payments_amount_nonneg", "amount_cents >= 0"},
			{"payments", "chk_payments_refund_bounds", "refunded_amount_cents >= 0 AND refunded_amount_cents <= amount_cents"},
			{"invoice_line_items", "chk_line_items_quantity_nonneg", "quantity >= 0"},
		}
		for _, chk := range checks {
			stmt := fmt.Sprintf(`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = '%s'::regclass
					  AND conname  = '%s'
				) THEN
					ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
				END IF;
			END $$;`, chk.table, chk.name, chk.table, chk.name, chk.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
