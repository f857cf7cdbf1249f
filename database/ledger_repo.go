package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"atelier-backend/ledger"
	"atelier-backend/models"
)

// Postgres SQLSTATEs that mean "retry the whole transaction".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// LedgerRepository is the GORM implementation of the ledger engine's
// persistence port. It carries the shop's schema name and pins it with
// SET LOCAL inside every transaction, so the pin lives and dies with the
// transaction's connection; a bare pooled SET cannot guarantee that. All
// engine entry points wrap their work in InTransaction.
type LedgerRepository struct {
	db     *gorm.DB
	schema string
}

func NewLedgerRepository(db *gorm.DB, schema string) *LedgerRepository {
	return &LedgerRepository{db: db, schema: schema}
}

func (r *LedgerRepository) withDB(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db, schema: r.schema}
}

// InTransaction runs fn against a transactional copy of the repository,
// pinned to the tenant schema and at repeatable read, so multi-statement
// reads (invoice + payments) see one snapshot. Serialization failures and
// deadlocks surface as ledger.ErrConflict so the engine can retry the whole
// reconciliation.
func (r *LedgerRepository) InTransaction(ctx context.Context, fn func(ledger.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.schema != "" {
			if err := tx.Exec(`SET LOCAL search_path = "` + r.schema + `", public`).Error; err != nil {
				return err
			}
		}
		return fn(r.withDB(tx))
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	return mapStorageErr(err)
}

func (r *LedgerRepository) GarmentWithServices(ctx context.Context, garmentID uint) (*models.Garment, error) {
	var garment models.Garment
	err := r.db.WithContext(ctx).
		Preload("Services").
		Preload("Order").
		First(&garment, garmentID).Error
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &garment, nil
}

func (r *LedgerRepository) CatalogService(ctx context.Context, id string) (*models.CatalogService, error) {
	var entry models.CatalogService
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &entry, nil
}

// LatestPendingInvoice locks the candidate row FOR UPDATE so two concurrent
// reconciliations cannot both append to it and clobber the amount.
func (r *LedgerRepository) LatestPendingInvoice(ctx context.Context, orderID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status = ?", orderID, models.InvoiceStatusPending).
		Order("created_at DESC").
		First(&invoice).Error
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &invoice, nil
}

func (r *LedgerRepository) InvoiceWithPayments(ctx context.Context, invoiceID uint) (*models.Invoice, []models.Payment, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&invoice, invoiceID).Error
	if err != nil {
		return nil, nil, mapStorageErr(err)
	}
	return &invoice, invoice.Payments, nil
}

func (r *LedgerRepository) ServicesByIDs(ctx context.Context, orderID uint, serviceIDs []uint) ([]models.GarmentService, error) {
	var services []models.GarmentService
	err := r.db.WithContext(ctx).
		Joins("JOIN garments ON garments.id = garment_services.garment_id").
		Where("garments.order_id = ? AND garment_services.id IN ?", orderID, serviceIDs).
		Find(&services).Error
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(services) != len(serviceIDs) {
		return nil, fmt.Errorf("%w: %d of %d services found under order %d",
			ledger.ErrNotFound, len(services), len(serviceIDs), orderID)
	}
	return services, nil
}

func (r *LedgerRepository) ServiceByID(ctx context.Context, serviceID uint) (*models.GarmentService, error) {
	var svc models.GarmentService
	err := r.db.WithContext(ctx).First(&svc, serviceID).Error
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &svc, nil
}

func (r *LedgerRepository) InsertService(ctx context.Context, svc *models.GarmentService) error {
	return mapStorageErr(r.db.WithContext(ctx).Create(svc).Error)
}

func (r *LedgerRepository) InsertHistory(ctx context.Context, event *models.GarmentHistory) error {
	return mapStorageErr(r.db.WithContext(ctx).Create(event).Error)
}

// AppendLineItem inserts the item and bumps the invoice amount in the same
// transaction; the increment runs in SQL so it composes with the FOR UPDATE
// lock taken by LatestPendingInvoice.
func (r *LedgerRepository) AppendLineItem(ctx context.Context, invoiceID uint, item *models.InvoiceLineItem) error {
	item.InvoiceId = invoiceID
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return mapStorageErr(err)
	}
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		UpdateColumn("amount_cents", gorm.Expr("amount_cents + ?", item.TotalCents)).Error
	return mapStorageErr(err)
}

func (r *LedgerRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return mapStorageErr(r.db.WithContext(ctx).Create(invoice).Error)
}

// LinkServiceToInvoice sets invoice_id only when it is still NULL; a service
// is billed on exactly one invoice.
func (r *LedgerRepository) LinkServiceToInvoice(ctx context.Context, serviceID, invoiceID uint) error {
	res := r.db.WithContext(ctx).Model(&models.GarmentService{}).
		Where("id = ? AND invoice_id IS NULL", serviceID).
		Update("invoice_id", invoiceID)
	if res.Error != nil {
		return mapStorageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.GarmentService{}).
			Where("id = ?", serviceID).Count(&count).Error; err != nil {
			return mapStorageErr(err)
		}
		if count == 0 {
			return fmt.Errorf("%w: service %d", ledger.ErrNotFound, serviceID)
		}
		return fmt.Errorf("%w: service %d is already billed", ledger.ErrInvalidState, serviceID)
	}
	return nil
}

func (r *LedgerRepository) UpdateGarmentStage(ctx context.Context, garmentID uint, stage string) error {
	err := r.db.WithContext(ctx).Model(&models.Garment{}).
		Where("id = ?", garmentID).
		Update("stage", stage).Error
	return mapStorageErr(err)
}

func (r *LedgerRepository) UpdateServiceDone(ctx context.Context, serviceID uint, done bool) error {
	res := r.db.WithContext(ctx).Model(&models.GarmentService{}).
		Where("id = ?", serviceID).
		Update("is_done", done)
	if res.Error != nil {
		return mapStorageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: service %d", ledger.ErrNotFound, serviceID)
	}
	return nil
}

func (r *LedgerRepository) UpdateServicePayment(ctx context.Context, serviceID uint, status string, paidAmountCents int64) error {
	err := r.db.WithContext(ctx).Model(&models.GarmentService{}).
		Where("id = ?", serviceID).
		Updates(map[string]any{
			"payment_status":    status,
			"paid_amount_cents": paidAmountCents,
		}).Error
	return mapStorageErr(err)
}

func (r *LedgerRepository) InsertPayment(ctx context.Context, payment *models.Payment) error {
	return mapStorageErr(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *LedgerRepository) PaymentByID(ctx context.Context, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, paymentID).Error
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &payment, nil
}

func (r *LedgerRepository) UpdatePaymentRefund(ctx context.Context, paymentID uint, refundedAmountCents int64) error {
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("refunded_amount_cents", refundedAmountCents).Error
	return mapStorageErr(err)
}

func (r *LedgerRepository) UpdateInvoiceStatus(ctx context.Context, invoiceID uint, status string) error {
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("status", status).Error
	return mapStorageErr(err)
}

// mapStorageErr translates driver errors into the ledger taxonomy. Errors
// already carrying a ledger kind pass through unchanged so transaction
// wrappers don't re-wrap them.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if isLedgerErr(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ledger.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected {
			return fmt.Errorf("%w: sqlstate %s", ledger.ErrConflict, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
}

func isLedgerErr(err error) bool {
	return errors.Is(err, ledger.ErrNotFound) ||
		errors.Is(err, ledger.ErrConflict) ||
		errors.Is(err, ledger.ErrInvalidState) ||
		errors.Is(err, ledger.ErrStorage) ||
		ledger.IsValidation(err)
}
