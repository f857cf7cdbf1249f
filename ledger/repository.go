package ledger

import (
	"context"

	"atelier-backend/models"
)

// Repository is the persistence port the engine runs against. Each method is
// individually atomic; InTransaction composes them into the larger unit the
// reconciler requires, so partial writes never survive a failed step.
type Repository interface {
	// GarmentWithServices loads a garment with its services and owning order,
	// or ErrNotFound.
	GarmentWithServices(ctx context.Context, garmentID uint) (*models.Garment, error)

	// CatalogService loads a price-list entry, or ErrNotFound.
	CatalogService(ctx context.Context, id string) (*models.CatalogService, error)

	// LatestPendingInvoice returns the order's most recent invoice with
	// status pending, locked against concurrent appends for the duration of
	// the enclosing transaction. ErrNotFound when the order has none.
	LatestPendingInvoice(ctx context.Context, orderID uint) (*models.Invoice, error)

	// InvoiceWithPayments loads an invoice together with all its payments in
	// a single consistent snapshot, or ErrNotFound.
	InvoiceWithPayments(ctx context.Context, invoiceID uint) (*models.Invoice, []models.Payment, error)

	// ServicesByIDs loads garment services restricted to garments of the
	// given order. ErrNotFound if any requested id is missing.
	ServicesByIDs(ctx context.Context, orderID uint, serviceIDs []uint) ([]models.GarmentService, error)

	// ServiceByID loads one garment service, or ErrNotFound.
	ServiceByID(ctx context.Context, serviceID uint) (*models.GarmentService, error)

	InsertService(ctx context.Context, svc *models.GarmentService) error
	InsertHistory(ctx context.Context, event *models.GarmentHistory) error

	// AppendLineItem adds an item to an invoice and increases the invoice's
	// amount by the item total in the same statement sequence.
	AppendLineItem(ctx context.Context, invoiceID uint, item *models.InvoiceLineItem) error

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error

	// LinkServiceToInvoice sets a service's invoice id. The id is set exactly
	// once; linking an already-billed service fails with ErrInvalidState.
	LinkServiceToInvoice(ctx context.Context, serviceID, invoiceID uint) error

	UpdateGarmentStage(ctx context.Context, garmentID uint, stage string) error
	UpdateServiceDone(ctx context.Context, serviceID uint, done bool) error
	UpdateServicePayment(ctx context.Context, serviceID uint, status string, paidAmountCents int64) error

	InsertPayment(ctx context.Context, payment *models.Payment) error
	PaymentByID(ctx context.Context, paymentID uint) (*models.Payment, error)
	UpdatePaymentRefund(ctx context.Context, paymentID uint, refundedAmountCents int64) error
	UpdateInvoiceStatus(ctx context.Context, invoiceID uint, status string) error

	// InTransaction runs fn against a transactional view of this repository.
	// A non-nil error from fn rolls every write back.
	InTransaction(ctx context.Context, fn func(Repository) error) error
}
