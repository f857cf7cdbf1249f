package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"atelier-backend/models"
)

// SupplementalInvoiceInput is the general entry point's request: bill a batch
// of still-unbilled services of one order on a fresh invoice.
type SupplementalInvoiceInput struct {
	OrderId            uint       `json:"order_id"`
	ServiceIds         []uint     `json:"service_ids"`
	InvoiceType        string     `json:"invoice_type"`
	Notes              string     `json:"notes"`
	DepositAmountCents int64      `json:"deposit_amount_cents"`
	DueDate            *time.Time `json:"due_date"`
}

// CreateSupplementalInvoice bills the given services on a new invoice. Every
// referenced service must be unpaid, not yet attached to any invoice, and
// belong to a garment of the order.
func (e *Engine) CreateSupplementalInvoice(ctx context.Context, in SupplementalInvoiceInput) (*models.Invoice, error) {
	if len(in.ServiceIds) == 0 {
		return nil, invalidField("service_ids", "at least one service is required")
	}
	switch in.InvoiceType {
	case models.InvoiceTypeInitial, models.InvoiceTypeAdditional, models.InvoiceTypeAdjustment:
	default:
		return nil, invalidField("invoice_type", "must be initial, additional or adjustment")
	}
	if in.DepositAmountCents < 0 {
		return nil, invalidField("deposit_amount_cents", "must not be negative")
	}

	var invoice *models.Invoice
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		services, err := r.ServicesByIDs(ctx, in.OrderId, in.ServiceIds)
		if err != nil {
			return err
		}
		inv, err := e.buildSupplemental(ctx, r, in.OrderId, services, in.InvoiceType, in.Notes, in.DepositAmountCents, in.DueDate)
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Infow("supplemental invoice created",
		"order_id", in.OrderId,
		"invoice_id", invoice.Id,
		"invoice_number", invoice.InvoiceNumber,
		"amount_cents", invoice.AmountCents,
		"services", len(in.ServiceIds))
	return invoice, nil
}

// buildSupplemental constructs and persists the invoice record plus its line
// items and links every included service to it. Runs inside the caller's
// transaction; also used by the reconciler for single-service auto billing.
func (e *Engine) buildSupplemental(ctx context.Context, r Repository, orderID uint, services []models.GarmentService, invoiceType, notes string, depositCents int64, dueDate *time.Time) (*models.Invoice, error) {
	items := make([]models.InvoiceLineItem, 0, len(services))
	var amount int64
	for i := range services {
		svc := services[i]
		if svc.InvoiceId != nil {
			return nil, invalidStatef("service %d is already billed on invoice %d", svc.Id, *svc.InvoiceId)
		}
		if svc.PaymentStatus != models.ServiceUnpaid {
			return nil, invalidStatef("service %d is %s and cannot be re-billed", svc.Id, svc.PaymentStatus)
		}
		total := svc.LineTotalCents()
		amount += total
		items = append(items, models.InvoiceLineItem{
			GarmentServiceId: &services[i].Id,
			Description:      svc.Name,
			Quantity:         svc.Quantity,
			UnitPriceCents:   svc.UnitPriceCents,
			TotalCents:       total,
		})
	}

	invoice := &models.Invoice{
		InvoiceNumber:      e.nextInvoiceNumber(),
		OrderId:            orderID,
		InvoiceType:        invoiceType,
		Status:             models.InvoiceStatusPending,
		AmountCents:        amount,
		DepositAmountCents: depositCents,
		Description:        strings.TrimSpace(notes),
		DueDate:            dueDate,
		Items:              items,
	}
	if err := r.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	for i := range services {
		if err := r.LinkServiceToInvoice(ctx, services[i].Id, invoice.Id); err != nil {
			return nil, err
		}
	}
	return invoice, nil
}

func (e *Engine) nextInvoiceNumber() string {
	return fmt.Sprintf("INV-%s-%s",
		e.now().Format("20060102"),
		strings.ToUpper(uuid.NewString()[:8]))
}
