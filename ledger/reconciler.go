package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atelier-backend/models"
)

// How a newly attached service ended up on billing.
const (
	ActionNone            = "none"
	ActionAddedToExisting = "added_to_existing"
	ActionCreatedNew      = "created_new"
	ActionRecommended     = "recommended"
)

// maxAttachRetries bounds automatic retries after a concurrent-update
// conflict on the candidate invoice.
const maxAttachRetries = 3

// ServiceSpec describes the service being added: either a reference to a
// catalog entry (quantity still required) or a fully inline custom service.
type ServiceSpec struct {
	CatalogServiceId *string `json:"catalog_service_id"`
	Name             string  `json:"name"`
	Unit             string  `json:"unit"`
	UnitPriceCents   int64   `json:"unit_price_cents"`
	Quantity         int     `json:"quantity"`
}

// AttachResult describes what AttachService did.
type AttachResult struct {
	Service       *models.GarmentService `json:"service"`
	InvoiceAction string                 `json:"invoice_action"`
	InvoiceId     *uint                  `json:"invoice_id,omitempty"`
	InvoiceNumber string                 `json:"invoice_number,omitempty"`
	Message       string                 `json:"message,omitempty"`
	Stage         string                 `json:"stage"`
	// RequiresPayment is set when the garment already had paid services, so
	// the new service needs its own payment reconciliation.
	RequiresPayment bool `json:"requires_payment"`
}

// AttachService inserts a new service on a garment and reconciles it with
// billing. When some of the garment's existing services were already paid
// for, the new service is appended to the order's open pending invoice; if
// there is none, a supplemental invoice is created (when autoCreateInvoice)
// or a manual reconciliation is recommended. The whole sequence runs in one
// transaction and is retried a bounded number of times on conflict.
func (e *Engine) AttachService(ctx context.Context, garmentID uint, spec ServiceSpec, autoCreateInvoice bool, invoiceNotes string) (*AttachResult, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	var (
		res *AttachResult
		err error
	)
	for attempt := 1; ; attempt++ {
		res, err = e.attachOnce(ctx, garmentID, spec, autoCreateInvoice, invoiceNotes)
		if !errors.Is(err, ErrConflict) || attempt >= maxAttachRetries {
			break
		}
		e.log.Warnw("attach service conflicted, retrying",
			"garment_id", garmentID, "attempt", attempt)
	}
	return res, err
}

func (e *Engine) attachOnce(ctx context.Context, garmentID uint, spec ServiceSpec, autoCreateInvoice bool, invoiceNotes string) (*AttachResult, error) {
	var res AttachResult
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		garment, err := r.GarmentWithServices(ctx, garmentID)
		if err != nil {
			return err
		}

		svc, err := e.resolveServiceData(ctx, r, garmentID, spec)
		if err != nil {
			return err
		}

		if err := r.InsertService(ctx, svc); err != nil {
			return err
		}
		if err := r.InsertHistory(ctx, e.historyEvent(garmentID, models.HistoryServiceAdded, map[string]any{
			"service_name":     svc.Name,
			"quantity":         svc.Quantity,
			"unit_price_cents": svc.UnitPriceCents,
		})); err != nil {
			return err
		}

		// The just-inserted service is always unpaid; only the garment's
		// pre-existing services decide whether billing must catch up.
		hasPaidServices := false
		for _, existing := range garment.Services {
			if existing.PaidAmountCents > 0 {
				hasPaidServices = true
				break
			}
		}

		res = AttachResult{Service: svc, InvoiceAction: ActionNone, RequiresPayment: hasPaidServices}
		if hasPaidServices {
			if err := e.reconcileBilling(ctx, r, garment, svc, autoCreateInvoice, invoiceNotes, &res); err != nil {
				return err
			}
		}

		services := append(garment.Services, *svc)
		res.Stage = ResolveStage(services)
		if res.Stage != garment.Stage {
			if err := e.setStage(ctx, r, garmentID, garment.Stage, res.Stage); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Infow("service attached",
		"garment_id", garmentID,
		"service_id", res.Service.Id,
		"invoice_action", res.InvoiceAction,
		"requires_payment", res.RequiresPayment)
	return &res, nil
}

// reconcileBilling applies the billing decision for a garment that already
// has paid services: append to the open pending invoice, create a
// supplemental one, or recommend manual reconciliation.
func (e *Engine) reconcileBilling(ctx context.Context, r Repository, garment *models.Garment, svc *models.GarmentService, autoCreateInvoice bool, invoiceNotes string, res *AttachResult) error {
	pending, err := r.LatestPendingInvoice(ctx, garment.OrderId)
	switch {
	case err == nil:
		item := &models.InvoiceLineItem{
			GarmentServiceId: &svc.Id,
			Description:      svc.Name,
			Quantity:         svc.Quantity,
			UnitPriceCents:   svc.UnitPriceCents,
			TotalCents:       svc.LineTotalCents(),
		}
		if err := r.AppendLineItem(ctx, pending.Id, item); err != nil {
			return err
		}
		if err := r.LinkServiceToInvoice(ctx, svc.Id, pending.Id); err != nil {
			return err
		}
		svc.InvoiceId = &pending.Id
		res.InvoiceAction = ActionAddedToExisting
		res.InvoiceId = &pending.Id
		res.InvoiceNumber = pending.InvoiceNumber
		return nil

	case errors.Is(err, ErrNotFound) && autoCreateInvoice:
		notes := strings.TrimSpace(invoiceNotes)
		if notes == "" {
			notes = fmt.Sprintf("Additional service for %s (%s)", garment.Name, e.now().Format("2006-01-02"))
		}
		invoice, err := e.buildSupplemental(ctx, r, garment.OrderId, []models.GarmentService{*svc}, models.InvoiceTypeAdditional, notes, 0, nil)
		if err != nil {
			return err
		}
		if err := r.InsertHistory(ctx, e.historyEvent(garment.Id, models.HistoryInvoiceCreated, map[string]any{
			"invoice_number": invoice.InvoiceNumber,
			"invoice_type":   invoice.InvoiceType,
			"amount_cents":   invoice.AmountCents,
		})); err != nil {
			return err
		}
		svc.InvoiceId = &invoice.Id
		res.InvoiceAction = ActionCreatedNew
		res.InvoiceId = &invoice.Id
		res.InvoiceNumber = invoice.InvoiceNumber
		return nil

	case errors.Is(err, ErrNotFound):
		res.InvoiceAction = ActionRecommended
		res.Message = fmt.Sprintf("service %q was added but is not billed yet; earlier services on this garment are already paid, so create an additional invoice to reconcile payment", svc.Name)
		return nil

	default:
		return err
	}
}

// resolveServiceData turns the spec into a concrete unbilled service row,
// loading the catalog entry when one is referenced.
func (e *Engine) resolveServiceData(ctx context.Context, r Repository, garmentID uint, spec ServiceSpec) (*models.GarmentService, error) {
	svc := &models.GarmentService{
		GarmentId:      garmentID,
		Name:           strings.TrimSpace(spec.Name),
		Unit:           strings.TrimSpace(spec.Unit),
		UnitPriceCents: spec.UnitPriceCents,
		Quantity:       spec.Quantity,
		PaymentStatus:  models.ServiceUnpaid,
	}

	if spec.CatalogServiceId != nil {
		entry, err := r.CatalogService(ctx, *spec.CatalogServiceId)
		if err != nil {
			return nil, err
		}
		svc.CatalogServiceId = &entry.Id
		svc.Name = entry.Name
		svc.Unit = entry.Unit
		svc.UnitPriceCents = entry.UnitPriceCents
	}
	return svc, nil
}

func (s ServiceSpec) validate() error {
	if s.Quantity < 0 {
		return invalidField("quantity", "must not be negative")
	}
	if s.CatalogServiceId != nil {
		if strings.TrimSpace(*s.CatalogServiceId) == "" {
			return invalidField("catalog_service_id", "must not be empty")
		}
		return nil
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalidField("name", "required for a custom service")
	}
	if strings.TrimSpace(s.Unit) == "" {
		return invalidField("unit", "required for a custom service")
	}
	if s.UnitPriceCents < 0 {
		return invalidField("unit_price_cents", "must not be negative")
	}
	return nil
}
