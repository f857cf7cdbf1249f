package ledger

import (
	"context"
	"time"

	"atelier-backend/models"
)

// PaymentInput records a gateway transaction against an invoice.
type PaymentInput struct {
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	Method      string     `json:"method"`
	Reference   string     `json:"reference"`
	Note        string     `json:"note"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// RecordPayment inserts a payment and rolls the invoice status and the
// payment status of its billed services forward, all in one transaction so a
// concurrent balance read never sees the payment without its consequences.
func (e *Engine) RecordPayment(ctx context.Context, invoiceID uint, in PaymentInput) (Balance, error) {
	if in.AmountCents <= 0 {
		return Balance{}, invalidField("amount_cents", "must be positive")
	}
	status := in.Status
	if status == "" {
		status = models.PaymentStatusCompleted
	}
	switch status {
	case models.PaymentStatusCompleted, models.PaymentStatusPending, models.PaymentStatusFailed:
	default:
		return Balance{}, invalidField("status", "must be completed, pending or failed")
	}

	processedAt := e.now()
	if in.ProcessedAt != nil {
		processedAt = *in.ProcessedAt
	}

	var balance Balance
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		invoice, _, err := r.InvoiceWithPayments(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == models.InvoiceStatusCancelled {
			return invalidStatef("invoice %d is cancelled", invoiceID)
		}

		payment := &models.Payment{
			InvoiceId:   invoiceID,
			AmountCents: in.AmountCents,
			Status:      status,
			Method:      in.Method,
			Reference:   in.Reference,
			Note:        in.Note,
			ProcessedAt: processedAt,
		}
		if err := r.InsertPayment(ctx, payment); err != nil {
			return err
		}
		return e.settle(ctx, r, invoiceID, &balance)
	})
	return balance, err
}

// RefundPayment records a partial or full refund against a single completed
// payment and re-settles the invoice.
func (e *Engine) RefundPayment(ctx context.Context, paymentID uint, amountCents int64) (Balance, error) {
	if amountCents <= 0 {
		return Balance{}, invalidField("amount_cents", "must be positive")
	}

	var balance Balance
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		payment, err := r.PaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentStatusCompleted {
			return invalidStatef("payment %d is %s; only completed payments can be refunded", paymentID, payment.Status)
		}
		refundable := payment.AmountCents - payment.RefundedAmountCents
		if amountCents > refundable {
			return invalidField("amount_cents", "exceeds the refundable remainder of the payment")
		}
		if err := r.UpdatePaymentRefund(ctx, paymentID, payment.RefundedAmountCents+amountCents); err != nil {
			return err
		}
		return e.settle(ctx, r, payment.InvoiceId, &balance)
	})
	return balance, err
}

// settle recomputes the invoice balance from a fresh snapshot and propagates
// it to the invoice status and the billed services. Fully paid invoices mark
// their services paid for the full line total; any positive net payment on a
// not-yet-settled invoice marks them partial.
func (e *Engine) settle(ctx context.Context, r Repository, invoiceID uint, out *Balance) error {
	invoice, payments, err := r.InvoiceWithPayments(ctx, invoiceID)
	if err != nil {
		return err
	}
	*out = ComputeBalance(*invoice, payments)

	status := models.InvoiceStatusPending
	if out.BalanceDueCents <= 0 && invoice.AmountCents > 0 {
		status = models.InvoiceStatusPaid
	}
	if status != invoice.Status {
		if err := r.UpdateInvoiceStatus(ctx, invoiceID, status); err != nil {
			return err
		}
	}

	for _, item := range invoice.Items {
		if item.GarmentServiceId == nil {
			continue
		}
		svcStatus, paid := models.ServiceUnpaid, int64(0)
		switch {
		case status == models.InvoiceStatusPaid:
			svcStatus, paid = models.ServicePaid, item.TotalCents
		case out.NetPaidCents > 0:
			svcStatus = models.ServicePartial
			// allocate the net payment across items proportionally to their totals
			if invoice.AmountCents > 0 {
				paid = out.NetPaidCents * item.TotalCents / invoice.AmountCents
			}
		}
		if err := r.UpdateServicePayment(ctx, *item.GarmentServiceId, svcStatus, paid); err != nil {
			return err
		}
	}
	return nil
}
