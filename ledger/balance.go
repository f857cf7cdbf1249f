package ledger

import "atelier-backend/models"

// Balance is the financial rollup of one invoice and its payments.
type Balance struct {
	InvoiceId     uint   `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`

	TotalAmountCents   int64 `json:"total_amount_cents"`
	TotalPaidCents     int64 `json:"total_paid_cents"`
	TotalRefundedCents int64 `json:"total_refunded_cents"`
	NetPaidCents       int64 `json:"net_paid_cents"`
	BalanceDueCents    int64 `json:"balance_due_cents"` // negative => client credit

	DepositRequiredCents  int64 `json:"deposit_required_cents"`
	DepositPaidCents      int64 `json:"deposit_paid_cents"`
	DepositRemainingCents int64 `json:"deposit_remaining_cents"`

	CanStartWork bool `json:"can_start_work"`
	HasRefunds   bool `json:"has_refunds"`
	HasCredit    bool `json:"has_credit"`
}

// ComputeBalance rolls up an invoice's payments into a Balance. Pure and
// total: it never fails, and an empty payment list yields zero totals with
// the full invoice amount due. Pending and failed payments are ignored;
// refunds only ever count against completed payments.
func ComputeBalance(invoice models.Invoice, payments []models.Payment) Balance {
	var paid, refunded int64
	for _, p := range payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		paid += p.AmountCents
		refunded += p.RefundedAmountCents
	}

	netPaid := paid - refunded
	balanceDue := invoice.AmountCents - netPaid

	depositPaid := netPaid
	if depositPaid > invoice.DepositAmountCents {
		depositPaid = invoice.DepositAmountCents
	}
	if depositPaid < 0 {
		depositPaid = 0
	}
	depositRemaining := invoice.DepositAmountCents - depositPaid
	if depositRemaining < 0 {
		depositRemaining = 0
	}

	return Balance{
		InvoiceId:             invoice.Id,
		InvoiceNumber:         invoice.InvoiceNumber,
		Status:                invoice.Status,
		TotalAmountCents:      invoice.AmountCents,
		TotalPaidCents:        paid,
		TotalRefundedCents:    refunded,
		NetPaidCents:          netPaid,
		BalanceDueCents:       balanceDue,
		DepositRequiredCents:  invoice.DepositAmountCents,
		DepositPaidCents:      depositPaid,
		DepositRemainingCents: depositRemaining,
		CanStartWork:          depositPaid >= invoice.DepositAmountCents,
		HasRefunds:            refunded > 0,
		HasCredit:             balanceDue < 0,
	}
}
