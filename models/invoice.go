package models

import "time"

const (
	InvoiceTypeInitial    = "initial"
	InvoiceTypeAdditional = "additional"
	InvoiceTypeAdjustment = "adjustment"
)

const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
)

// Invoice is a billable grouping of line items against an order. An order may
// accumulate several invoices over time (initial, additional, adjustment).
// AmountCents is the sum of the line item totals and grows when a line item
// is appended.
type Invoice struct {
	Id            uint   `json:"id" gorm:"primaryKey"`
	InvoiceNumber string `json:"invoice_number" gorm:"unique;not null"`
	OrderId       uint   `json:"order_id" gorm:"index:idx_invoices_order_status,priority:1;not null"`

	InvoiceType string `json:"invoice_type" gorm:"not null;default:'initial'"`
	Status      string `json:"status" gorm:"index:idx_invoices_order_status,priority:2;not null;default:'pending'"`

	AmountCents        int64 `json:"amount_cents" gorm:"not null;default:0"`
	DepositAmountCents int64 `json:"deposit_amount_cents" gorm:"not null;default:0"`

	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`

	Items    []InvoiceLineItem `json:"items" gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE"`
	Payments []Payment         `json:"payments" gorm:"foreignKey:InvoiceId"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceLineItem snapshots the billed service at attach time, so later edits
// to the service or catalog never change what was invoiced.
type InvoiceLineItem struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	InvoiceId        uint   `json:"-" gorm:"index"`
	GarmentServiceId *uint  `json:"garment_service_id" gorm:"index"`
	Description      string `json:"description" gorm:"not null"`
	Quantity         int    `json:"quantity" gorm:"not null"`
	UnitPriceCents   int64  `json:"unit_price_cents" gorm:"not null"`
	TotalCents       int64  `json:"total_cents" gorm:"not null"`
}

// Payment is one gateway transaction against an invoice. Only completed
// payments contribute to financial totals; RefundedAmountCents tracks partial
// or full refunds against this single payment.
type Payment struct {
	Id        uint `json:"id" gorm:"primaryKey"`
	InvoiceId uint `json:"invoice_id" gorm:"index:idx_payments_invoice_processed,priority:1;not null"`

	AmountCents         int64  `json:"amount_cents" gorm:"not null"`
	Status              string `json:"status" gorm:"not null;default:'completed'"`
	RefundedAmountCents int64  `json:"refunded_amount_cents" gorm:"not null;default:0"`

	Method      string    `json:"method"`
	Reference   string    `json:"reference"`
	Note        string    `json:"note"`
	ProcessedAt time.Time `json:"processed_at" gorm:"index:idx_payments_invoice_processed,priority:2"`
	CreatedAt   time.Time `json:"created_at"`
}
