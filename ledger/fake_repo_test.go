package ledger_test

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"atelier-backend/ledger"
	"atelier-backend/models"
)

// fakeRepo is an in-memory ledger.Repository. InTransaction snapshots the
// whole state and restores it when fn fails, mirroring the rollback
// guarantee of the real implementation.
type fakeRepo struct {
	garments map[uint]*models.Garment
	services map[uint]*models.GarmentService
	catalog  map[string]*models.CatalogService
	invoices map[uint]*models.Invoice
	payments map[uint]*models.Payment
	history  []models.GarmentHistory

	nextID uint

	// failOn makes the named method return a storage error once.
	failOn string
	// conflicts makes LatestPendingInvoice report a conflict N times.
	conflicts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		garments: map[uint]*models.Garment{},
		services: map[uint]*models.GarmentService{},
		catalog:  map[string]*models.CatalogService{},
		invoices: map[uint]*models.Invoice{},
		payments: map[uint]*models.Payment{},
		nextID:   100,
	}
}

func newTestEngine(repo *fakeRepo) *ledger.Engine {
	return ledger.NewEngine(repo, zap.NewNop().Sugar())
}

func (f *fakeRepo) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) fail(method string) error {
	if f.failOn == method {
		f.failOn = ""
		return fmt.Errorf("%w: injected failure in %s", ledger.ErrStorage, method)
	}
	return nil
}

func (f *fakeRepo) addGarment(orderID uint, name, stage string) *models.Garment {
	g := &models.Garment{Id: f.id(), OrderId: orderID, Name: name, Stage: stage}
	f.garments[g.Id] = g
	return g
}

func (f *fakeRepo) addService(garmentID uint, svc models.GarmentService) *models.GarmentService {
	svc.Id = f.id()
	svc.GarmentId = garmentID
	if svc.PaymentStatus == "" {
		svc.PaymentStatus = models.ServiceUnpaid
	}
	f.services[svc.Id] = &svc
	return f.services[svc.Id]
}

func (f *fakeRepo) addInvoice(inv models.Invoice) *models.Invoice {
	inv.Id = f.id()
	f.invoices[inv.Id] = &inv
	return f.invoices[inv.Id]
}

// --- Repository implementation ---

func (f *fakeRepo) GarmentWithServices(_ context.Context, garmentID uint) (*models.Garment, error) {
	if err := f.fail("GarmentWithServices"); err != nil {
		return nil, err
	}
	g, ok := f.garments[garmentID]
	if !ok {
		return nil, fmt.Errorf("%w: garment %d", ledger.ErrNotFound, garmentID)
	}
	out := *g
	out.Services = nil
	var ids []uint
	for id, s := range f.services {
		if s.GarmentId == garmentID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	for _, id := range ids {
		out.Services = append(out.Services, *f.services[id])
	}
	return &out, nil
}

func (f *fakeRepo) CatalogService(_ context.Context, id string) (*models.CatalogService, error) {
	entry, ok := f.catalog[id]
	if !ok {
		return nil, fmt.Errorf("%w: catalog service %s", ledger.ErrNotFound, id)
	}
	out := *entry
	return &out, nil
}

func (f *fakeRepo) LatestPendingInvoice(_ context.Context, orderID uint) (*models.Invoice, error) {
	if f.conflicts > 0 {
		f.conflicts--
		return nil, fmt.Errorf("%w: sqlstate 40001", ledger.ErrConflict)
	}
	var latest *models.Invoice
	for _, inv := range f.invoices {
		if inv.OrderId != orderID || inv.Status != models.InvoiceStatusPending {
			continue
		}
		if latest == nil || inv.Id > latest.Id {
			latest = inv
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no pending invoice for order %d", ledger.ErrNotFound, orderID)
	}
	out := *latest
	return &out, nil
}

func (f *fakeRepo) InvoiceWithPayments(_ context.Context, invoiceID uint) (*models.Invoice, []models.Payment, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: invoice %d", ledger.ErrNotFound, invoiceID)
	}
	out := *inv
	var payments []models.Payment
	var ids []uint
	for id, p := range f.payments {
		if p.InvoiceId == invoiceID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	for _, id := range ids {
		payments = append(payments, *f.payments[id])
	}
	return &out, payments, nil
}

func (f *fakeRepo) ServicesByIDs(_ context.Context, orderID uint, serviceIDs []uint) ([]models.GarmentService, error) {
	var out []models.GarmentService
	for _, id := range serviceIDs {
		svc, ok := f.services[id]
		if !ok {
			continue
		}
		g, ok := f.garments[svc.GarmentId]
		if !ok || g.OrderId != orderID {
			continue
		}
		out = append(out, *svc)
	}
	if len(out) != len(serviceIDs) {
		return nil, fmt.Errorf("%w: %d of %d services found under order %d",
			ledger.ErrNotFound, len(out), len(serviceIDs), orderID)
	}
	return out, nil
}

func (f *fakeRepo) ServiceByID(_ context.Context, serviceID uint) (*models.GarmentService, error) {
	svc, ok := f.services[serviceID]
	if !ok {
		return nil, fmt.Errorf("%w: service %d", ledger.ErrNotFound, serviceID)
	}
	out := *svc
	return &out, nil
}

func (f *fakeRepo) InsertService(_ context.Context, svc *models.GarmentService) error {
	if err := f.fail("InsertService"); err != nil {
		return err
	}
	svc.Id = f.id()
	stored := *svc
	f.services[svc.Id] = &stored
	return nil
}

func (f *fakeRepo) InsertHistory(_ context.Context, event *models.GarmentHistory) error {
	if err := f.fail("InsertHistory"); err != nil {
		return err
	}
	event.Id = f.id()
	f.history = append(f.history, *event)
	return nil
}

func (f *fakeRepo) AppendLineItem(_ context.Context, invoiceID uint, item *models.InvoiceLineItem) error {
	if err := f.fail("AppendLineItem"); err != nil {
		return err
	}
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", ledger.ErrNotFound, invoiceID)
	}
	item.ID = f.id()
	item.InvoiceId = invoiceID
	inv.Items = append(inv.Items, *item)
	inv.AmountCents += item.TotalCents
	return nil
}

func (f *fakeRepo) CreateInvoice(_ context.Context, invoice *models.Invoice) error {
	if err := f.fail("CreateInvoice"); err != nil {
		return err
	}
	invoice.Id = f.id()
	for i := range invoice.Items {
		invoice.Items[i].ID = f.id()
		invoice.Items[i].InvoiceId = invoice.Id
	}
	stored := *invoice
	f.invoices[invoice.Id] = &stored
	return nil
}

func (f *fakeRepo) LinkServiceToInvoice(_ context.Context, serviceID, invoiceID uint) error {
	svc, ok := f.services[serviceID]
	if !ok {
		return fmt.Errorf("%w: service %d", ledger.ErrNotFound, serviceID)
	}
	if svc.InvoiceId != nil {
		return fmt.Errorf("%w: service %d is already billed", ledger.ErrInvalidState, serviceID)
	}
	id := invoiceID
	svc.InvoiceId = &id
	return nil
}

func (f *fakeRepo) UpdateGarmentStage(_ context.Context, garmentID uint, stage string) error {
	if err := f.fail("UpdateGarmentStage"); err != nil {
		return err
	}
	g, ok := f.garments[garmentID]
	if !ok {
		return fmt.Errorf("%w: garment %d", ledger.ErrNotFound, garmentID)
	}
	g.Stage = stage
	return nil
}

func (f *fakeRepo) UpdateServiceDone(_ context.Context, serviceID uint, done bool) error {
	svc, ok := f.services[serviceID]
	if !ok {
		return fmt.Errorf("%w: service %d", ledger.ErrNotFound, serviceID)
	}
	svc.IsDone = done
	return nil
}

func (f *fakeRepo) UpdateServicePayment(_ context.Context, serviceID uint, status string, paidAmountCents int64) error {
	svc, ok := f.services[serviceID]
	if !ok {
		return fmt.Errorf("%w: service %d", ledger.ErrNotFound, serviceID)
	}
	svc.PaymentStatus = status
	svc.PaidAmountCents = paidAmountCents
	return nil
}

func (f *fakeRepo) InsertPayment(_ context.Context, payment *models.Payment) error {
	if err := f.fail("InsertPayment"); err != nil {
		return err
	}
	payment.Id = f.id()
	stored := *payment
	f.payments[payment.Id] = &stored
	return nil
}

func (f *fakeRepo) PaymentByID(_ context.Context, paymentID uint) (*models.Payment, error) {
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: payment %d", ledger.ErrNotFound, paymentID)
	}
	out := *p
	return &out, nil
}

func (f *fakeRepo) UpdatePaymentRefund(_ context.Context, paymentID uint, refundedAmountCents int64) error {
	p, ok := f.payments[paymentID]
	if !ok {
		return fmt.Errorf("%w: payment %d", ledger.ErrNotFound, paymentID)
	}
	p.RefundedAmountCents = refundedAmountCents
	return nil
}

func (f *fakeRepo) UpdateInvoiceStatus(_ context.Context, invoiceID uint, status string) error {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", ledger.ErrNotFound, invoiceID)
	}
	inv.Status = status
	return nil
}

func (f *fakeRepo) InTransaction(_ context.Context, fn func(ledger.Repository) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

type fakeState struct {
	garments map[uint]*models.Garment
	services map[uint]*models.GarmentService
	invoices map[uint]*models.Invoice
	payments map[uint]*models.Payment
	history  []models.GarmentHistory
	nextID   uint
}

func (f *fakeRepo) snapshot() fakeState {
	s := fakeState{
		garments: map[uint]*models.Garment{},
		services: map[uint]*models.GarmentService{},
		invoices: map[uint]*models.Invoice{},
		payments: map[uint]*models.Payment{},
		history:  append([]models.GarmentHistory(nil), f.history...),
		nextID:   f.nextID,
	}
	for id, g := range f.garments {
		cp := *g
		s.garments[id] = &cp
	}
	for id, svc := range f.services {
		cp := *svc
		s.services[id] = &cp
	}
	for id, inv := range f.invoices {
		cp := *inv
		cp.Items = append([]models.InvoiceLineItem(nil), inv.Items...)
		s.invoices[id] = &cp
	}
	for id, p := range f.payments {
		cp := *p
		s.payments[id] = &cp
	}
	return s
}

func (f *fakeRepo) restore(s fakeState) {
	f.garments = s.garments
	f.services = s.services
	f.invoices = s.invoices
	f.payments = s.payments
	f.history = s.history
	f.nextID = s.nextID
}
