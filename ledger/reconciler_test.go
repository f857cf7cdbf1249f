package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier-backend/ledger"
	"atelier-backend/models"
)

func strPtr(s string) *string { return &s }

func customSpec(name string, priceCents int64, qty int) ledger.ServiceSpec {
	return ledger.ServiceSpec{Name: name, Unit: "item", UnitPriceCents: priceCents, Quantity: qty}
}

func TestAttachService_NoPaidServices(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Wedding dress", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{Name: "Hem", IsDone: true, UnitPriceCents: 1500, Quantity: 1})
	repo.addService(garment.Id, models.GarmentService{Name: "Take in waist", IsDone: false, UnitPriceCents: 2500, Quantity: 1})

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Replace zipper", 1800, 1), false, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.ActionNone, res.InvoiceAction)
	assert.False(t, res.RequiresPayment)
	assert.Equal(t, models.StageInProgress, res.Stage)

	svc := repo.services[res.Service.Id]
	require.NotNil(t, svc)
	assert.Equal(t, "Replace zipper", svc.Name)
	assert.False(t, svc.IsDone)
	assert.Equal(t, models.ServiceUnpaid, svc.PaymentStatus)
	assert.Nil(t, svc.InvoiceId)

	require.Len(t, repo.history, 1)
	assert.Equal(t, models.HistoryServiceAdded, repo.history[0].EventType)
}

func TestAttachService_StageRecomputed(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Suit jacket", models.StageReadyForPickup)
	repo.addService(garment.Id, models.GarmentService{Name: "Shorten sleeves", IsDone: true, UnitPriceCents: 2000, Quantity: 1})

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Press", 500, 1), false, "")
	require.NoError(t, err)

	// one done, one new not-done service
	assert.Equal(t, models.StageInProgress, res.Stage)
	assert.Equal(t, models.StageInProgress, repo.garments[garment.Id].Stage)

	require.Len(t, repo.history, 2)
	assert.Equal(t, models.HistoryServiceAdded, repo.history[0].EventType)
	assert.Equal(t, models.HistoryStageChanged, repo.history[1].EventType)
}

func TestAttachService_AppendsToPendingInvoice(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Evening gown", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{
		Name: "Hem", IsDone: true, UnitPriceCents: 3000, Quantity: 1,
		PaymentStatus: models.ServicePaid, PaidAmountCents: 3000,
	})
	invoice := repo.addInvoice(models.Invoice{
		InvoiceNumber: "INV-20260801-AAAA1111", OrderId: 1,
		Status: models.InvoiceStatusPending, AmountCents: 3000,
	})

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Add bustle", 4500, 2), false, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.ActionAddedToExisting, res.InvoiceAction)
	assert.True(t, res.RequiresPayment)
	require.NotNil(t, res.InvoiceId)
	assert.Equal(t, invoice.Id, *res.InvoiceId)
	assert.Equal(t, invoice.InvoiceNumber, res.InvoiceNumber)

	stored := repo.invoices[invoice.Id]
	assert.Equal(t, int64(3000+9000), stored.AmountCents, "line total 2 x 4500 must be added")
	require.Len(t, stored.Items, 1)
	assert.Equal(t, int64(9000), stored.Items[0].TotalCents)

	svc := repo.services[res.Service.Id]
	require.NotNil(t, svc.InvoiceId)
	assert.Equal(t, invoice.Id, *svc.InvoiceId)
}

func TestAttachService_CreatesSupplementalInvoice(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Evening gown", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{
		Name: "Hem", IsDone: true, UnitPriceCents: 3000, Quantity: 1,
		PaymentStatus: models.ServicePaid, PaidAmountCents: 3000,
	})
	// only a paid (non-pending) invoice exists
	repo.addInvoice(models.Invoice{
		InvoiceNumber: "INV-20260701-BBBB2222", OrderId: 1,
		Status: models.InvoiceStatusPaid, AmountCents: 3000,
	})

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Beading repair", 6000, 1), true, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.ActionCreatedNew, res.InvoiceAction)
	require.NotNil(t, res.InvoiceId)

	created := repo.invoices[*res.InvoiceId]
	require.NotNil(t, created)
	assert.Equal(t, models.InvoiceTypeAdditional, created.InvoiceType)
	assert.Equal(t, models.InvoiceStatusPending, created.Status)
	assert.Equal(t, int64(6000), created.AmountCents)
	assert.Contains(t, created.Description, "Evening gown", "default note mentions the garment")
	require.Len(t, created.Items, 1)

	svc := repo.services[res.Service.Id]
	require.NotNil(t, svc.InvoiceId)
	assert.Equal(t, created.Id, *svc.InvoiceId)

	// history: service added + invoice created
	require.Len(t, repo.history, 2)
	assert.Equal(t, models.HistoryInvoiceCreated, repo.history[1].EventType)
}

func TestAttachService_CustomInvoiceNote(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Coat", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{
		Name: "Relining", IsDone: false, UnitPriceCents: 9000, Quantity: 1,
		PaymentStatus: models.ServicePartial, PaidAmountCents: 4000,
	})

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Buttons", 1200, 4), true, "Agreed by phone")
	require.NoError(t, err)

	created := repo.invoices[*res.InvoiceId]
	assert.Equal(t, "Agreed by phone", created.Description)
	assert.Equal(t, int64(4800), created.AmountCents)
}

func TestAttachService_RecommendsWhenNoInvoiceAllowed(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Skirt", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{
		Name: "Hem", IsDone: true, UnitPriceCents: 1500, Quantity: 1,
		PaymentStatus: models.ServicePaid, PaidAmountCents: 1500,
	})

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Pleats", 2600, 1), false, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.ActionRecommended, res.InvoiceAction)
	assert.True(t, res.RequiresPayment)
	assert.NotEmpty(t, res.Message)
	assert.Nil(t, res.InvoiceId)
	assert.Empty(t, repo.invoices, "no invoice may be created without opt-in")

	svc := repo.services[res.Service.Id]
	require.NotNil(t, svc, "the service itself is still added")
	assert.Nil(t, svc.InvoiceId)
}

func TestAttachService_CatalogReference(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Trousers", models.StageNew)
	repo.catalog["cat-1"] = &models.CatalogService{
		Id: "cat-1", Name: "Hem pants", Unit: "pair", UnitPriceCents: 1500, Active: true,
	}

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, ledger.ServiceSpec{
		CatalogServiceId: strPtr("cat-1"),
		Quantity:         2,
	}, false, "")
	require.NoError(t, err)

	svc := repo.services[res.Service.Id]
	assert.Equal(t, "Hem pants", svc.Name)
	assert.Equal(t, "pair", svc.Unit)
	assert.Equal(t, int64(1500), svc.UnitPriceCents)
	assert.Equal(t, 2, svc.Quantity)
	assert.Equal(t, "cat-1", *svc.CatalogServiceId)
}

func TestAttachService_CatalogMissing(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Trousers", models.StageNew)

	engine := newTestEngine(repo)
	_, err := engine.AttachService(context.Background(), garment.Id, ledger.ServiceSpec{
		CatalogServiceId: strPtr("missing"),
		Quantity:         1,
	}, false, "")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	assert.Empty(t, repo.services, "nothing may be written when the catalog lookup fails")
	assert.Empty(t, repo.history)
}

func TestAttachService_GarmentMissing(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)

	_, err := engine.AttachService(context.Background(), 999, customSpec("Hem", 1000, 1), false, "")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAttachService_Validation(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)

	tests := []struct {
		name string
		spec ledger.ServiceSpec
	}{
		{"empty name", customSpec("", 1000, 1)},
		{"blank name", customSpec("   ", 1000, 1)},
		{"negative price", customSpec("Hem", -1, 1)},
		{"negative quantity", customSpec("Hem", 1000, -2)},
		{"missing unit", ledger.ServiceSpec{Name: "Hem", UnitPriceCents: 100, Quantity: 1}},
		{"blank catalog id", ledger.ServiceSpec{CatalogServiceId: strPtr(" "), Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.AttachService(context.Background(), 1, tt.spec, false, "")
			var ve *ledger.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
	assert.Empty(t, repo.services, "validation failures must reject before any write")
}

func TestAttachService_RollbackOnStorageFailure(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Blouse", models.StageNew)
	repo.failOn = "InsertHistory"

	engine := newTestEngine(repo)
	_, err := engine.AttachService(context.Background(), garment.Id, customSpec("Darts", 2000, 1), false, "")
	require.ErrorIs(t, err, ledger.ErrStorage)

	assert.Empty(t, repo.services, "the inserted service must roll back with the failed history write")
	assert.Empty(t, repo.history)
	assert.Equal(t, models.StageNew, repo.garments[garment.Id].Stage)
}

func TestAttachService_RetriesOnConflict(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Gown", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{
		Name: "Hem", IsDone: true, UnitPriceCents: 3000, Quantity: 1,
		PaymentStatus: models.ServicePaid, PaidAmountCents: 3000,
	})
	invoice := repo.addInvoice(models.Invoice{
		InvoiceNumber: "INV-20260801-CCCC3333", OrderId: 1,
		Status: models.InvoiceStatusPending, AmountCents: 3000,
	})
	repo.conflicts = 2 // first two attempts collide, third succeeds

	engine := newTestEngine(repo)
	res, err := engine.AttachService(context.Background(), garment.Id, customSpec("Straps", 1000, 1), false, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionAddedToExisting, res.InvoiceAction)
	assert.Equal(t, int64(4000), repo.invoices[invoice.Id].AmountCents)
	assert.Len(t, repo.services, 2, "retries must not duplicate the service")
}

func TestAttachService_GivesUpAfterBoundedRetries(t *testing.T) {
	repo := newFakeRepo()
	garment := repo.addGarment(1, "Gown", models.StageInProgress)
	repo.addService(garment.Id, models.GarmentService{
		Name: "Hem", IsDone: true, UnitPriceCents: 3000, Quantity: 1,
		PaymentStatus: models.ServicePaid, PaidAmountCents: 3000,
	})
	repo.conflicts = 10

	engine := newTestEngine(repo)
	_, err := engine.AttachService(context.Background(), garment.Id, customSpec("Straps", 1000, 1), false, "")
	require.ErrorIs(t, err, ledger.ErrConflict)
	assert.Len(t, repo.services, 1, "every conflicted attempt must roll back")
}
