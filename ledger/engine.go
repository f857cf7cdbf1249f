package ledger

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"atelier-backend/models"
)

// Engine is the garment service ledger: stage derivation, invoice balance
// computation and the service-to-invoice reconciliation policy. It owns no
// storage; everything goes through the injected Repository.
type Engine struct {
	repo Repository
	log  *zap.SugaredLogger
	now  func() time.Time
}

func NewEngine(repo Repository, log *zap.SugaredLogger) *Engine {
	return &Engine{repo: repo, log: log, now: time.Now}
}

// InvoiceBalance computes the financial rollup for one invoice. The invoice
// and its payments are read in a single snapshot so a concurrent payment or
// refund write can never be half-counted.
func (e *Engine) InvoiceBalance(ctx context.Context, invoiceID uint) (Balance, error) {
	var b Balance
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		invoice, payments, err := r.InvoiceWithPayments(ctx, invoiceID)
		if err != nil {
			return err
		}
		b = ComputeBalance(*invoice, payments)
		return nil
	})
	return b, err
}

// ResolveGarmentStage recomputes a garment's stage from its services and
// persists the result. A garment marked Done stays Done until its services
// change again.
func (e *Engine) ResolveGarmentStage(ctx context.Context, garmentID uint) (string, error) {
	var stage string
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		garment, err := r.GarmentWithServices(ctx, garmentID)
		if err != nil {
			return err
		}
		stage = ResolveStage(garment.Services)
		if stage == garment.Stage {
			return nil
		}
		return e.setStage(ctx, r, garmentID, garment.Stage, stage)
	})
	return stage, err
}

// SetServiceCompletion flips a service's done flag, re-derives the owning
// garment's stage and records the change in the garment history.
func (e *Engine) SetServiceCompletion(ctx context.Context, serviceID uint, done bool) (string, error) {
	var stage string
	err := e.repo.InTransaction(ctx, func(r Repository) error {
		svc, err := r.ServiceByID(ctx, serviceID)
		if err != nil {
			return err
		}
		if err := r.UpdateServiceDone(ctx, serviceID, done); err != nil {
			return err
		}

		eventType := models.HistoryServiceCompleted
		if !done {
			eventType = models.HistoryServiceUncompleted
		}
		if err := r.InsertHistory(ctx, e.historyEvent(svc.GarmentId, eventType, map[string]any{
			"service_id":   svc.Id,
			"service_name": svc.Name,
		})); err != nil {
			return err
		}

		garment, err := r.GarmentWithServices(ctx, svc.GarmentId)
		if err != nil {
			return err
		}
		for i := range garment.Services {
			if garment.Services[i].Id == serviceID {
				garment.Services[i].IsDone = done
			}
		}
		stage = ResolveStage(garment.Services)
		if stage == garment.Stage {
			return nil
		}
		return e.setStage(ctx, r, garment.Id, garment.Stage, stage)
	})
	return stage, err
}

// ConfirmPickup is the explicit transition to Done. It is the only way a
// garment reaches that stage.
func (e *Engine) ConfirmPickup(ctx context.Context, garmentID uint) error {
	return e.repo.InTransaction(ctx, func(r Repository) error {
		garment, err := r.GarmentWithServices(ctx, garmentID)
		if err != nil {
			return err
		}
		if garment.Stage != models.StageReadyForPickup {
			return invalidStatef("garment %d is not ready for pickup", garmentID)
		}
		if err := e.setStage(ctx, r, garmentID, garment.Stage, models.StageDone); err != nil {
			return err
		}
		return r.InsertHistory(ctx, e.historyEvent(garmentID, models.HistoryPickupConfirmed, map[string]any{
			"garment_name": garment.Name,
		}))
	})
}

// setStage persists a stage transition and records it in the garment history.
func (e *Engine) setStage(ctx context.Context, r Repository, garmentID uint, from, to string) error {
	if err := r.UpdateGarmentStage(ctx, garmentID, to); err != nil {
		return err
	}
	return r.InsertHistory(ctx, e.historyEvent(garmentID, models.HistoryStageChanged, map[string]any{
		"from": from,
		"to":   to,
	}))
}

func (e *Engine) historyEvent(garmentID uint, eventType string, payload map[string]any) *models.GarmentHistory {
	raw, err := json.Marshal(payload)
	if err != nil {
		// payload maps are built from plain values; marshal cannot realistically fail
		e.log.Errorw("history payload marshal failed", "event", eventType, "error", err)
		raw = []byte(`{}`)
	}
	return &models.GarmentHistory{
		GarmentId: garmentID,
		EventType: eventType,
		Payload:   datatypes.JSON(raw),
		CreatedAt: e.now(),
	}
}
