package ledger

import "atelier-backend/models"

// ResolveStage derives a garment's workflow stage from the completion state
// of its services. It never yields Done; pickup confirmation is an explicit
// action outside this derivation. Order-independent and idempotent, so it is
// safe to re-run after every service mutation.
func ResolveStage(services []models.GarmentService) string {
	total := len(services)
	completed := 0
	for _, s := range services {
		if s.IsDone {
			completed++
		}
	}

	switch {
	case completed == 0:
		return models.StageNew
	case completed == total && total > 0:
		return models.StageReadyForPickup
	default:
		return models.StageInProgress
	}
}
