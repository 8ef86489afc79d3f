package ticketing

import (
	"context"

	"cityq/eticket-service/internal/queue"
	"cityq/eticket-service/internal/store"
)

type SyncResult struct {
	Applied int `json:"applied"`
	Reset   int `json:"reset"`
}

// PushAll applies a bulk state push from an agency's kiosk server.
// Snapshots for unknown services are ignored, services absent from the
// batch are untouched: a push overwrites, it never deletes. After each
// applied snapshot the daily reset check runs, so the reset rides on
// the first sync of the day instead of a scheduler.
func (e *Engine) PushAll(ctx context.Context, agencyID int64, snapshots []store.ServiceSnapshot) (SyncResult, error) {
	var result SyncResult
	now := e.now()

	for _, snap := range snapshots {
		svc, applied, err := e.store.ApplySnapshot(ctx, agencyID, snap)
		if err != nil {
			return result, err
		}
		if !applied {
			continue
		}
		result.Applied++

		if now.Hour() > e.resetCutoffHour {
			continue
		}
		if svc.LastResetOn != nil && queue.SameDay(*svc.LastResetOn, now) {
			continue
		}
		didReset, err := e.store.ResetServiceCounters(ctx, svc.ServiceID, now)
		if err != nil {
			return result, err
		}
		if didReset {
			result.Reset++
			e.logger.Info("daily counter reset", "service_id", svc.ServiceID)
		}
	}

	return result, nil
}
