package ticketing

import (
	"context"

	"cityq/eticket-service/internal/store"
)

// Cancel deactivates a reservation local-first, then best-effort tells
// the kiosk server. The second return value reports whether the kiosk
// acknowledged; false means the cancellation stands locally but the
// kiosk display may lag until its next sync.
func (e *Engine) Cancel(ctx context.Context, citizenID, reservationID string) (bool, error) {
	res, err := e.store.GetReservation(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if res.HolderID != citizenID {
		return false, store.ErrReservationNotFound
	}
	if !res.IsActive {
		return false, ErrNotCancelable
	}

	svc, err := e.store.GetService(ctx, res.ServiceID)
	if err != nil {
		return false, err
	}
	// Live read of current_ticket; racing against a concurrent sync is
	// accepted as eventually consistent.
	if res.TicketNumber <= svc.CurrentTicket {
		return false, ErrNotCancelable
	}

	if err := e.store.DeactivateReservation(ctx, reservationID); err != nil {
		return false, err
	}

	agency, err := e.store.GetAgency(ctx, svc.AgencyID)
	if err != nil {
		e.logger.Warn("cancel: agency lookup after local cancel",
			"reservation_id", reservationID, "error", err)
		return false, nil
	}
	if err := e.kiosk.Cancel(ctx, agency, svc.ServiceID, res.TicketNumber); err != nil {
		e.logger.Warn("cancel: kiosk not reached, local state stands",
			"reservation_id", reservationID, "error", err)
		return false, nil
	}

	return true, nil
}
