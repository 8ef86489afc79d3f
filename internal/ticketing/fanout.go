package ticketing

import (
	"context"
	"time"

	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/queue"

	"github.com/google/uuid"
)

// SendNotifications runs the fan-out after a kiosk reported the serving
// counter advanced: the currently served ticket's reservation (if any)
// plus up to the next lookahead still-active reservations, each told
// how far they are from the counter. The batch is stored atomically;
// hand-off to the dispatcher is per notification and best effort.
func (e *Engine) SendNotifications(ctx context.Context, agencyID, serviceID int64) ([]models.Notification, error) {
	svc, err := e.store.GetAgencyService(ctx, agencyID, serviceID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	reservations, err := e.store.CurrentAndUpcoming(ctx, svc.ServiceID, svc.CurrentTicket, e.fanoutLookahead+1, now)
	if err != nil {
		return nil, err
	}
	if len(reservations) > 0 && reservations[0].TicketNumber != svc.CurrentTicket && len(reservations) > e.fanoutLookahead {
		reservations = reservations[:e.fanoutLookahead]
	}
	if len(reservations) == 0 {
		return nil, nil
	}

	batch := make([]models.Notification, 0, len(reservations))
	for _, res := range reservations {
		stale, err := e.store.CountNoLongerValidAfter(ctx, svc.ServiceID, res.TicketNumber, now)
		if err != nil {
			return nil, err
		}
		ahead := queue.PeopleAhead(res, svc, stale, false)
		title, body := composeMessage(e.language, svc.Name, ahead)
		batch = append(batch, models.Notification{
			NotificationID: uuid.NewString(),
			Title:          title,
			Body:           body,
			Recipient:      res.HolderID,
			SubjectKind:    models.SubjectReservation,
			SubjectID:      res.ReservationID,
			CreatedAt:      now,
		})
	}

	if err := e.store.InsertNotifications(ctx, batch); err != nil {
		return nil, err
	}

	if e.publisher != nil {
		for _, notification := range batch {
			publishCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := e.publisher.PublishNotification(publishCtx, notification); err != nil {
				e.logger.Warn("notification hand-off failed",
					"notification_id", notification.NotificationID, "error", err)
			}
			cancel()
		}
	}

	return batch, nil
}
