package ticketing

import (
	"context"

	"cityq/eticket-service/internal/store"
)

// ConvertPhysical turns a paper ticket printed at a kiosk into a
// tracked reservation via its signature. The number was already issued
// by the kiosk, so the service's last_booked_ticket stays untouched.
func (e *Engine) ConvertPhysical(ctx context.Context, citizenID, sig string) (TicketView, error) {
	serviceID, ticketNumber, err := e.codec.Values(sig)
	if err != nil {
		return TicketView{}, err
	}

	svc, err := e.store.GetService(ctx, int64(serviceID))
	if err != nil {
		return TicketView{}, err
	}

	_, exists, err := e.store.FindReservationByTicket(ctx, svc.ServiceID, ticketNumber)
	if err != nil {
		return TicketView{}, err
	}
	if exists {
		// One printed ticket converts exactly once.
		return TicketView{}, ErrAlreadyConverted
	}

	if ticketNumber <= svc.CurrentTicket {
		return TicketView{}, ErrTicketOutOfRange
	}
	if svc.LastBookedTicket == nil || ticketNumber > *svc.LastBookedTicket {
		return TicketView{}, ErrTicketOutOfRange
	}

	now := e.now()
	res, err := e.store.CreateReservation(ctx, store.CreateReservationInput{
		ServiceID:    svc.ServiceID,
		TicketNumber: ticketNumber,
		HolderID:     citizenID,
		CreatedAt:    now,
		IsPhysical:   true,
	})
	if err != nil {
		return TicketView{}, err
	}

	e.logger.Info("physical ticket converted",
		"reservation_id", res.ReservationID,
		"service_id", svc.ServiceID,
		"ticket_number", ticketNumber)

	return e.ticketView(ctx, res, svc, now)
}
