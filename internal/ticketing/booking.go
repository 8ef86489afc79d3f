package ticketing

import (
	"context"
	"fmt"

	"cityq/eticket-service/internal/store"
)

// Book issues a digital e-ticket for the citizen. The agency's kiosk
// server remains the single arbiter of numbering: nothing is persisted
// unless the kiosk handed out a number.
func (e *Engine) Book(ctx context.Context, citizenID string, agencyID, serviceID int64) (TicketView, error) {
	svc, err := e.store.GetAgencyService(ctx, agencyID, serviceID)
	if err != nil {
		return TicketView{}, err
	}
	agency, err := e.store.GetAgency(ctx, svc.AgencyID)
	if err != nil {
		return TicketView{}, err
	}
	if !agency.Active {
		return TicketView{}, store.ErrAgencyNotFound
	}

	now := e.now()

	booked, err := e.store.HasValidReservation(ctx, citizenID, svc.ServiceID, now)
	if err != nil {
		return TicketView{}, err
	}
	if booked {
		return TicketView{}, store.ErrAlreadyBooked
	}

	todays, err := e.store.CountReservationsOn(ctx, citizenID, now)
	if err != nil {
		return TicketView{}, err
	}
	if todays >= e.dailyQuota {
		return TicketView{}, ErrQuotaExceeded
	}

	ticketNumber, err := e.kiosk.Book(ctx, agency, svc.ServiceID)
	if err != nil {
		// Fatal: without a kiosk-issued number there is no reservation.
		return TicketView{}, fmt.Errorf("kiosk booking for service %d: %w", svc.ServiceID, err)
	}

	res, err := e.store.CreateReservation(ctx, store.CreateReservationInput{
		ServiceID:         svc.ServiceID,
		TicketNumber:      ticketNumber,
		HolderID:          citizenID,
		CreatedAt:         now,
		AdvanceLastBooked: true,
	})
	if err != nil {
		return TicketView{}, err
	}

	e.logger.Info("reservation created",
		"reservation_id", res.ReservationID,
		"service_id", svc.ServiceID,
		"ticket_number", ticketNumber)

	svc.LastBookedTicket = &ticketNumber
	return e.ticketView(ctx, res, svc, now)
}
