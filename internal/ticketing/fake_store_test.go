package ticketing

import (
	"context"
	"time"

	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/store"
)

type fakeStore struct {
	getAgencyFn      func(ctx context.Context, agencyID int64) (models.Agency, error)
	listAgenciesFn   func(ctx context.Context, municipalityID int64) ([]models.Agency, error)
	getServiceFn     func(ctx context.Context, serviceID int64) (models.Service, error)
	getAgencySvcFn   func(ctx context.Context, agencyID, serviceID int64) (models.Service, error)
	listServicesFn   func(ctx context.Context, agencyID int64) ([]models.Service, error)
	createFn         func(ctx context.Context, input store.CreateReservationInput) (models.Reservation, error)
	getReservationFn func(ctx context.Context, reservationID string) (models.Reservation, error)
	deactivateFn     func(ctx context.Context, reservationID string) error
	findByTicketFn   func(ctx context.Context, serviceID int64, ticketNumber int) (models.Reservation, bool, error)
	hasValidFn       func(ctx context.Context, holderID string, serviceID int64, asOf time.Time) (bool, error)
	countOnFn        func(ctx context.Context, holderID string, day time.Time) (int, error)
	countStaleFn     func(ctx context.Context, serviceID int64, ticketNumber int, asOf time.Time) (int, error)
	countInactiveFn  func(ctx context.Context, serviceID int64) (int, error)
	upcomingFn       func(ctx context.Context, serviceID int64, currentTicket, limit int, asOf time.Time) ([]models.Reservation, error)
	applySnapshotFn  func(ctx context.Context, agencyID int64, snap store.ServiceSnapshot) (models.Service, bool, error)
	resetFn          func(ctx context.Context, serviceID int64, day time.Time) (bool, error)
	insertNotifsFn   func(ctx context.Context, batch []models.Notification) error
	getSessionFn     func(ctx context.Context, sessionID string) (store.Session, error)
	getCredentialFn  func(ctx context.Context, agencyID int64) (string, error)
}

func (f fakeStore) GetAgency(ctx context.Context, agencyID int64) (models.Agency, error) {
	if f.getAgencyFn == nil {
		return models.Agency{AgencyID: agencyID, Active: true}, nil
	}
	return f.getAgencyFn(ctx, agencyID)
}

func (f fakeStore) ListAgencies(ctx context.Context, municipalityID int64) ([]models.Agency, error) {
	if f.listAgenciesFn == nil {
		return nil, nil
	}
	return f.listAgenciesFn(ctx, municipalityID)
}

func (f fakeStore) GetService(ctx context.Context, serviceID int64) (models.Service, error) {
	if f.getServiceFn == nil {
		return models.Service{ServiceID: serviceID, Active: true}, nil
	}
	return f.getServiceFn(ctx, serviceID)
}

func (f fakeStore) GetAgencyService(ctx context.Context, agencyID, serviceID int64) (models.Service, error) {
	if f.getAgencySvcFn == nil {
		return models.Service{ServiceID: serviceID, AgencyID: agencyID, Active: true}, nil
	}
	return f.getAgencySvcFn(ctx, agencyID, serviceID)
}

func (f fakeStore) ListServices(ctx context.Context, agencyID int64) ([]models.Service, error) {
	if f.listServicesFn == nil {
		return nil, nil
	}
	return f.listServicesFn(ctx, agencyID)
}

func (f fakeStore) CreateReservation(ctx context.Context, input store.CreateReservationInput) (models.Reservation, error) {
	if f.createFn == nil {
		return models.Reservation{
			ReservationID: "res-1",
			ServiceID:     input.ServiceID,
			TicketNumber:  input.TicketNumber,
			HolderID:      input.HolderID,
			CreatedAt:     input.CreatedAt,
			IsActive:      true,
			IsPhysical:    input.IsPhysical,
		}, nil
	}
	return f.createFn(ctx, input)
}

func (f fakeStore) GetReservation(ctx context.Context, reservationID string) (models.Reservation, error) {
	if f.getReservationFn == nil {
		return models.Reservation{}, store.ErrReservationNotFound
	}
	return f.getReservationFn(ctx, reservationID)
}

func (f fakeStore) DeactivateReservation(ctx context.Context, reservationID string) error {
	if f.deactivateFn == nil {
		return nil
	}
	return f.deactivateFn(ctx, reservationID)
}

func (f fakeStore) FindReservationByTicket(ctx context.Context, serviceID int64, ticketNumber int) (models.Reservation, bool, error) {
	if f.findByTicketFn == nil {
		return models.Reservation{}, false, nil
	}
	return f.findByTicketFn(ctx, serviceID, ticketNumber)
}

func (f fakeStore) HasValidReservation(ctx context.Context, holderID string, serviceID int64, asOf time.Time) (bool, error) {
	if f.hasValidFn == nil {
		return false, nil
	}
	return f.hasValidFn(ctx, holderID, serviceID, asOf)
}

func (f fakeStore) CountReservationsOn(ctx context.Context, holderID string, day time.Time) (int, error) {
	if f.countOnFn == nil {
		return 0, nil
	}
	return f.countOnFn(ctx, holderID, day)
}

func (f fakeStore) CountNoLongerValidAfter(ctx context.Context, serviceID int64, ticketNumber int, asOf time.Time) (int, error) {
	if f.countStaleFn == nil {
		return 0, nil
	}
	return f.countStaleFn(ctx, serviceID, ticketNumber, asOf)
}

func (f fakeStore) CountInactive(ctx context.Context, serviceID int64) (int, error) {
	if f.countInactiveFn == nil {
		return 0, nil
	}
	return f.countInactiveFn(ctx, serviceID)
}

func (f fakeStore) CurrentAndUpcoming(ctx context.Context, serviceID int64, currentTicket, limit int, asOf time.Time) ([]models.Reservation, error) {
	if f.upcomingFn == nil {
		return nil, nil
	}
	return f.upcomingFn(ctx, serviceID, currentTicket, limit, asOf)
}

func (f fakeStore) ApplySnapshot(ctx context.Context, agencyID int64, snap store.ServiceSnapshot) (models.Service, bool, error) {
	if f.applySnapshotFn == nil {
		return models.Service{}, false, nil
	}
	return f.applySnapshotFn(ctx, agencyID, snap)
}

func (f fakeStore) ResetServiceCounters(ctx context.Context, serviceID int64, day time.Time) (bool, error) {
	if f.resetFn == nil {
		return false, nil
	}
	return f.resetFn(ctx, serviceID, day)
}

func (f fakeStore) InsertNotifications(ctx context.Context, batch []models.Notification) error {
	if f.insertNotifsFn == nil {
		return nil
	}
	return f.insertNotifsFn(ctx, batch)
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	if f.getSessionFn == nil {
		return store.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

func (f fakeStore) GetAgencyCredential(ctx context.Context, agencyID int64) (string, error) {
	if f.getCredentialFn == nil {
		return "", store.ErrCredentialNotFound
	}
	return f.getCredentialFn(ctx, agencyID)
}

type fakeKiosk struct {
	bookFn   func(ctx context.Context, agency models.Agency, serviceID int64) (int, error)
	cancelFn func(ctx context.Context, agency models.Agency, serviceID int64, ticketNumber int) error
}

func (f fakeKiosk) Book(ctx context.Context, agency models.Agency, serviceID int64) (int, error) {
	if f.bookFn == nil {
		return 1, nil
	}
	return f.bookFn(ctx, agency, serviceID)
}

func (f fakeKiosk) Cancel(ctx context.Context, agency models.Agency, serviceID int64, ticketNumber int) error {
	if f.cancelFn == nil {
		return nil
	}
	return f.cancelFn(ctx, agency, serviceID, ticketNumber)
}
