package store

import (
	"context"
	"time"

	"cityq/eticket-service/internal/models"
)

type CreateReservationInput struct {
	ServiceID    int64
	TicketNumber int
	HolderID     string
	IsPhysical   bool
	CreatedAt    time.Time
	// AdvanceLastBooked records the ticket number as the service's
	// last_booked_ticket in the same transaction. Set for digital
	// bookings; physical conversions leave the counter untouched.
	AdvanceLastBooked bool
}

// ServiceSnapshot is one entry of a kiosk push. Nil fields were absent
// from the batch and must not overwrite local state.
type ServiceSnapshot struct {
	ServiceID        int64 `json:"service_id"`
	CurrentTicket    *int  `json:"current_ticket"`
	LastBookedTicket *int  `json:"last_booked_ticket"`
	Active           *bool `json:"active"`
}

type Session struct {
	SessionID string
	CitizenID string
	ExpiresAt time.Time
}

type Store interface {
	GetAgency(ctx context.Context, agencyID int64) (models.Agency, error)
	ListAgencies(ctx context.Context, municipalityID int64) ([]models.Agency, error)
	GetService(ctx context.Context, serviceID int64) (models.Service, error)
	GetAgencyService(ctx context.Context, agencyID, serviceID int64) (models.Service, error)
	ListServices(ctx context.Context, agencyID int64) ([]models.Service, error)

	CreateReservation(ctx context.Context, input CreateReservationInput) (models.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (models.Reservation, error)
	DeactivateReservation(ctx context.Context, reservationID string) error
	FindReservationByTicket(ctx context.Context, serviceID int64, ticketNumber int) (models.Reservation, bool, error)
	HasValidReservation(ctx context.Context, holderID string, serviceID int64, asOf time.Time) (bool, error)
	CountReservationsOn(ctx context.Context, holderID string, day time.Time) (int, error)
	CountNoLongerValidAfter(ctx context.Context, serviceID int64, ticketNumber int, asOf time.Time) (int, error)
	CountInactive(ctx context.Context, serviceID int64) (int, error)
	CurrentAndUpcoming(ctx context.Context, serviceID int64, currentTicket, limit int, asOf time.Time) ([]models.Reservation, error)

	ApplySnapshot(ctx context.Context, agencyID int64, snap ServiceSnapshot) (models.Service, bool, error)
	ResetServiceCounters(ctx context.Context, serviceID int64, day time.Time) (bool, error)

	InsertNotifications(ctx context.Context, batch []models.Notification) error

	GetSession(ctx context.Context, sessionID string) (Session, error)
	GetAgencyCredential(ctx context.Context, agencyID int64) (string, error)
}
