package models

import "time"

// Reservation is a citizen's claim to a queue position. The ticket
// number always comes from the agency's kiosk server and is never
// generated locally. Reservations are never deleted; cancellation only
// flips IsActive.
type Reservation struct {
	ReservationID string    `json:"reservation_id"`
	ServiceID     int64     `json:"service_id"`
	TicketNumber  int       `json:"ticket_number"`
	HolderID      string    `json:"holder_id"`
	CreatedAt     time.Time `json:"created_at"`
	IsActive      bool      `json:"is_active"`
	IsPhysical    bool      `json:"is_physical"`
}
