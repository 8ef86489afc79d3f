package models

import "time"

// Service is a single queue within an agency. The first character of
// the name is the queue prefix, unique among the agency's services.
// CurrentTicket and LastBookedTicket mirror the authoritative state on
// the agency's kiosk server; LastBookedTicket is nil before the first
// booking.
type Service struct {
	ServiceID           int64      `json:"service_id"`
	AgencyID            int64      `json:"agency_id"`
	Name                string     `json:"name"`
	CurrentTicket       int        `json:"current_ticket"`
	LastBookedTicket    *int       `json:"last_booked_ticket,omitempty"`
	AvgMinutesPerPerson int        `json:"avg_time_per_person"`
	Active              bool       `json:"active"`
	LastResetOn         *time.Time `json:"-"`
}

// QueuePrefix returns the single-character queue prefix of the service.
func (s Service) QueuePrefix() string {
	if s.Name == "" {
		return ""
	}
	return s.Name[:1]
}
