package queue

import (
	"time"

	"cityq/eticket-service/internal/models"
)

// Pure queue arithmetic over Service and Reservation state. Validity is
// day-relative, so every predicate that depends on the calendar takes
// an explicit asOf instant instead of reading the clock.

// PeopleAhead reports how many holders stand between the reservation
// and the counter. staleAfter is the count of no-longer-valid
// reservations of the same service with a higher ticket number, as
// reported by the store for the same asOf instant.
func PeopleAhead(res models.Reservation, svc models.Service, staleAfter int, ignoreCurrent bool) int {
	ahead := res.TicketNumber - svc.CurrentTicket - staleAfter
	if ignoreCurrent {
		ahead--
	}
	if ahead < 0 {
		return 0
	}
	return ahead
}

// PeopleWaiting reports how many issued tickets are still waiting to be
// served. inactive is the count of the service's inactive reservations.
func PeopleWaiting(svc models.Service, inactive int) int {
	if svc.LastBookedTicket == nil {
		return 0
	}
	waiting := *svc.LastBookedTicket - svc.CurrentTicket - inactive
	if waiting < 0 {
		return 0
	}
	return waiting
}

// StillValid reports whether the reservation's turn has not passed yet.
func StillValid(res models.Reservation, svc models.Service) bool {
	return res.TicketNumber >= svc.CurrentTicket
}

// ValidToday reports whether the reservation is active, still valid,
// and was created on asOf's calendar day.
func ValidToday(res models.Reservation, svc models.Service, asOf time.Time) bool {
	return res.IsActive && StillValid(res, svc) && SameDay(res.CreatedAt, asOf)
}

// NoLongerValid is the logical complement of ValidToday: canceled,
// already served, or left over from a previous day.
func NoLongerValid(res models.Reservation, svc models.Service, asOf time.Time) bool {
	return !ValidToday(res, svc, asOf)
}

// EstimatedWait converts a queue position into minutes using the
// service's average handling time.
func EstimatedWait(peopleAhead, avgMinutesPerPerson int) int {
	if peopleAhead <= 0 || avgMinutesPerPerson <= 0 {
		return 0
	}
	return peopleAhead * avgMinutesPerPerson
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
