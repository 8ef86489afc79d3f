package store

import "errors"

var (
	ErrAgencyNotFound      = errors.New("agency not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyBooked       = errors.New("holder already has an e-ticket for this service")
	ErrSessionNotFound     = errors.New("session not found")
	ErrCredentialNotFound  = errors.New("agency credential not found")
)
