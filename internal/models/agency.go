package models

import (
	"errors"
	"time"
)

// Agency is a physical municipal service counter location with its own
// on-site kiosk server. The kiosk server is the authority for ticket
// numbering; this engine only holds the address needed to reach it.
type Agency struct {
	AgencyID       int64   `json:"agency_id"`
	Name           string  `json:"name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Active         bool    `json:"active"`
	LocalServer    string  `json:"local_server"`
	LocalServerTLS bool    `json:"local_server_tls"`
	MunicipalityID int64   `json:"municipality_id"`
	Hours          OpeningHours `json:"hours"`
}

// OpeningHours carries the weekday windows (two optional sub-windows)
// and the Saturday windows. Agencies are closed on Sunday.
type OpeningHours struct {
	Weekday  Window  `json:"weekday"`
	Weekday2 Window  `json:"weekday2"`
	Saturday Window  `json:"saturday"`
	Saturday2 Window `json:"saturday2"`
}

// Window is an optional opening sub-window, bounds as "HH:MM" strings.
type Window struct {
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
}

var ErrInvalidWindow = errors.New("opening window start after end")

// Validate rejects a window whose start is after its end. A half-open
// window (only one bound set) is allowed.
func (w Window) Validate() error {
	if w.From == nil || w.To == nil {
		return nil
	}
	from, err := time.Parse("15:04", *w.From)
	if err != nil {
		return ErrInvalidWindow
	}
	to, err := time.Parse("15:04", *w.To)
	if err != nil {
		return ErrInvalidWindow
	}
	if from.After(to) {
		return ErrInvalidWindow
	}
	return nil
}

func (h OpeningHours) Validate() error {
	for _, w := range []Window{h.Weekday, h.Weekday2, h.Saturday, h.Saturday2} {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}
