package models

import "time"

// SubjectKind tags the entity a notification is about. The queue engine
// only emits reservation subjects; the wider backend reuses the same
// shape for its other entities.
type SubjectKind string

const (
	SubjectReservation SubjectKind = "reservation"
)

// Notification is produced by the fan-out and handed to the external
// dispatcher. Ownership passes at insert time; delivery is not this
// engine's concern.
type Notification struct {
	NotificationID string      `json:"notification_id"`
	Title          string      `json:"title"`
	Body           string      `json:"body"`
	Recipient      string      `json:"recipient"`
	SubjectKind    SubjectKind `json:"subject_kind"`
	SubjectID      string      `json:"subject_id"`
	CreatedAt      time.Time   `json:"created_at"`
}
