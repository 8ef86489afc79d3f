package ticketing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/queue"
	"cityq/eticket-service/internal/signature"
	"cityq/eticket-service/internal/store"
)

var (
	ErrQuotaExceeded    = errors.New("daily reservation quota exceeded")
	ErrNotCancelable    = errors.New("reservation no longer cancelable")
	ErrAlreadyConverted = errors.New("physical ticket already converted")
	ErrTicketOutOfRange = errors.New("ticket number outside valid range")
	ErrNoAgencies       = errors.New("no active agency found")
)

// KioskClient reaches the per-agency local server that owns ticket
// numbering.
type KioskClient interface {
	Book(ctx context.Context, agency models.Agency, serviceID int64) (int, error)
	Cancel(ctx context.Context, agency models.Agency, serviceID int64, ticketNumber int) error
}

// Publisher hands a stored notification to the external dispatcher.
// Publishing is best effort; it never undoes the stored batch.
type Publisher interface {
	PublishNotification(ctx context.Context, notification models.Notification) error
}

type Config struct {
	DailyQuota      int
	ResetCutoffHour int
	FanoutLookahead int
	Language        string
}

// Engine orchestrates booking, cancellation, physical conversion, kiosk
// sync, notification fan-out, and agency scoring over the shared store.
type Engine struct {
	store           store.Store
	kiosk           KioskClient
	codec           signature.Codec
	publisher       Publisher
	logger          *slog.Logger
	dailyQuota      int
	resetCutoffHour int
	fanoutLookahead int
	language        string
	now             func() time.Time
}

func New(st store.Store, kioskClient KioskClient, codec signature.Codec, publisher Publisher, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	quota := cfg.DailyQuota
	if quota <= 0 {
		quota = 5
	}
	cutoff := cfg.ResetCutoffHour
	if cutoff <= 0 {
		cutoff = 12
	}
	lookahead := cfg.FanoutLookahead
	if lookahead <= 0 {
		lookahead = 5
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &Engine{
		store:           st,
		kiosk:           kioskClient,
		codec:           codec,
		publisher:       publisher,
		logger:          logger,
		dailyQuota:      quota,
		resetCutoffHour: cutoff,
		fanoutLookahead: lookahead,
		language:        language,
		now:             time.Now,
	}
}

// TicketView is a reservation enriched with its live queue position.
type TicketView struct {
	models.Reservation
	PeopleAhead          int `json:"people_ahead"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

func (e *Engine) ticketView(ctx context.Context, res models.Reservation, svc models.Service, asOf time.Time) (TicketView, error) {
	stale, err := e.store.CountNoLongerValidAfter(ctx, svc.ServiceID, res.TicketNumber, asOf)
	if err != nil {
		return TicketView{}, err
	}
	ahead := queue.PeopleAhead(res, svc, stale, true)
	return TicketView{
		Reservation:          res,
		PeopleAhead:          ahead,
		EstimatedWaitMinutes: queue.EstimatedWait(ahead, svc.AvgMinutesPerPerson),
	}, nil
}
