package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cityq/eticket-service/internal/geo"
	"cityq/eticket-service/internal/kiosk"
	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/signature"
	"cityq/eticket-service/internal/store"
	"cityq/eticket-service/internal/ticketing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

// Engine is the slice of the ticketing engine the HTTP surface needs.
type Engine interface {
	ListAgencyServices(ctx context.Context, agencyID int64) ([]ticketing.ServiceView, error)
	Book(ctx context.Context, citizenID string, agencyID, serviceID int64) (ticketing.TicketView, error)
	Cancel(ctx context.Context, citizenID, reservationID string) (bool, error)
	ConvertPhysical(ctx context.Context, citizenID, sig string) (ticketing.TicketView, error)
	PushAll(ctx context.Context, agencyID int64, snapshots []store.ServiceSnapshot) (ticketing.SyncResult, error)
	SendNotifications(ctx context.Context, agencyID, serviceID int64) ([]models.Notification, error)
	ClosestAgency(ctx context.Context, municipalityID int64, origin geo.Point, mode geo.Mode) (ticketing.AgencyScore, error)
}

// SessionStore is the credential slice of the store: citizen sessions
// and per-agency sync tokens.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (store.Session, error)
	GetAgencyCredential(ctx context.Context, agencyID int64) (string, error)
}

type Handler struct {
	engine Engine
	store  SessionStore
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(engine Engine, st SessionStore) *Handler {
	return &Handler{
		engine: engine,
		store:  st,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/agencies/", h.handleAgencies)
	mux.HandleFunc("/reservations/convert-physical", h.handleConvertPhysical)
	mux.HandleFunc("/reservations/", h.handleReservationActions)
	mux.HandleFunc("/eticket-scoring", h.handleScoring)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleAgencies dispatches everything under /agencies/:
//
//	GET   /agencies/{id}/services
//	POST  /agencies/{id}/services/{sid}/book
//	PATCH /agencies/{id}/services/push_all
//	POST  /agencies/{id}/services/{sid}/send_notifications
func (h *Handler) handleAgencies(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/agencies/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[1] != "services" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	agencyID, ok := parseID(w, parts[0], "agency_id")
	if !ok {
		return
	}

	switch len(parts) {
	case 2:
		h.handleListServices(w, r, agencyID)
	case 3:
		if parts[2] != "push_all" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.handlePushAll(w, r, agencyID)
	case 4:
		serviceID, ok := parseID(w, parts[2], "service_id")
		if !ok {
			return
		}
		switch parts[3] {
		case "book":
			h.handleBook(w, r, agencyID, serviceID)
		case "send_notifications":
			h.handleSendNotifications(w, r, agencyID, serviceID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request, agencyID int64) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	views, err := h.engine.ListAgencyServices(r.Context(), agencyID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request, agencyID, serviceID int64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	citizenID, ok := requireCitizen(w, r)
	if !ok {
		return
	}

	view, err := h.engine.Book(r.Context(), citizenID, agencyID, serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type pushAllRequest struct {
	Services []store.ServiceSnapshot `json:"services"`
}

func (h *Handler) handlePushAll(w http.ResponseWriter, r *http.Request, agencyID int64) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAgencyToken(w, r, agencyID) {
		return
	}

	var req pushAllRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	result, err := h.engine.PushAll(r.Context(), agencyID, req.Services)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleSendNotifications(w http.ResponseWriter, r *http.Request, agencyID, serviceID int64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAgencyToken(w, r, agencyID) {
		return
	}

	batch, err := h.engine.SendNotifications(r.Context(), agencyID, serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"notified": len(batch)})
}

// handleReservationActions covers POST /reservations/{id}/cancel.
func (h *Handler) handleReservationActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/reservations/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] != "cancel" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	reservationID := parts[0]
	if reservationID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "reservation id is required")
		return
	}

	citizenID, ok := requireCitizen(w, r)
	if !ok {
		return
	}

	acked, err := h.engine.Cancel(r.Context(), citizenID, reservationID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if !acked {
		// Canceled here, but the kiosk display may lag behind.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "canceled_locally"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

type convertRequest struct {
	Signature string `json:"signature"`
}

func (h *Handler) handleConvertPhysical(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	citizenID, ok := requireCitizen(w, r)
	if !ok {
		return
	}

	var req convertRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Signature = strings.TrimSpace(req.Signature)
	if req.Signature == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "signature is required")
		return
	}

	view, err := h.engine.ConvertPhysical(r.Context(), citizenID, req.Signature)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type scoringRequest struct {
	MunicipalityID int64   `json:"municipality_id"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	Mode           string  `json:"mode"`
}

func (h *Handler) handleScoring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireCitizen(w, r); !ok {
		return
	}

	var req scoringRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	mode, err := geo.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "mode must be walking, bicycle, or driving")
		return
	}

	origin := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	best, err := h.engine.ClosestAgency(r.Context(), req.MunicipalityID, origin, mode)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (h *Handler) requireAgencyToken(w http.ResponseWriter, r *http.Request, agencyID int64) bool {
	token := strings.TrimSpace(r.Header.Get("X-Agency-Token"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing agency token")
		return false
	}
	hash, err := h.store.GetAgencyCredential(r.Context(), agencyID)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) || errors.Is(err, store.ErrAgencyNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid agency token")
			return false
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return false
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid agency token")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, raw, field string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", field+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrAgencyNotFound):
		return http.StatusNotFound, "agency_not_found", "agency not found"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrReservationNotFound):
		return http.StatusNotFound, "reservation_not_found", "reservation not found"
	case errors.Is(err, ticketing.ErrNoAgencies):
		return http.StatusNotFound, "no_agencies", "no active agency found"
	case errors.Is(err, ticketing.ErrNotCancelable):
		return http.StatusNotFound, "not_cancelable", "reservation can no longer be canceled"
	case errors.Is(err, ticketing.ErrTicketOutOfRange):
		return http.StatusNotFound, "ticket_out_of_range", "ticket number outside the issued range"
	case errors.Is(err, store.ErrAlreadyBooked):
		return http.StatusBadRequest, "already_booked", "an active e-ticket for this service already exists today"
	case errors.Is(err, ticketing.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded", "daily reservation quota exceeded"
	case errors.Is(err, ticketing.ErrAlreadyConverted):
		return http.StatusForbidden, "already_converted", "this physical ticket was already converted"
	case errors.Is(err, signature.ErrBadLength):
		return http.StatusBadRequest, "invalid_signature", "malformed ticket signature"
	case errors.Is(err, geo.ErrUnknownMode):
		return http.StatusBadRequest, "invalid_request", "unknown transportation mode"
	case errors.Is(err, models.ErrInvalidWindow):
		return http.StatusBadRequest, "invalid_window", "invalid opening hours window"
	case errors.Is(err, kiosk.ErrUnavailable):
		return http.StatusInternalServerError, "kiosk_unavailable", "agency kiosk server unreachable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
