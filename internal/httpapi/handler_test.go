package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cityq/eticket-service/internal/geo"
	"cityq/eticket-service/internal/kiosk"
	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/signature"
	"cityq/eticket-service/internal/store"
	"cityq/eticket-service/internal/ticketing"

	"golang.org/x/crypto/bcrypt"
)

type fakeEngine struct {
	listFn    func(ctx context.Context, agencyID int64) ([]ticketing.ServiceView, error)
	bookFn    func(ctx context.Context, citizenID string, agencyID, serviceID int64) (ticketing.TicketView, error)
	cancelFn  func(ctx context.Context, citizenID, reservationID string) (bool, error)
	convertFn func(ctx context.Context, citizenID, sig string) (ticketing.TicketView, error)
	pushFn    func(ctx context.Context, agencyID int64, snapshots []store.ServiceSnapshot) (ticketing.SyncResult, error)
	notifyFn  func(ctx context.Context, agencyID, serviceID int64) ([]models.Notification, error)
	scoreFn   func(ctx context.Context, municipalityID int64, origin geo.Point, mode geo.Mode) (ticketing.AgencyScore, error)
}

func (f fakeEngine) ListAgencyServices(ctx context.Context, agencyID int64) ([]ticketing.ServiceView, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, agencyID)
}

func (f fakeEngine) Book(ctx context.Context, citizenID string, agencyID, serviceID int64) (ticketing.TicketView, error) {
	if f.bookFn == nil {
		return ticketing.TicketView{}, nil
	}
	return f.bookFn(ctx, citizenID, agencyID, serviceID)
}

func (f fakeEngine) Cancel(ctx context.Context, citizenID, reservationID string) (bool, error) {
	if f.cancelFn == nil {
		return true, nil
	}
	return f.cancelFn(ctx, citizenID, reservationID)
}

func (f fakeEngine) ConvertPhysical(ctx context.Context, citizenID, sig string) (ticketing.TicketView, error) {
	if f.convertFn == nil {
		return ticketing.TicketView{}, nil
	}
	return f.convertFn(ctx, citizenID, sig)
}

func (f fakeEngine) PushAll(ctx context.Context, agencyID int64, snapshots []store.ServiceSnapshot) (ticketing.SyncResult, error) {
	if f.pushFn == nil {
		return ticketing.SyncResult{}, nil
	}
	return f.pushFn(ctx, agencyID, snapshots)
}

func (f fakeEngine) SendNotifications(ctx context.Context, agencyID, serviceID int64) ([]models.Notification, error) {
	if f.notifyFn == nil {
		return nil, nil
	}
	return f.notifyFn(ctx, agencyID, serviceID)
}

func (f fakeEngine) ClosestAgency(ctx context.Context, municipalityID int64, origin geo.Point, mode geo.Mode) (ticketing.AgencyScore, error) {
	if f.scoreFn == nil {
		return ticketing.AgencyScore{}, nil
	}
	return f.scoreFn(ctx, municipalityID, origin, mode)
}

type fakeSessions struct {
	sessions    map[string]store.Session
	credentials map[int64]string
}

func (f fakeSessions) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (f fakeSessions) GetAgencyCredential(ctx context.Context, agencyID int64) (string, error) {
	hash, ok := f.credentials[agencyID]
	if !ok {
		return "", store.ErrCredentialNotFound
	}
	return hash, nil
}

func newTestServer(engine fakeEngine, sessions fakeSessions) http.Handler {
	handler := NewHandler(engine, sessions)
	return AuthMiddleware(sessions, handler.Routes())
}

func citizenSessions() fakeSessions {
	return fakeSessions{
		sessions: map[string]store.Session{
			"sess-1": {SessionID: "sess-1", CitizenID: "citizen-1"},
		},
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	if body == "" {
		body = "{}"
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sessionHeader() map[string]string {
	return map[string]string{"X-Session-ID": "sess-1"}
}

func TestBookCreated(t *testing.T) {
	engine := fakeEngine{
		bookFn: func(ctx context.Context, citizenID string, agencyID, serviceID int64) (ticketing.TicketView, error) {
			if citizenID != "citizen-1" {
				t.Fatalf("citizen id=%q", citizenID)
			}
			if agencyID != 1 || serviceID != 7 {
				t.Fatalf("ids=%d/%d", agencyID, serviceID)
			}
			return ticketing.TicketView{
				Reservation: models.Reservation{ReservationID: "res-1", TicketNumber: 21},
				PeopleAhead: 11,
			}, nil
		},
	}

	rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/agencies/1/services/7/book", "", sessionHeader())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"people_ahead":11`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestBookRequiresSession(t *testing.T) {
	rec := doRequest(t, newTestServer(fakeEngine{}, citizenSessions()), http.MethodPost, "/agencies/1/services/7/book", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
}

func TestBookErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"already booked", store.ErrAlreadyBooked, http.StatusBadRequest},
		{"quota", ticketing.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"unknown service", store.ErrServiceNotFound, http.StatusNotFound},
		{"unknown agency", store.ErrAgencyNotFound, http.StatusNotFound},
		{"kiosk down", fmt.Errorf("kiosk booking for service 7: %w", kiosk.ErrUnavailable), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := fakeEngine{
				bookFn: func(ctx context.Context, citizenID string, agencyID, serviceID int64) (ticketing.TicketView, error) {
					return ticketing.TicketView{}, tc.err
				},
			}
			rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/agencies/1/services/7/book", "", sessionHeader())
			if rec.Code != tc.want {
				t.Fatalf("status=%d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestListServicesIsPublic(t *testing.T) {
	engine := fakeEngine{
		listFn: func(ctx context.Context, agencyID int64) ([]ticketing.ServiceView, error) {
			return []ticketing.ServiceView{{Service: models.Service{ServiceID: 7, Name: "Civil registry"}, PeopleWaiting: 4}}, nil
		},
	}

	rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodGet, "/agencies/1/services", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 without a session", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"people_waiting":4`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestCancelStatuses(t *testing.T) {
	cases := []struct {
		name  string
		acked bool
		err   error
		want  int
	}{
		{"kiosk acknowledged", true, nil, http.StatusOK},
		{"local only", false, nil, http.StatusAccepted},
		{"not found", false, store.ErrReservationNotFound, http.StatusNotFound},
		{"already served", false, ticketing.ErrNotCancelable, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := fakeEngine{
				cancelFn: func(ctx context.Context, citizenID, reservationID string) (bool, error) {
					return tc.acked, tc.err
				},
			}
			rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/reservations/res-1/cancel", "", sessionHeader())
			if rec.Code != tc.want {
				t.Fatalf("status=%d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestConvertPhysicalCreated(t *testing.T) {
	engine := fakeEngine{
		convertFn: func(ctx context.Context, citizenID, sig string) (ticketing.TicketView, error) {
			if sig != "z07z0f" {
				t.Fatalf("signature=%q", sig)
			}
			return ticketing.TicketView{Reservation: models.Reservation{TicketNumber: 15, IsPhysical: true}}, nil
		},
	}

	rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/reservations/convert-physical", `{"signature":"z07z0f"}`, sessionHeader())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestConvertPhysicalErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"already converted", ticketing.ErrAlreadyConverted, http.StatusForbidden},
		{"out of range", ticketing.ErrTicketOutOfRange, http.StatusNotFound},
		{"bad signature", signature.ErrBadLength, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := fakeEngine{
				convertFn: func(ctx context.Context, citizenID, sig string) (ticketing.TicketView, error) {
					return ticketing.TicketView{}, tc.err
				},
			}
			rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/reservations/convert-physical", `{"signature":"z07z0f"}`, sessionHeader())
			if rec.Code != tc.want {
				t.Fatalf("status=%d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestScoring(t *testing.T) {
	engine := fakeEngine{
		scoreFn: func(ctx context.Context, municipalityID int64, origin geo.Point, mode geo.Mode) (ticketing.AgencyScore, error) {
			if mode != geo.ModeWalking {
				t.Fatalf("mode=%q", mode)
			}
			return ticketing.AgencyScore{Agency: models.Agency{AgencyID: 1}, Score: 17.5}, nil
		},
	}

	rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/eticket-scoring", `{"municipality_id":10,"lat":41.9,"lon":12.5,"mode":"walking"}`, sessionHeader())
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestScoringRejectsUnknownMode(t *testing.T) {
	rec := doRequest(t, newTestServer(fakeEngine{}, citizenSessions()), http.MethodPost, "/eticket-scoring", `{"lat":41.9,"lon":12.5,"mode":"teleport"}`, sessionHeader())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestScoringNoAgencies(t *testing.T) {
	engine := fakeEngine{
		scoreFn: func(ctx context.Context, municipalityID int64, origin geo.Point, mode geo.Mode) (ticketing.AgencyScore, error) {
			return ticketing.AgencyScore{}, ticketing.ErrNoAgencies
		},
	}
	rec := doRequest(t, newTestServer(engine, citizenSessions()), http.MethodPost, "/eticket-scoring", `{"lat":41.9,"lon":12.5,"mode":"driving"}`, sessionHeader())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestPushAllRequiresAgencyToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("kiosk-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	sessions := fakeSessions{credentials: map[int64]string{1: string(hash)}}

	applied := false
	engine := fakeEngine{
		pushFn: func(ctx context.Context, agencyID int64, snapshots []store.ServiceSnapshot) (ticketing.SyncResult, error) {
			applied = true
			return ticketing.SyncResult{Applied: len(snapshots)}, nil
		},
	}
	server := newTestServer(engine, sessions)
	body := `{"services":[{"service_id":7,"current_ticket":3}]}`

	rec := doRequest(t, server, http.MethodPatch, "/agencies/1/services/push_all", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d, want 401", rec.Code)
	}

	rec = doRequest(t, server, http.MethodPatch, "/agencies/1/services/push_all", body, map[string]string{"X-Agency-Token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status=%d, want 401", rec.Code)
	}
	if applied {
		t.Fatal("push must not run without a valid token")
	}

	rec = doRequest(t, server, http.MethodPatch, "/agencies/1/services/push_all", body, map[string]string{"X-Agency-Token": "kiosk-secret"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid token status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !applied {
		t.Fatal("push did not reach the engine")
	}
}

func TestSendNotificationsCreated(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("kiosk-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	sessions := fakeSessions{credentials: map[int64]string{1: string(hash)}}
	engine := fakeEngine{
		notifyFn: func(ctx context.Context, agencyID, serviceID int64) ([]models.Notification, error) {
			return []models.Notification{{NotificationID: "n-1"}, {NotificationID: "n-2"}}, nil
		},
	}

	rec := doRequest(t, newTestServer(engine, sessions), http.MethodPost, "/agencies/1/services/7/send_notifications", "", map[string]string{"X-Agency-Token": "kiosk-secret"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"notified":2`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestBadAgencyIDRejected(t *testing.T) {
	rec := doRequest(t, newTestServer(fakeEngine{}, citizenSessions()), http.MethodGet, "/agencies/not-a-number/services", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, newTestServer(fakeEngine{}, citizenSessions()), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
}
