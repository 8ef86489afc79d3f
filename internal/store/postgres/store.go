package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed implementation. The reservations table
// carries a partial unique index so the one-active-reservation-per
// (holder, service, day) rule holds even when two requests race past
// the application-level check:
//
//	CREATE UNIQUE INDEX reservations_one_active
//	ON reservations (holder_id, service_id, (created_at::date))
//	WHERE is_active;
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const uniqueViolation = "23505"

const agencyColumns = `
	agency_id, name, latitude, longitude, active, local_server, local_server_tls, municipality_id,
	weekday_from, weekday_to, weekday2_from, weekday2_to,
	saturday_from, saturday_to, saturday2_from, saturday2_to
`

func (s *Store) GetAgency(ctx context.Context, agencyID int64) (models.Agency, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+agencyColumns+`
		FROM agencies
		WHERE agency_id = $1
	`, agencyID)
	agency, err := scanAgency(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Agency{}, store.ErrAgencyNotFound
		}
		return models.Agency{}, err
	}
	return agency, nil
}

func (s *Store) ListAgencies(ctx context.Context, municipalityID int64) ([]models.Agency, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+agencyColumns+`
		FROM agencies
		WHERE municipality_id = $1 AND active = TRUE
		ORDER BY agency_id ASC
	`, municipalityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agencies []models.Agency
	for rows.Next() {
		agency, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, agency)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agencies, nil
}

const serviceColumns = `
	service_id, agency_id, name, current_ticket, last_booked_ticket, avg_time_per_person, active, last_reset_on
`

func (s *Store) GetService(ctx context.Context, serviceID int64) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE service_id = $1 AND active = TRUE
	`, serviceID)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return svc, nil
}

func (s *Store) GetAgencyService(ctx context.Context, agencyID, serviceID int64) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE service_id = $1 AND agency_id = $2 AND active = TRUE
	`, serviceID, agencyID)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context, agencyID int64) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE agency_id = $1 AND active = TRUE
		ORDER BY name ASC
	`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) CreateReservation(ctx context.Context, input store.CreateReservationInput) (models.Reservation, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Reservation{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if input.AdvanceLastBooked {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, `
			UPDATE services
			SET last_booked_ticket = $1
			WHERE service_id = $2 AND active = TRUE
		`, input.TicketNumber, input.ServiceID)
		if err != nil {
			return models.Reservation{}, err
		}
		if tag.RowsAffected() == 0 {
			err = store.ErrServiceNotFound
			return models.Reservation{}, err
		}
	}

	var reservation models.Reservation
	row := tx.QueryRow(ctx, `
		INSERT INTO reservations (reservation_id, service_id, ticket_number, holder_id, created_at, is_active, is_physical)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, TRUE, $5)
		RETURNING reservation_id, service_id, ticket_number, holder_id, created_at, is_active, is_physical
	`, input.ServiceID, input.TicketNumber, input.HolderID, createdAt, input.IsPhysical)
	if err = row.Scan(&reservation.ReservationID, &reservation.ServiceID, &reservation.TicketNumber,
		&reservation.HolderID, &reservation.CreatedAt, &reservation.IsActive, &reservation.IsPhysical); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = store.ErrAlreadyBooked
		}
		return models.Reservation{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Reservation{}, err
	}
	return reservation, nil
}

func (s *Store) GetReservation(ctx context.Context, reservationID string) (models.Reservation, error) {
	var reservation models.Reservation
	row := s.pool.QueryRow(ctx, `
		SELECT reservation_id, service_id, ticket_number, holder_id, created_at, is_active, is_physical
		FROM reservations
		WHERE reservation_id = $1
	`, reservationID)
	if err := row.Scan(&reservation.ReservationID, &reservation.ServiceID, &reservation.TicketNumber,
		&reservation.HolderID, &reservation.CreatedAt, &reservation.IsActive, &reservation.IsPhysical); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reservation{}, store.ErrReservationNotFound
		}
		return models.Reservation{}, err
	}
	return reservation, nil
}

func (s *Store) DeactivateReservation(ctx context.Context, reservationID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations
		SET is_active = FALSE
		WHERE reservation_id = $1 AND is_active = TRUE
	`, reservationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrReservationNotFound
	}
	return nil
}

func (s *Store) FindReservationByTicket(ctx context.Context, serviceID int64, ticketNumber int) (models.Reservation, bool, error) {
	var reservation models.Reservation
	row := s.pool.QueryRow(ctx, `
		SELECT reservation_id, service_id, ticket_number, holder_id, created_at, is_active, is_physical
		FROM reservations
		WHERE service_id = $1 AND ticket_number = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, serviceID, ticketNumber)
	if err := row.Scan(&reservation.ReservationID, &reservation.ServiceID, &reservation.TicketNumber,
		&reservation.HolderID, &reservation.CreatedAt, &reservation.IsActive, &reservation.IsPhysical); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reservation{}, false, nil
		}
		return models.Reservation{}, false, err
	}
	return reservation, true, nil
}

func (s *Store) HasValidReservation(ctx context.Context, holderID string, serviceID int64, asOf time.Time) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM reservations r
			JOIN services s ON s.service_id = r.service_id
			WHERE r.holder_id = $1 AND r.service_id = $2
				AND r.is_active = TRUE
				AND r.ticket_number >= s.current_ticket
				AND r.created_at::date = $3::date
		)
	`, holderID, serviceID, asOf)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) CountReservationsOn(ctx context.Context, holderID string, day time.Time) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM reservations
		WHERE holder_id = $1 AND created_at::date = $2::date
	`, holderID, day)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CountNoLongerValidAfter(ctx context.Context, serviceID int64, ticketNumber int, asOf time.Time) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM reservations r
		JOIN services s ON s.service_id = r.service_id
		WHERE r.service_id = $1 AND r.ticket_number > $2
			AND (r.is_active = FALSE
				OR r.ticket_number < s.current_ticket
				OR r.created_at::date < $3::date)
	`, serviceID, ticketNumber, asOf)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CountInactive(ctx context.Context, serviceID int64) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM reservations
		WHERE service_id = $1 AND is_active = FALSE
	`, serviceID)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CurrentAndUpcoming(ctx context.Context, serviceID int64, currentTicket, limit int, asOf time.Time) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT reservation_id, service_id, ticket_number, holder_id, created_at, is_active, is_physical
		FROM reservations
		WHERE service_id = $1 AND is_active = TRUE
			AND ticket_number >= $2
			AND created_at::date = $3::date
		ORDER BY ticket_number ASC
		LIMIT $4
	`, serviceID, currentTicket, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var reservation models.Reservation
		if err := rows.Scan(&reservation.ReservationID, &reservation.ServiceID, &reservation.TicketNumber,
			&reservation.HolderID, &reservation.CreatedAt, &reservation.IsActive, &reservation.IsPhysical); err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *Store) ApplySnapshot(ctx context.Context, agencyID int64, snap store.ServiceSnapshot) (models.Service, bool, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE services
		SET current_ticket = COALESCE($3, current_ticket),
			last_booked_ticket = COALESCE($4, last_booked_ticket),
			active = COALESCE($5, active)
		WHERE service_id = $1 AND agency_id = $2
		RETURNING `+serviceColumns+`
	`, snap.ServiceID, agencyID, snap.CurrentTicket, snap.LastBookedTicket, snap.Active)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown service ids in a push are ignored, never created.
			return models.Service{}, false, nil
		}
		return models.Service{}, false, err
	}
	return svc, true, nil
}

func (s *Store) ResetServiceCounters(ctx context.Context, serviceID int64, day time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE services
		SET current_ticket = 0,
			last_booked_ticket = NULL,
			last_reset_on = $2::date
		WHERE service_id = $1
			AND (last_reset_on IS NULL OR last_reset_on < $2::date)
	`, serviceID, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) InsertNotifications(ctx context.Context, batch []models.Notification) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, n := range batch {
		if _, err = tx.Exec(ctx, `
			INSERT INTO notifications (notification_id, title, body, recipient, subject_kind, subject_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, n.NotificationID, n.Title, n.Body, n.Recipient, string(n.SubjectKind), n.SubjectID, n.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, citizen_id, expires_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > NOW()
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.CitizenID, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	return session, nil
}

func (s *Store) GetAgencyCredential(ctx context.Context, agencyID int64) (string, error) {
	var hash sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT sync_credential_hash
		FROM agencies
		WHERE agency_id = $1
	`, agencyID)
	if err := row.Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrAgencyNotFound
		}
		return "", err
	}
	if !hash.Valid || hash.String == "" {
		return "", store.ErrCredentialNotFound
	}
	return hash.String, nil
}

func scanAgency(row pgx.Row) (models.Agency, error) {
	var agency models.Agency
	var windows [8]sql.NullString
	if err := row.Scan(&agency.AgencyID, &agency.Name, &agency.Latitude, &agency.Longitude,
		&agency.Active, &agency.LocalServer, &agency.LocalServerTLS, &agency.MunicipalityID,
		&windows[0], &windows[1], &windows[2], &windows[3],
		&windows[4], &windows[5], &windows[6], &windows[7]); err != nil {
		return models.Agency{}, err
	}
	agency.Hours = models.OpeningHours{
		Weekday:   models.Window{From: nullStringPtr(windows[0]), To: nullStringPtr(windows[1])},
		Weekday2:  models.Window{From: nullStringPtr(windows[2]), To: nullStringPtr(windows[3])},
		Saturday:  models.Window{From: nullStringPtr(windows[4]), To: nullStringPtr(windows[5])},
		Saturday2: models.Window{From: nullStringPtr(windows[6]), To: nullStringPtr(windows[7])},
	}
	if err := agency.Hours.Validate(); err != nil {
		return models.Agency{}, err
	}
	return agency, nil
}

func scanService(row pgx.Row) (models.Service, error) {
	var svc models.Service
	var lastBooked sql.NullInt64
	var lastReset sql.NullTime
	if err := row.Scan(&svc.ServiceID, &svc.AgencyID, &svc.Name, &svc.CurrentTicket,
		&lastBooked, &svc.AvgMinutesPerPerson, &svc.Active, &lastReset); err != nil {
		return models.Service{}, err
	}
	if lastBooked.Valid {
		value := int(lastBooked.Int64)
		svc.LastBookedTicket = &value
	}
	if lastReset.Valid {
		value := lastReset.Time
		svc.LastResetOn = &value
	}
	return svc, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
