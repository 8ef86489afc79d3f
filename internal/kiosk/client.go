package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cityq/eticket-service/internal/models"
)

// Client talks to the per-agency local kiosk server, the sole authority
// for ticket numbering. Booking failures are fatal for the caller;
// cancel failures are tolerated, so both surface as ErrUnavailable and
// the caller decides.

var ErrUnavailable = errors.New("kiosk server unavailable")

type bookResponse struct {
	Status       string `json:"status"`
	TicketNumber int    `json:"ticket_number"`
}

type cancelRequest struct {
	TicketNumber int `json:"ticket_number"`
}

type cancelResponse struct {
	Status string `json:"status"`
}

type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Book asks the agency's kiosk server to issue the next ticket number
// for the service. The request carries no body; the kiosk is the one
// deciding the number.
func (c *Client) Book(ctx context.Context, agency models.Agency, serviceID int64) (int, error) {
	url := fmt.Sprintf("%s/services/%d/book", baseURL(agency), serviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload bookResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if payload.Status != "created" || payload.TicketNumber <= 0 {
		return 0, fmt.Errorf("%w: unexpected response %q", ErrUnavailable, payload.Status)
	}
	return payload.TicketNumber, nil
}

// Cancel tells the kiosk server a ticket number was given up so its
// display can skip it.
func (c *Client) Cancel(ctx context.Context, agency models.Agency, serviceID int64, ticketNumber int) error {
	body, err := json.Marshal(cancelRequest{TicketNumber: ticketNumber})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/services/%d/cancel", baseURL(agency), serviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload cancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if payload.Status != "ok" {
		return fmt.Errorf("%w: unexpected response %q", ErrUnavailable, payload.Status)
	}
	return nil
}

func baseURL(agency models.Agency) string {
	scheme := "http"
	if agency.LocalServerTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, agency.LocalServer)
}
