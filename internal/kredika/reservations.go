package kredika

import (
	"context"
	"net/http"
	"net/url"
)

const (
	StatusReserved  = "RESERVED"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusDefaulted = "DEFAULTED"
)

// CreateReservation opens a credit reservation for an order. The partner id
// comes from the session; the API key pair is sent alongside the bearer
// token when both are configured.
func (c *Client) CreateReservation(ctx context.Context, req CreateReservationRequest) (*Reservation, error) {
	s, err := c.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := createReservationPayload{
		PartnerID:                s.PartnerID,
		CreateReservationRequest: req,
	}

	var out Reservation
	if err := c.send(ctx, http.MethodPost, "/v1/credits/reservations", nil, payload, c.authHeaders(s, true), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReservationByID(ctx context.Context, id string) (*Reservation, error) {
	var out Reservation
	if err := c.call(ctx, http.MethodGet, "/v1/credits/reservations/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReservationByExternalRef(ctx context.Context, ref string) (*Reservation, error) {
	var out Reservation
	if err := c.call(ctx, http.MethodGet, "/v1/credits/reservations/external/"+url.PathEscape(ref), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReservations returns every reservation of the partner, optionally
// filtered by status.
func (c *Client) ListReservations(ctx context.Context, status string) ([]Reservation, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	var out []Reservation
	if err := c.call(ctx, http.MethodGet, "/v1/credits/reservations", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateReservationStatus(ctx context.Context, id, status string) (*Reservation, error) {
	var out Reservation
	q := url.Values{"status": {status}}
	if err := c.call(ctx, http.MethodPatch, "/v1/credits/reservations/"+url.PathEscape(id)+"/status", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ActivateReservation(ctx context.Context, id string) (*Reservation, error) {
	return c.UpdateReservationStatus(ctx, id, StatusActive)
}

func (c *Client) CancelReservation(ctx context.Context, id string) (*Reservation, error) {
	var out Reservation
	if err := c.call(ctx, http.MethodPost, "/v1/credits/reservations/"+url.PathEscape(id)+"/cancel", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReservationStats(ctx context.Context) (*ReservationStats, error) {
	var out ReservationStats
	if err := c.call(ctx, http.MethodGet, "/v1/credits/reservations/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
