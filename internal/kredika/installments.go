package kredika

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) ListInstallments(ctx context.Context, reservationID string) ([]Installment, error) {
	var out []Installment
	if err := c.call(ctx, http.MethodGet, "/v1/installments/reservation/"+url.PathEscape(reservationID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetInstallmentByID(ctx context.Context, id string) (*Installment, error) {
	var out Installment
	if err := c.call(ctx, http.MethodGet, "/v1/installments/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessInstallmentPayment reports a payment collected by the merchant.
func (c *Client) ProcessInstallmentPayment(ctx context.Context, installmentID string, paidAmount float64, externalPaymentRef string) (*Installment, error) {
	q := url.Values{"paidAmount": {strconv.FormatFloat(paidAmount, 'f', 2, 64)}}
	if externalPaymentRef != "" {
		q.Set("externalPaymentRef", externalPaymentRef)
	}
	var out Installment
	if err := c.call(ctx, http.MethodPost, "/v1/installments/"+url.PathEscape(installmentID)+"/payments", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUpcomingInstallments(ctx context.Context, daysAhead int) ([]Installment, error) {
	q := url.Values{"daysAhead": {strconv.Itoa(daysAhead)}}
	var out []Installment
	if err := c.call(ctx, http.MethodGet, "/v1/installments/upcoming", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendPaymentReminder(ctx context.Context, installmentID string) error {
	return c.call(ctx, http.MethodPost, "/v1/installments/"+url.PathEscape(installmentID)+"/reminders", nil, nil, nil)
}
