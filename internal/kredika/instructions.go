package kredika

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	defaultInstructionType = "STANDARD"
	defaultLanguage        = "fr"
	defaultChannel         = "SMS"
	defaultValidityHours   = 72
)

// GeneratePaymentInstruction asks the provider for a payment instruction
// covering one installment. Empty optional fields get provider defaults.
func (c *Client) GeneratePaymentInstruction(ctx context.Context, req PaymentInstructionRequest) (*PaymentInstruction, error) {
	s, err := c.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	if req.InstructionType == "" {
		req.InstructionType = defaultInstructionType
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}
	if req.Channel == "" {
		req.Channel = defaultChannel
	}
	if req.ValidityHours <= 0 {
		req.ValidityHours = defaultValidityHours
	}
	if req.CustomFields == nil {
		req.CustomFields = map[string]string{}
	}

	payload := paymentInstructionPayload{PartnerID: s.PartnerID, PaymentInstructionRequest: req}

	var out PaymentInstruction
	if err := c.send(ctx, http.MethodPost, "/v1/payment-instructions", nil, payload, c.authHeaders(s, false), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPaymentInstructionByID(ctx context.Context, id string) (*PaymentInstruction, error) {
	var out PaymentInstruction
	if err := c.call(ctx, http.MethodGet, "/v1/payment-instructions/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetActivePaymentInstructions(ctx context.Context, installmentID string) ([]PaymentInstruction, error) {
	var out []PaymentInstruction
	path := "/v1/payment-instructions/installment/" + url.PathEscape(installmentID) + "/active"
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkInstructionAsViewed(ctx context.Context, id string) (*PaymentInstruction, error) {
	var out PaymentInstruction
	if err := c.call(ctx, http.MethodPatch, "/v1/payment-instructions/"+url.PathEscape(id)+"/view", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegeneratePaymentInstruction replaces an expired instruction. A zero
// validityHours keeps the provider default.
func (c *Client) RegeneratePaymentInstruction(ctx context.Context, id string, validityHours int) (*PaymentInstruction, error) {
	if validityHours <= 0 {
		validityHours = defaultValidityHours
	}
	q := url.Values{"validityHours": {strconv.Itoa(validityHours)}}
	var out PaymentInstruction
	if err := c.call(ctx, http.MethodPost, "/v1/payment-instructions/"+url.PathEscape(id)+"/regenerate", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
