package kredika

import (
	"errors"
	"fmt"
)

// ErrCredentialsMissing means neither OAuth2 client credentials nor the
// static API key pair are configured. It is an operator problem, not a
// customer one.
var ErrCredentialsMissing = errors.New("kredika: credentials not configured (need client id/secret or api key/partner key)")

// RequestError is returned for every failed provider call: non-2xx answers
// carry Status and Body, transport failures and timeouts carry Err with
// Status 0. Callers must not assume the provider applied the request.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kredika %s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("kredika %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is a transport error or a 5xx.
func (e *RequestError) Transient() bool {
	return e.Status == 0 || e.Status >= 500
}
