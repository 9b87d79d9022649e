// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing HTTP request data shared by the
// login and payment handlers.

package http

import (
	"net/http"
	"strings"

	"fleetdash/internal/services"
)

// maxFieldLength bounds every form value accepted by the dashboard.
const maxFieldLength = 256

// sanitizeInput trims whitespace, removes control characters except tab,
// newline and carriage return, and truncates to maxFieldLength.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	if len(s) > maxFieldLength {
		s = s[:maxFieldLength]
	}
	return s
}

// formValue returns the sanitized form value for key. ParseForm must have
// been called.
func formValue(r *http.Request, key string) string {
	return sanitizeInput(r.PostForm.Get(key))
}

// LoginForm holds the submitted credentials.
type LoginForm struct {
	Username string
	Password string
}

// ParseLoginForm reads the login form. Passwords are not trimmed.
func ParseLoginForm(r *http.Request) (LoginForm, error) {
	if err := r.ParseForm(); err != nil {
		return LoginForm{}, err
	}
	return LoginForm{
		Username: formValue(r, "username"),
		Password: r.PostForm.Get("password"),
	}, nil
}

// ParsePaymentForm reads the payment form into a service request. Field
// names match the dashboard's payment form.
func ParsePaymentForm(r *http.Request) (services.PaymentRequest, error) {
	if err := r.ParseForm(); err != nil {
		return services.PaymentRequest{}, err
	}
	driverID := formValue(r, "driver_id")
	if driverID == "" {
		driverID = formValue(r, "driverId")
	}
	return services.PaymentRequest{
		DriverID: driverID,
		Amount:   formValue(r, "amount"),
		Date:     formValue(r, "date"),
	}, nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET also admits HEAD.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// isHTMX reports whether r was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
