package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/fetch"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/jobclient"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/jobs"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/usage"
)

// ErrValidation indicates a malformed request body or parameter
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotConfigured indicates a route whose backing service is not configured
type ErrNotConfigured struct {
	Feature string
}

func (e *ErrNotConfigured) Error() string {
	return e.Feature + " is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Flow errors are checked before the transport errors they may wrap.
func HTTPStatus(err error) int {
	var (
		validationErr   *ErrValidation
		notConfigured   *ErrNotConfigured
		sessionUsed     *booking.SessionUsedError
		mismatchErr     *booking.PaymentMismatchError
		bookingInvalid  *booking.ValidationError
		bookingStep     *booking.StepError
		paymentErr      *booking.PaymentError
		collaboratorErr *booking.CollaboratorError
		optimizerStep   *optimizer.StepError
		indexErr        *optimizer.IndexError
		usageErr        *optimizer.UsageError
		jobErr          *optimizer.JobError
		transportErr    *optimizer.TransportError
		creditsErr      *usage.InvalidCreditsError
		requestErr      *jobs.RequestError
		notFoundErr     *jobs.NotFoundError
		notReadyErr     *jobs.NotReadyError
		jobServiceErr   *jobclient.StatusError
		fetchErr        *fetch.Error
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &creditsErr), errors.As(err, &requestErr):
		return http.StatusBadRequest
	case errors.As(err, &notConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &bookingInvalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &bookingStep), errors.As(err, &optimizerStep), errors.As(err, &notReadyErr),
		errors.As(err, &sessionUsed), errors.As(err, &mismatchErr):
		return http.StatusConflict
	case errors.As(err, &paymentErr), errors.As(err, &usageErr):
		return http.StatusPaymentRequired
	case errors.As(err, &indexErr), errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &jobErr):
		if jobErr.Kind == optimizer.JobTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &collaboratorErr), errors.As(err, &transportErr):
		return http.StatusBadGateway
	case errors.As(err, &jobServiceErr):
		switch jobServiceErr.StatusCode {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
			return jobServiceErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorFields returns the field-level messages carried by err, if any
func errorFields(err error) map[string]string {
	var (
		bookingInvalid *booking.ValidationError
		requestErr     *jobs.RequestError
		validationErr  *ErrValidation
	)
	switch {
	case errors.As(err, &bookingInvalid):
		return bookingInvalid.Fields
	case errors.As(err, &requestErr):
		return requestErr.Fields
	case errors.As(err, &validationErr):
		return map[string]string{validationErr.Field: validationErr.Message}
	}
	return nil
}

// extractValidationErrors turns validator output into an ErrValidation for
// the first failing field
func extractValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return &ErrValidation{Field: fe.Field(), Message: fe.Tag()}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}
