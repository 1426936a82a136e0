package handlers

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/errors"
	"github.com/shopops/backoffice/pkg/middleware"
	"github.com/shopops/backoffice/pkg/resilience"
)

// MapError converts domain errors into API errors. Anything it does not
// recognise falls back to errors.MapDomainError.
func MapError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var (
		missing *domain.MissingColumnError
		invalid *domain.ValidationError
		remote  *domain.RemoteCallError
	)

	switch {
	case stderrors.As(err, &missing):
		return errors.ErrMissingColumn(missing.Error()).
			WithDetail("columns", strings.Join(missing.Columns, ",")).
			Wrap(err)

	case stderrors.As(err, &invalid):
		if invalid.Field == "" {
			return errors.ErrValidation(invalid.Message).Wrap(err)
		}
		return errors.ErrValidationWithFields(invalid.Error(), map[string]string{invalid.Field: invalid.Message}).Wrap(err)

	case stderrors.Is(err, domain.ErrQueueBusy), stderrors.Is(err, domain.ErrQueueEmpty):
		return errors.ErrConflict(err.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrTokenNotFound):
		return errors.ErrUnauthorized("the mall has not authorised this app yet").Wrap(err)

	case stderrors.Is(err, domain.ErrTokenExpired):
		return errors.ErrUnauthorized("the mall authorisation has expired, authorise the app again").Wrap(err)

	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.ErrServiceUnavailable("cafe24").Wrap(err)

	case stderrors.As(err, &remote):
		return remoteError(remote).Wrap(err)

	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrTimeout("request").Wrap(err)
	}

	return errors.MapDomainError(err)
}

func remoteError(remote *domain.RemoteCallError) *errors.AppError {
	var appErr *errors.AppError
	if remote.IsValidation() {
		appErr = errors.ErrUpstreamValidation(remote.Error())
	} else {
		appErr = errors.ErrUpstream(remote.Error())
	}

	appErr = appErr.WithDetail("operation", remote.Operation)
	if remote.Code != "" {
		appErr = appErr.WithDetail("code", remote.Code)
	}
	if len(remote.Details) > 0 {
		appErr = appErr.WithDetail("details", strings.Join(remote.Details, "; "))
	}
	return appErr
}

func respondBindError(responder *middleware.ErrorResponder, err error) {
	if fields := middleware.ValidationErrorFormatter(err); len(fields) > 0 {
		responder.RespondValidationError("validation failed", fields)
		return
	}
	responder.RespondBadRequest("invalid request: " + err.Error())
}
