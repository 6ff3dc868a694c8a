package api

import (
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/subscription"
)

// mapError converts conduit sentinel errors to Forge HTTP errors.
func mapError(err error) error {
	var verr *subscription.ValidationError
	if errors.As(err, &verr) {
		return forge.BadRequest(verr.Error())
	}

	switch {
	case errors.Is(err, conduit.ErrSubscriptionNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, conduit.ErrEventNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, conduit.ErrAttemptNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, conduit.ErrDuplicateAttempt):
		return forge.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, conduit.ErrMissingSignature):
		return forge.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, conduit.ErrInvalidSignature):
		return forge.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, conduit.ErrInvalidPayload):
		return forge.BadRequest(err.Error())
	case errors.Is(err, conduit.ErrPayloadValidationFailed):
		return forge.BadRequest(err.Error())
	case errors.Is(err, conduit.ErrNoStore):
		return forge.InternalError(err)
	case errors.Is(err, conduit.ErrStoreClosed):
		return forge.InternalError(err)
	case errors.Is(err, conduit.ErrMigrationFailed):
		return forge.InternalError(err)
	default:
		return forge.InternalError(err)
	}
}
