package handlers

import (
	"errors"

	apierrors "github.com/maruel/inkzone/internal/errors"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/state"
)

// toAPIError maps state and model errors to their HTTP representation.
func toAPIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, state.ErrEmptyCart):
		return apierrors.EmptyCart()
	case errors.Is(err, state.ErrInvalidInput), errors.Is(err, state.ErrInvalidVariant):
		return apierrors.BadRequest(err.Error())
	case errors.Is(err, state.ErrDuplicateProduct), errors.Is(err, models.ErrInvalidTransition):
		return apierrors.Conflict(err.Error())
	}
	return apierrors.InternalWithError("internal error", err)
}
