package billing

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tradebill/tradebill/internal/platform/httpx"
)

// respondError maps billing domain errors to RFC7807 responses.
func respondError(w http.ResponseWriter, err error) {
	var invalid *InvalidTransitionError
	var validation validator.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", invalid.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.Is(err, ErrStaleState):
		httpx.Problem(w, http.StatusConflict, "Stale State", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNotEditable), errors.Is(err, ErrUnknownParent), errors.Is(err, ErrParentCycle):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	default:
		httpx.RespondError(w, err)
	}
}
