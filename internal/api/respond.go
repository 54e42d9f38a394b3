package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/merako/storefront/internal/auth"
	"github.com/merako/storefront/internal/domain/achievement"
	"github.com/merako/storefront/internal/domain/catalog"
	"github.com/merako/storefront/internal/domain/order"
	"github.com/merako/storefront/internal/domain/review"
	"github.com/merako/storefront/internal/domain/user"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var errMalformedBody = errors.New("malformed request body")

// decode parses the JSON body into v and runs struct validation.
func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errMalformedBody
	}
	return s.validate.Struct(v)
}

// idParam parses the named chi URL parameter as an int64.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return id, nil
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty     *order.InvalidQuantityError
		noStock        *order.InsufficientStockError
		badTransition  *order.InvalidTransitionError
		badRating      *review.InvalidRatingError
		badInput       *catalog.ValidationError
		badPassword    *user.PasswordPolicyError
		validationErrs validator.ValidationErrors
	)

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrNoActiveOrder),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, review.ErrNotFound),
		errors.Is(err, achievement.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		code = http.StatusNotFound

	case errors.Is(err, catalog.ErrCategoryExists),
		errors.Is(err, catalog.ErrProductInOrders),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, review.ErrExists),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, order.ErrNotDeletable),
		errors.As(err, &noStock),
		errors.As(err, &badTransition):
		code = http.StatusConflict

	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		code = http.StatusUnauthorized

	case errors.Is(err, user.ErrBlocked),
		errors.Is(err, order.ErrNotOwner),
		errors.Is(err, review.ErrNotPurchased):
		code = http.StatusForbidden

	case errors.Is(err, errMalformedBody),
		errors.As(err, &invalidQty),
		errors.As(err, &badRating),
		errors.As(err, &badInput),
		errors.As(err, &badPassword),
		errors.As(err, &validationErrs):
		code = http.StatusBadRequest
	}

	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, code, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeBadRequest reports a malformed request outside struct validation.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
