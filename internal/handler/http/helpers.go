package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/badge"
	"github.com/vasiliy-maslov/campus-cafe/internal/inventory"
	"github.com/vasiliy-maslov/campus-cafe/internal/menu"
	"github.com/vasiliy-maslov/campus-cafe/internal/notification"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
	"github.com/vasiliy-maslov/campus-cafe/internal/payment"
	"github.com/vasiliy-maslov/campus-cafe/internal/report"
	"github.com/vasiliy-maslov/campus-cafe/internal/reservation"
	"github.com/vasiliy-maslov/campus-cafe/internal/review"
	"github.com/vasiliy-maslov/campus-cafe/internal/schedule"
	"github.com/vasiliy-maslov/campus-cafe/internal/storage"
	"github.com/vasiliy-maslov/campus-cafe/internal/student"
	"github.com/vasiliy-maslov/campus-cafe/internal/user"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// respondWithError sends {"error": message}.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondWithServiceError maps a service error to a status code. Client
// errors carry the error text; anything unexpected is logged and hidden
// behind fallback.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, code, fallback)
		return
	}
	log.Warn().Err(err).Int("status", code).Msg(fallback)
	respondWithError(w, code, err.Error())
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, menu.ErrCategoryNotFound),
		errors.Is(err, menu.ErrItemNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrLineNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, reservation.ErrTableNotFound),
		errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, review.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, notification.ErrNotFound),
		errors.Is(err, student.ErrNotFound),
		errors.Is(err, student.ErrMealNotFound):
		return http.StatusNotFound

	case errors.Is(err, user.ErrUsernameExists),
		errors.Is(err, menu.ErrCategoryExists),
		errors.Is(err, order.ErrDuplicateLine),
		errors.Is(err, payment.ErrPaymentExists),
		errors.Is(err, reservation.ErrTableNumberExists),
		errors.Is(err, reservation.ErrOverlap),
		errors.Is(err, review.ErrAlreadyExists),
		errors.Is(err, schedule.ErrDuplicateShift),
		errors.Is(err, student.ErrStudentIDExists),
		errors.Is(err, student.ErrBadgeKeyTaken):
		return http.StatusConflict

	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrTokenRevoked),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	case errors.Is(err, user.ErrCannotChangeOwnRole),
		errors.Is(err, order.ErrForbidden),
		errors.Is(err, reservation.ErrForbidden),
		errors.Is(err, review.ErrForbidden),
		errors.Is(err, review.ErrNotOrderOwner):
		return http.StatusForbidden

	case errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrEmptyPassword),
		errors.Is(err, menu.ErrInvalidPrice),
		errors.Is(err, menu.ErrInvalidCost),
		errors.Is(err, menu.ErrInvalidAvailability),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrItemUnavailable),
		errors.Is(err, order.ErrNotEditable),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrInvalidPaymentStatus),
		errors.Is(err, payment.ErrInvalidTransition),
		errors.Is(err, payment.ErrOrderCancelled),
		errors.Is(err, reservation.ErrPartyTooLarge),
		errors.Is(err, reservation.ErrTableUnavailable),
		errors.Is(err, reservation.ErrInPast),
		errors.Is(err, reservation.ErrInvalidDuration),
		errors.Is(err, reservation.ErrInvalidPartySize),
		errors.Is(err, reservation.ErrInvalidStatus),
		errors.Is(err, reservation.ErrInvalidCapacity),
		errors.Is(err, reservation.ErrInvalidTableState),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidStock),
		errors.Is(err, inventory.ErrInvalidCost),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, schedule.ErrInvalidDay),
		errors.Is(err, schedule.ErrInvalidTime),
		errors.Is(err, schedule.ErrInvalidShift),
		errors.Is(err, schedule.ErrNotStaff),
		errors.Is(err, schedule.ErrUnknownStaff),
		errors.Is(err, student.ErrInvalidMealType),
		errors.Is(err, student.ErrCafeClosed),
		errors.Is(err, student.ErrEmptyScan),
		errors.Is(err, student.ErrDuplicateMeal),
		errors.Is(err, badge.ErrBadPayload),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, report.ErrInvalidPeriod):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			details[field] = "This field is required."
		case "email":
			details[field] = "Enter a valid email address."
		case "min":
			details[field] = fmt.Sprintf("Must be at least %s.", fe.Param())
		case "max":
			details[field] = fmt.Sprintf("Must be at most %s.", fe.Param())
		case "gte":
			details[field] = fmt.Sprintf("Must be greater than or equal to %s.", fe.Param())
		case "lte":
			details[field] = fmt.Sprintf("Must be less than or equal to %s.", fe.Param())
		case "oneof":
			details[field] = "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
		case "excludesall":
			details[field] = "Must not contain any of: " + strings.Join(strings.Split(fe.Param(), ""), " ") + "."
		default:
			details[field] = fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
		}
	}
	return details
}

// newValidator reports json field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	if err := v.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDQuery returns nil when the query parameter is absent.
func parseUUIDQuery(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" filter")
		return nil, false
	}
	return &id, true
}

func principal(r *http.Request) *auth.Principal {
	return auth.PrincipalFromContext(r.Context())
}
