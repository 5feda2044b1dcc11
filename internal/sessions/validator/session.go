package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

// RecurrenceHorizon bounds how far into the future a series may extend,
// measured from the moment of creation.
const RecurrenceHorizon = time.Hour * 24 * 365

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SessionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSessionValidator(log *logger.Logger) *SessionValidator {
	return &SessionValidator{
		validate: validator.New(),
		logger:   log,
	}
}

// Validate runs structural validation on a session: required fields, length
// limits and time ordering. Window policy is checked separately.
func (v *SessionValidator) Validate(session *model.Session) error {
	if err := v.validate.Struct(session); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if !session.EndTime.After(session.StartTime) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	if session.IsRecurring {
		if session.RecurrenceType == "" {
			return ValidationErrors{
				ValidationError{
					Field:   "RecurrenceType",
					Message: "recurrence_type is required for recurring sessions",
				},
			}
		}
		if session.RecurrenceEndDate == nil {
			return ValidationErrors{
				ValidationError{
					Field:   "RecurrenceEndDate",
					Message: "recurrence_end_date is required for recurring sessions",
				},
			}
		}
	}

	return nil
}

// ValidateWindow enforces the scheduling window policy at creation time.
// The lower bound is the first instant of the current calendar month. The
// upper bound (last instant of next month) applies only to non-recurring
// sessions; a recurring series is bounded by its recurrence end date, which
// must fall strictly after the start and within the one-year horizon.
// This is the authoritative gate; expansion does not re-validate.
func (v *SessionValidator) ValidateWindow(session *model.Session, now time.Time) error {
	startOfCurrentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	// Day 0 of the month after next normalizes to the last day of next month.
	endOfNextMonth := time.Date(now.Year(), now.Month()+2, 0, 23, 59, 59, 0, now.Location())

	if session.StartTime.Before(startOfCurrentMonth) {
		return apperrors.OutOfWindow("sessions can only be scheduled for the current or next month")
	}

	if !session.IsRecurring {
		if session.StartTime.After(endOfNextMonth) {
			return apperrors.OutOfWindow("sessions can only be scheduled for the current or next month")
		}
		return nil
	}

	if session.RecurrenceEndDate == nil {
		return apperrors.InvalidRecurrenceWindow("recurring sessions require a recurrence end date")
	}
	if !session.RecurrenceEndDate.After(session.StartTime) {
		return apperrors.InvalidRecurrenceWindow("recurrence end date must be after the start time")
	}
	if session.RecurrenceEndDate.After(now.AddDate(1, 0, 0)) {
		return apperrors.InvalidRecurrenceWindow("recurring sessions cannot be scheduled more than one year in advance")
	}

	return nil
}

func (v *SessionValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
