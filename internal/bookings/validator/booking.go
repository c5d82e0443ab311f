package validator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"rentals/pkg/logger"
	"rentals/pkg/model"
	"rentals/pkg/validation"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validation.New()

	if err := v.RegisterValidation("booking_status", validateBookingStatus); err != nil {
		log.Fatal("Failed to register 'booking_status' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	_, ok := model.ParseBookingStatus(fl.Field().String())
	return ok
}

func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) ValidateStatusUpdate(update *model.StatusUpdate) error {
	return validation.Struct(v.validate, update)
}

// ValidateStay checks the parsed stay against the property and the current date.
// Every failing rule is reported.
func (v *BookingValidator) ValidateStay(checkIn, checkOut time.Time, guests int, property *model.Property, today time.Time) error {
	var errs validation.ValidationErrors

	if !checkIn.Before(checkOut) {
		errs = append(errs, validation.ValidationError{
			Field:   "check_out",
			Message: "check_out must be after check_in",
		})
	}

	if guests < 1 {
		errs = append(errs, validation.ValidationError{
			Field:   "guests",
			Message: "guests must be at least 1",
		})
	} else if guests > property.MaxGuests {
		errs = append(errs, validation.ValidationError{
			Field:   "guests",
			Message: fmt.Sprintf("guests (%d) exceeds property capacity (%d)", guests, property.MaxGuests),
		})
	}

	today = model.DateOf(today)
	if checkIn.Before(today) {
		errs = append(errs, validation.ValidationError{
			Field:   "check_in",
			Message: "check_in cannot be in the past",
		})
	}
	if checkOut.Before(today) {
		errs = append(errs, validation.ValidationError{
			Field:   "check_out",
			Message: "check_out cannot be in the past",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
