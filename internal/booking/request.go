package booking

import (
	"errors"
	"regexp"
	"strings"

	"ms-booking/internal/models"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// BookingRequest is the customer's booking form.
type BookingRequest struct {
	UserName       string             `json:"user_name" validate:"required"`
	Email          string             `json:"email" validate:"required,basic_email"`
	Phone          string             `json:"phone"`
	BookingType    models.BookingType `json:"booking_type"`
	TimeSlotID     string             `json:"time_slot_id"`
	TimeSlotIDs    []string           `json:"time_slot_ids"`
	NumberOfPeople int                `json:"number_of_people" validate:"gte=1"`
	DiscountCode   string             `json:"discount_code"`
}

// Normalize trims the text fields and folds any booking type other than multiple to single.
func (r *BookingRequest) Normalize() {
	r.UserName = strings.TrimSpace(r.UserName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.TimeSlotID = strings.TrimSpace(r.TimeSlotID)
	r.DiscountCode = strings.TrimSpace(r.DiscountCode)
	if strings.EqualFold(string(r.BookingType), string(models.BookingMultiple)) {
		r.BookingType = models.BookingMultiple
	} else {
		r.BookingType = models.BookingSingle
	}
}

// SelectedSlots returns the distinct slot ids this booking covers. Multiple bookings read
// time_slot_ids (comma-joined entries are split) and fall back to time_slot_id when that
// list is empty. Single bookings read time_slot_id.
func (r BookingRequest) SelectedSlots() []string {
	var ids []string
	if r.BookingType == models.BookingMultiple {
		seen := make(map[string]bool)
		for _, entry := range r.TimeSlotIDs {
			for _, id := range strings.Split(entry, ",") {
				if id = strings.TrimSpace(id); id != "" && !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	if len(ids) == 0 && r.TimeSlotID != "" {
		ids = []string{r.TimeSlotID}
	}
	return ids
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// validateRequest checks the form before any store access.
func validateRequest(v *validator.Validate, req BookingRequest) error {
	err := v.Struct(req)
	if len(req.SelectedSlots()) == 0 {
		return newError(ErrValidation, msgMissingFields, nil)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(ErrValidation, msgMissingFields, err)
	}
	// Missing fields are reported before a malformed email
	for _, fe := range verrs {
		if fe.Tag() != "basic_email" {
			return newError(ErrValidation, msgMissingFields, err)
		}
	}
	return newError(ErrValidation, msgInvalidEmail, err)
}
