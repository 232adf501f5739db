package booking

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// Field error messages shown next to the contact form inputs
const (
	msgNameRequired  = "Name is required"
	msgEmailRequired = "Email is required"
	msgEmailInvalid  = "Please enter a valid email address"
	msgPhoneRequired = "Phone number is required"
	msgPhoneInvalid  = "Please enter a valid phone number"
	msgServiceNeeded = "Please select a service"
	msgDetailsField  = "Please check this field"
	minPhoneDigits   = 10
)

var (
	emailShapeRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneCharsRegex = regexp.MustCompile(`^\+?[\d\s\-().]+$`)
)

// step1Input mirrors the contact step for struct validation
type step1Input struct {
	Name    string `validate:"notblank"`
	Email   string `validate:"required,emailshape"`
	Phone   string `validate:"required,phone"`
	Service string `validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "emailshape", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// IsValidEmail checks the local@domain.tld shape
func IsValidEmail(email string) bool {
	return emailShapeRegex.MatchString(strings.TrimSpace(email))
}

// IsValidPhone accepts 10 or more digits with optional spaces, dashes,
// dots, parentheses and a leading plus
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if !phoneCharsRegex.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// validateStep1 returns field errors for the contact step; an empty map means valid
func validateStep1(state types.BookingState) map[string]string {
	input := step1Input{
		Name:  state.ContactInfo.Name,
		Email: state.ContactInfo.Email,
		Phone: state.ContactInfo.Phone,
	}
	if state.SelectedService != nil {
		input.Service = string(*state.SelectedService)
	}

	fields := map[string]string{}
	err := validate.Struct(input)
	if err == nil {
		return fields
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["form"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			fields["name"] = msgNameRequired
		case "Email":
			if fe.Tag() == "required" {
				fields["email"] = msgEmailRequired
			} else {
				fields["email"] = msgEmailInvalid
			}
		case "Phone":
			if fe.Tag() == "required" {
				fields["phone"] = msgPhoneRequired
			} else {
				fields["phone"] = msgPhoneInvalid
			}
		case "Service":
			fields["service"] = msgServiceNeeded
		}
	}
	if state.SelectedService != nil && !state.SelectedService.Valid() {
		fields["service"] = msgServiceNeeded
	}
	return fields
}

// validateDetails checks the step 3 completion form
func validateDetails(details types.CompletionDetails) map[string]string {
	fields := map[string]string{}
	err := validate.Struct(details)
	if err == nil {
		return fields
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["form"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[detailsKey(fe.Field())] = msgDetailsField
	}
	return fields
}

func detailsKey(field string) string {
	switch field {
	case "PreferredTimes":
		return "preferred_times"
	case "ResumeURL":
		return "resume_url"
	case "LinkedInURL":
		return "linkedin_url"
	default:
		return strings.ToLower(field)
	}
}
