// Package validation wraps go-playground/validator with the volunteer form
// rules and turns failures into field-level messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nysc/volunteers/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	phoneRegex = regexp.MustCompile(`^[\d\s+\-()]+$`)

	// now is swapped in tests to pin "today".
	now = time.Now
)

// messages maps "<field>.<tag>" to the message shown next to the form field.
var messages = map[string]string{
	"name.required":               "Name is required",
	"name.min":                    "Name must be at least 2 characters",
	"name.max":                    "Name must be less than 100 characters",
	"email.required":              "Email address is required",
	"email.email":                 "Please enter a valid email address",
	"whatsapp.required":           "WhatsApp number is required",
	"whatsapp.min":                "WhatsApp number must be at least 10 digits",
	"whatsapp.max":                "WhatsApp number is too long",
	"whatsapp.phone":              "Please enter a valid phone number",
	"ageRange.required":           "Please select your age range",
	"ageRange.oneof":              "Please select your age range",
	"sex.required":                "Please select your sex",
	"sex.oneof":                   "Please select your sex",
	"district.required":           "Please enter your district",
	"district.district":           "Please select a valid district",
	"currentDistrict.max":         "District name is too long",
	"volunteerType.required":      "Please select type of volunteering",
	"volunteerType.volunteertype": "Please select type of volunteering",
	"startDate.required":          "Please select a start date",
	"startDate.datetime":          "Start date must be a date (YYYY-MM-DD)",
	"startDate.notpast":           "Start date must be today or in the future",
	"duration.required":           "Please select duration of attendance",
	"duration.oneof":              "Please select duration of attendance",
	"availableDistricts.required": "Please select at least one district",
	"availableDistricts.min":      "Please select at least one district",
	"availableDistricts.max":      "Too many districts selected",
	"availableDistricts.district": "Please select valid districts",
	"status.required":             "Status is required",
	"status.oneof":                "Invalid status. Must be one of: pending, approved, rejected",
}

// GetValidator returns the shared validator instance with the custom rules registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names so messages line up with the request body.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phoneRegex.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("district", func(fl validator.FieldLevel) bool {
			return domain.IsDistrict(fl.Field().String())
		})
		_ = v.RegisterValidation("volunteertype", func(fl validator.FieldLevel) bool {
			return domain.IsVolunteerType(fl.Field().String())
		})
		_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
			d, err := time.ParseInLocation("2006-01-02", fl.Field().String(), time.Local)
			if err != nil {
				return false
			}
			n := now()
			today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.Local)
			return !d.Before(today)
		})

		validate = v
	})
	return validate
}

// ValidateStruct validates s and returns one FieldError per failing field, or
// nil when s is valid.
func ValidateStruct(s interface{}) []domain.FieldError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []domain.FieldError{{Field: "", Message: err.Error()}}
	}

	seen := make(map[string]bool, len(verrs))
	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := baseField(fe.Field())
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, domain.FieldError{Field: field, Message: message(field, fe.Tag(), fe.Param())})
	}
	return out
}

// baseField strips an element index: "availableDistricts[2]" -> "availableDistricts".
func baseField(f string) string {
	if i := strings.IndexByte(f, '['); i >= 0 {
		return f[:i]
	}
	return f
}

func message(field, tag, param string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	switch tag {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(param, " ", ", ")
	}
	return field + " is invalid"
}
