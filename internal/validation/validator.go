// Package validation wraps validator/v10 for request structs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/quietcuration/internal/apperr"
)

// DateLayout is the calendar date format used across the API.
const DateLayout = "2006-01-02"

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New returns a validator that names fields by their JSON tags and knows the
// "isodate" tag.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		name, _, _ = strings.Cut(name, ",")
		if name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})

	return &Validator{v: v}
}

// IsDate reports whether s is a real YYYY-MM-DD calendar date.
func IsDate(s string) bool {
	if !isoDate.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Validate returns an apperr validation error listing every failing field.
func (v *Validator) Validate(s any) error {
	msgs := v.Messages(s)
	if len(msgs) == 0 {
		return nil
	}
	return apperr.Validation(msgs)
}

// Messages returns one message per failing field, in struct order.
func (v *Validator) Messages(s any) []string {
	return v.Translate(s, nil)
}

// Translate validates s and maps each failure to messages["field.tag"], falling
// back to the generic "field ..." wording. Order follows the struct.
func (v *Validator) Translate(s any, messages map[string]string) []string {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		if msg, ok := messages[e.Field()+"."+e.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, e.Field()+" "+friendlyMessage(e))
	}
	return out
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", e.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return "must be one of: " + e.Param()
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}
