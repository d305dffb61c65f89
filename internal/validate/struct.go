package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"synergyfoods/internal/domain"
)

var (
	once sync.Once
	v    *validator.Validate
)

// Validator returns the shared struct validator with JSON field names and custom tags.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			_, ok := Slug(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("promo_location", func(fl validator.FieldLevel) bool {
			for _, l := range domain.PromoLocations {
				if fl.Field().String() == l {
					return true
				}
			}
			return false
		})
	})
	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Struct validates s and flattens failures into per-field messages.
// A nil slice means s is valid.
func Struct(s any) []FieldError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "slug":
		return "must be lower-case letters, digits and hyphens"
	case "promo_location":
		return "must be one of " + strings.Join(domain.PromoLocations, ", ")
	case "url", "uri":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
