// Package validation holds the input checks shared by request DTOs and the
// workflow services.
package validation

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"unicode"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so Details keys match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("email_addr", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// Struct validates s against its `validate` tags and returns one message per
// failing field, keyed by JSON name. An empty map means s is valid.
func Struct(s interface{}) map[string]string {
	errs := make(map[string]string)

	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["_"] = err.Error()
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = message(fe)
	}
	return errs
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required"
	case "email_addr":
		return "Invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return label + " must be at least " + fe.Param() + " characters"
		}
		return label + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return label + " must be at most " + fe.Param() + " characters"
		}
		return label + " must be at most " + fe.Param()
	case "gte":
		return label + " must be " + fe.Param() + " or more"
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url", "http_url":
		return label + " must be a valid URL"
	}
	return label + " is invalid"
}

func humanize(field string) string {
	if field == "" {
		return "Value"
	}
	s := strings.ReplaceAll(field, "_", " ")
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// IsValidEmail checks the address format and requires a dotted domain.
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return false
	}
	// checkmail lets a space through before the @
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

// IsValidImageURL accepts absolute http(s) URLs.
func IsValidImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NormalizeEmail lowercases and trims an address before it is used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
