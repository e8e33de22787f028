// Package forms binds request bodies to validated input structs.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var ErrMalformed = errors.New("failed to parse request body")

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their form name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// FieldErrors maps a form field name to its first validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+fe[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Bind parses the request body into each form and validates them all.
// Field errors of every form are merged into one FieldErrors.
func Bind(c *fiber.Ctx, forms ...any) error {
	all := FieldErrors{}
	for _, form := range forms {
		if err := c.BodyParser(form); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		err := Validate(form)
		var fe FieldErrors
		switch {
		case err == nil:
		case errors.As(err, &fe):
			for k, v := range fe {
				all[k] = v
			}
		default:
			return err
		}
	}
	if len(all) > 0 {
		return all
	}
	return nil
}

// Validate checks a form struct against its validate tags.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := FieldErrors{}
	for _, e := range verrs {
		if _, seen := fe[e.Field()]; !seen {
			fe[e.Field()] = message(e)
		}
	}
	return fe
}

func message(e validator.FieldError) string {
	isText := e.Kind() == reflect.String
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "min":
		if isText {
			return fmt.Sprintf("Ensure this value has at least %s characters.", e.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	case "max":
		if isText {
			return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	}
	return "Enter a valid value."
}
