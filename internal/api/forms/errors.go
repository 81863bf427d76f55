// Package forms turns binding errors into messages shown next to form
// fields.
package forms

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NonField is the key for errors not tied to a single input.
const NonField = "__all__"

// Errors maps a struct field name (e.g. "Password1") to its message.
type Errors map[string]string

func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// FromBinding translates the error returned by c.ShouldBind.
func FromBinding(err error) Errors {
	out := Errors{}
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add(NonField, "The submitted form could not be read.")
		return out
	}

	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
