package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

const (
	MsgRequired       = "This field is required."
	MsgPasswordsMatch = "Passwords must match"
	MsgInvalid        = "Invalid value."

	msgTooLongFormat = "Must be at most %s characters."

	// FormField collects errors that do not belong to a single input.
	FormField = "form"
)

// messages maps a rule tag to the text shown next to the field.
var messages = map[string]string{
	"required": MsgRequired,
	"notblank": MsgRequired,
	"eqfield":  MsgPasswordsMatch,
	"max":      msgTooLongFormat,
}

// MsgTooLong renders the length message for a limit of n characters.
func MsgTooLong(n int) string {
	return fmt.Sprintf(msgTooLongFormat, strconv.Itoa(n))
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return MsgInvalid
	}
	if fe.Param() != "" && strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

// Errors maps a form field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// FromDetails rebuilds Errors from DomainError details. Values that are not
// strings or string slices are ignored.
func FromDetails(details map[string]any) Errors {
	errs := Errors{}
	for field, v := range details {
		switch msg := v.(type) {
		case string:
			errs.Add(field, msg)
		case []string:
			for _, m := range msg {
				errs.Add(field, m)
			}
		}
	}
	return errs
}

// Validator evaluates the validate tags of form inputs.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator whose field names follow the form tags.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag name.
	_ = v.RegisterValidation("notblank", notBlank)
	return &Validator{validate: v}
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	return strings.TrimSpace(field.String()) != ""
}

// Validate returns nil when input passes every rule.
func (v *Validator) Validate(input any) Errors {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	errs := Errors{}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add(FormField, err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}
