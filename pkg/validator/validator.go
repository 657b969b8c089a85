package validator

import (
	"context"
	"errors"
	"regexp"

	"github.com/go-playground/validator"
)

var (
	global *validator.Validate

	// Sri Lankan mobile numbers: +94 or a leading 0, then nine digits.
	phoneRegex = regexp.MustCompile(`^(\+94|0)\d{9}$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slphone", validatePhone)
	_ = v.RegisterValidation("gender", validateGender)
	_ = v.RegisterValidation("checked", validateChecked)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func validateChecked(fl validator.FieldLevel) bool {
	return fl.Field().Bool()
}

func validateGender(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Male", "Female", "Prefer not to say":
		return true
	}
	return false
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		// Not a field-level failure (nil or non-struct input); fail closed.
		return err
	}
	if len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "slphone":
		msg = "Must be a valid Sri Lankan phone number"
	case "gender":
		msg = "Must be Male, Female or Prefer not to say"
	case "checked":
		msg = "You must agree to the terms"
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
