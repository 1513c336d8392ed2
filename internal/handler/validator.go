package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo's Validate hook.  Every
// request DTO is validated at the boundary before its handler runs any
// logic, so handlers only ever see well-formed input.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds the validator used by the whole API surface.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// validationFailed renders a structured 400 with per-field detail.  Field
// names come from the json tags so clients see the names they sent.
func validationFailed(c echo.Context, err error) error {
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
			switch fe.Tag() {
			case "required":
				fields[name] = "is required"
			case "email":
				fields[name] = "must be a valid email address"
			case "min":
				fields[name] = "must be at least " + fe.Param()
			case "gte":
				fields[name] = "must be at least " + fe.Param()
			default:
				fields[name] = "is invalid"
			}
		}
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation failed", "errors": fields})
}
