package common

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/monadgram/internal/submission"
)

type GenericEchoValidator struct {
	Validator *validator.Validate
}

// NewValidator returns a validator that knows the "handle" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return submission.IsValidHandle(fl.Field().String())
	})
	return v
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	if gv.Validator == nil {
		gv.Validator = NewValidator()
	}
	if err := gv.Validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
	}
	return nil
}
