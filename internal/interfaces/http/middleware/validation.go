package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator names fields after their json or form tag and registers the
// period_month and period_bimestre tags against bounds.
func SetupValidator(bounds period.Bounds) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	if err := v.RegisterValidation("period_month", func(fl validator.FieldLevel) bool {
		return bounds.IsValidMonth(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register period_month: %w", err)
	}
	if err := v.RegisterValidation("period_bimestre", func(fl validator.FieldLevel) bool {
		return bounds.IsValidBimestre(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register period_bimestre: %w", err)
	}
	return nil
}

// FormatValidationErrors builds the error response for a failed binding.
// A rejected period field makes the whole response INVALID_PERIOD_FORMAT.
func FormatValidationErrors(errs validator.ValidationErrors, requestID string) dto.Response {
	details := make([]dto.ValidationDetail, 0, len(errs))
	periodFailure := false
	for _, e := range errs {
		if e.Tag() == "period_month" || e.Tag() == "period_bimestre" {
			periodFailure = true
		}
		details = append(details, dto.ValidationDetail{
			Field:   fieldPath(e),
			Message: getValidationMessage(e),
		})
	}

	resp := dto.NewValidationErrorResponse("Request validation failed", requestID, details)
	if periodFailure {
		resp.Error.Code = dto.ErrCodeInvalidPeriodFormat
		resp.Error.Message = "Invalid period format"
	}
	return resp
}

// HandleBindError writes the response for an error returned by ShouldBind*
func HandleBindError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, FormatValidationErrors(validationErrs, requestID))
	case errors.As(err, &maxBytesErr):
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size", requestID))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, err.Error(), requestID))
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidInput, err.Error(), requestID))
	}
}

// fieldPath drops the top-level struct name, so readings[2].period_month
// rather than PurchaseBatchRequest.readings[2].period_month.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "period_month":
		return "Must be a month in YYYY-MM format"
	case "period_bimestre":
		return "Must be a billing cycle in YYYY-MM_YYYY-MM format"
	case "min":
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		switch e.Kind() {
		case reflect.Slice:
			return "Must contain at most " + e.Param() + " items"
		case reflect.String:
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
