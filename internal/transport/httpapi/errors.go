package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/ledger"
)

const (
	codeValidationFailed = "validation_failed"
	codeInvalidBody      = "invalid_request_body"
	codeInternal         = "internal_server_error"
)

var validate = newValidator()

// newValidator reports fields by their JSON or query names and validates
// decimals as numbers, so `gte=0.01` works on an amount.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			if name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	return v
}

// validateRequest returns field -> message for every failed rule, or nil
func validateRequest(obj any) map[string]string {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	for _, fe := range err.(validator.ValidationErrors) {
		details[fe.Field()] = errorMessage(fe)
	}
	return details
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return "Value must be greater than " + fe.Param()
	case "gte":
		return "Value must be at least " + fe.Param()
	case "len":
		return "Value must be " + fe.Param() + " characters long"
	default:
		return "Invalid value"
	}
}

func respondWithValidationError(c *gin.Context, details map[string]string) {
	slog.WarnContext(c.Request.Context(), "request validation failed", "details", details)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   codeValidationFailed,
		"details": details,
	})
}

// statusFor maps a ledger error kind to its HTTP status
func statusFor(kind ledger.Kind) int {
	switch kind {
	case ledger.KindAccountNotFound:
		return http.StatusNotFound
	case ledger.KindInvalidTransactionType, ledger.KindInvalidAmount, ledger.KindCurrencyMismatch:
		return http.StatusBadRequest
	case ledger.KindRiskRejected, ledger.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ledger.KindRiskUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fieldFor names the request field a rejected-input kind points at
func fieldFor(kind ledger.Kind) string {
	switch kind {
	case ledger.KindInvalidTransactionType:
		return "type"
	case ledger.KindInvalidAmount:
		return "amount"
	case ledger.KindCurrencyMismatch:
		return "currency"
	default:
		return ""
	}
}

// respondWithError writes {"error": "<code>"} for err. Refused input also
// gets {"details": {"<field>": "<reason>"}}.
func respondWithError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	kind, ok := ledger.KindOf(err)
	if !ok {
		slog.ErrorContext(ctx, "internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": codeInternal})
		return
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "code", kind, "error", err)
	} else {
		slog.WarnContext(ctx, "business error", "code", kind, "error", err)
	}
	body := gin.H{"error": string(kind)}
	var le *ledger.Error
	if field := fieldFor(kind); field != "" && errors.As(err, &le) && le.Err != nil {
		body["details"] = map[string]string{field: le.Err.Error()}
	}
	c.JSON(status, body)
}
