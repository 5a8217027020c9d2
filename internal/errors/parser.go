package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"gorm.io/gorm"
)

// ErrorInfo is an error translated for the client
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError maps an internal error to a status, code and message.
// Storage details stay in the logs.
func ParseError(err error) ErrorInfo {
	switch {
	case err == nil:
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
	case errors.Is(err, service.ErrInvalidProduct):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidID, Message: "Product id is required"}
	case errors.Is(err, service.ErrInvalidQuantity):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidRange, Message: "Quantity must be at least 1"}
	case errors.Is(err, service.ErrInvalidSession):
		return ErrorInfo{Status: http.StatusUnauthorized, Code: SessionRequired, Message: "A cart session is required"}
	case errors.Is(err, repository.ErrCartStateNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: CartNotFound, Message: "Cart not found"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: "Resource not found"}
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalExternalAPI,
			Message: "Cart storage is unavailable. Please try again shortly",
		}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
}

// ParseAndRespond writes the translated error
func ParseAndRespond(c *gin.Context, err error) {
	info := ParseError(err)
	RespondWithError(c, info.Status, info.Code, info.Message)
}

// BindingFields turns gin binding errors into per-field messages
func BindingFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "must be valid JSON"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
		case "gte", "min":
			fields[name] = "must be at least " + fe.Param()
		default:
			fields[name] = "is invalid"
		}
	}
	return fields
}
