package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/pkg/telegram"
)

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrProductsNotFound),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrCurrencyMismatch),
		errors.Is(err, auth.ErrMissingInitData):
		return http.StatusBadRequest
	case errors.Is(err, telegram.ErrInvalidSignature),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrInvalidOrderState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto the response. Internal errors
// are logged and reported without detail.
func (g *Gateway) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		g.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		msg := "Internal server error"
		if errors.Is(err, auth.ErrMissingBotToken) {
			msg = "Server misconfigured: TELEGRAM_BOT_TOKEN"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": publicMessage(err)})
}

// publicMessage capitalises the error text the way clients display it.
func publicMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// writeBindError reports a body that failed to decode or validate.
// Validation failures carry per-field details keyed by JSON name.
func writeBindError(c *gin.Context, title string, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fieldPath(fe)] = ruleText(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": title, "details": details})
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		c.JSON(http.StatusBadRequest, gin.H{"error": title, "details": gin.H{"body": "required"}})
	case errors.As(err, &syntaxErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": title, "details": gin.H{"body": "malformed JSON"}})
	case errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": title, "details": gin.H{typeErr.Field: "must be " + typeErr.Type.String()}})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": title, "details": gin.H{"body": err.Error()}})
	}
}

// fieldPath drops the top-level struct name from the namespace:
// "createOrderRequest.items[0].quantity" becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleText(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must have at least " + fe.Param()
	case "max":
		return "must have at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "url":
		return "must be a URL"
	case "uuid":
		return "must be a UUID"
	default:
		return fe.Tag()
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
