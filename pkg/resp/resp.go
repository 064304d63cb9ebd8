package resp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homechef/pkg/apperr"
)

type ErrorBody struct {
	Code    apperr.Kind      `json:"code"`
	Message string           `json:"message"`
	Details []apperr.Problem `json:"details,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"ok": true, "data": data})
}
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": ErrorBody{Code: apperr.KindValidation, Message: msg}})
}
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": ErrorBody{Code: "UNAUTHORIZED", Message: msg}})
}
func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": ErrorBody{Code: apperr.KindForbidden, Message: msg}})
}

// Error writes err as a structured failure. Unclassified errors become a bare 500;
// the caller is expected to have logged the original.
func Error(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": Body(err)})
}

func Body(err error) ErrorBody {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return ErrorBody{Code: apperr.KindValidation, Message: "validation failed", Details: ve.Problems}
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		body := ErrorBody{Code: e.Kind, Message: e.Message}
		for _, d := range e.Details {
			body.Details = append(body.Details, apperr.Problem{Code: e.Kind, Message: d})
		}
		return body
	}
	return ErrorBody{Code: apperr.KindInternal, Message: "internal server error"}
}
