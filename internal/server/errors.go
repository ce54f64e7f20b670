package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chirag127/TinyImage/internal/errs"
)

// statusFor maps an error code to its HTTP status.
func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case errs.CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	case errs.CodeNotReady:
		return http.StatusConflict
	case errs.CodeUnknownSession, errs.CodeUnknownJobID:
		return http.StatusNotFound
	case errs.CodeDecode:
		return http.StatusUnprocessableEntity
	case errs.CodeEncode:
		return http.StatusInternalServerError
	case errs.CodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusBadRequest
	}
}

func respondWithError(c *gin.Context, err error) {
	var e *errs.Error
	switch {
	case errors.As(err, &e):
		c.JSON(statusFor(e.Code), gin.H{
			"code":  e.Code,
			"error": e.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":  "REQUEST_CANCELED",
			"error": "request was cancelled before the image finished",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to compress image, please try again",
		})
	}
}

func badRequest(c *gin.Context, code errs.Code, msg string) {
	respondWithError(c, errs.New(code, "%s", msg))
}
