// Package response renders JSON bodies for the library API.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/platform/apierr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// Page wraps list results.
type Page struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  any   `json:"results"`
}

// Error renders err and aborts the chain. Errors that are not *apierr.Error
// become an opaque 500.
func Error(c *gin.Context, err error) {
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: "Internal server error.", Code: "internal_error"})
		return
	}
	c.AbortWithStatusJSON(ae.Status, ErrorBody{Error: ae.Error(), Code: ae.Code, Field: ae.Field})
}

func OK(c *gin.Context, payload any) { c.JSON(http.StatusOK, payload) }

func Created(c *gin.Context, payload any) { c.JSON(http.StatusCreated, payload) }
