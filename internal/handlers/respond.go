// Package handlers is the thin HTTP surface over the services. Handlers
// bind and validate transport shapes, delegate, and translate typed errors
// to status codes; business rules live below.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
)

func httpStatus(kind core.Kind) int {
	switch kind {
	case core.KindParameter:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error with its stable wire code. Internal errors hide the
// detail and get logged; the rest are caller-facing.
func fail(c *gin.Context, err error) {
	kind := core.KindOf(err)
	message := err.Error()
	var typed *core.Error
	if !errors.As(err, &typed) || kind == core.KindInternal {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		message = "internal error"
	}
	c.JSON(httpStatus(kind), gin.H{
		"code":    kind.Code(),
		"message": message,
	})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": "200",
		"data": data,
	})
}

func badRequest(c *gin.Context, message string) {
	fail(c, core.ParameterError("%s", message))
}
