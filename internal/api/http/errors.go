package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/domain/launcher"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/eventloop"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
)

// statusOf maps a model or infrastructure error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, launcher.ErrInvalidNode):
		return http.StatusNotFound
	case errors.Is(err, launcher.ErrFolderFull):
		return http.StatusConflict
	case errors.Is(err, store.ErrCircuitOpen),
		errors.Is(err, store.ErrProbing),
		errors.Is(err, eventloop.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, launcher.ErrPersist),
		errors.Is(err, context.Canceled):
		return http.StatusInternalServerError
	case errors.Is(err, launcher.ErrNotAttached),
		errors.Is(err, launcher.ErrNotContainer),
		errors.Is(err, launcher.ErrNotRemovable),
		errors.Is(err, launcher.ErrWrongType),
		errors.Is(err, launcher.ErrInvalidMove),
		errors.Is(err, launcher.ErrInvalidCapacity),
		errors.Is(err, launcher.ErrInvalidApp):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
