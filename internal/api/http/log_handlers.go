package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelControl reads and changes the process log level.
type LevelControl interface {
	Level() zapcore.Level
	SetLevel(level string) error
}

// WithLogLevel mounts GET and PUT /log/level over levels.
func (h *Handlers) WithLogLevel(levels LevelControl) *Handlers {
	h.levels = levels
	return h
}

// GetLogLevel reports the current log level
func (h *Handlers) GetLogLevel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level().String()})
}

// SetLogLevel changes the log level without a restart
func (h *Handlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Level string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "level is required")
		return
	}
	prev := h.levels.Level()
	if err := h.levels.SetLevel(req.Level); err != nil {
		badRequest(c, "unknown log level "+req.Level)
		return
	}
	h.logger.Info("log level changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", h.levels.Level()))
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level().String()})
}
