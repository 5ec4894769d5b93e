package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
)

// respondError writes {"detail": ...}. Causes of 5xx errors are logged, never sent.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err))
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"detail": apperr.PublicDetail(err)})
}
