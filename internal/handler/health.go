package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET / and GET /healthz
func Health(appName, env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": appName,
			"env":     env,
		})
	}
}
