package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/middleware"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
)

type DashboardHandler interface {
	GetSummary(c *gin.Context)
}

type dashboardHandler struct {
	dashboardService service.DashboardService
	limits           service.Limits
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService service.DashboardService, limits service.Limits, logger *zap.Logger) DashboardHandler {
	return &dashboardHandler{
		dashboardService: dashboardService,
		limits:           limits,
		logger:           logger,
	}
}

// GetSummary handles GET /api/v1/dashboard/summary
func (h *dashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboardService.Summarize(c.Request.Context(), middleware.PrincipalFrom(c), h.limits)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
