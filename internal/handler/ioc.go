package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/middleware"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
)

type IocHandler interface {
	Submit(c *gin.Context)
}

type iocHandler struct {
	iocService service.IocService
	logger     *zap.Logger
}

func NewIocHandler(iocService service.IocService, logger *zap.Logger) IocHandler {
	return &iocHandler{iocService: iocService, logger: logger}
}

// maxIocBodyBytes bounds a submission body.
const maxIocBodyBytes = 64 << 10

// Submit handles POST /api/v1/ioc/submit
func (h *iocHandler) Submit(c *gin.Context) {
	var raw map[string]json.RawMessage
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxIocBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil || raw == nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.logger, apperr.TooLarge("Request body is too large."))
			return
		}
		respondError(c, h.logger, apperr.InvalidInput("Request body must be a JSON object."))
		return
	}

	rec, err := h.iocService.Submit(c.Request.Context(), middleware.PrincipalFrom(c), raw)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.IocSubmitResponse{IocID: rec.ID, Stored: true})
}
