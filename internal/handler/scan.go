package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/report"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
)

// multipartOverhead is allowed on top of the file limit for boundaries and headers.
const multipartOverhead = 1 << 20

type ScanHandler interface {
	ScanURL(c *gin.Context)
	ScanFile(c *gin.Context)
	ScanHash(c *gin.Context)
	GetScan(c *gin.Context)
	GetReport(c *gin.Context)
}

type scanHandler struct {
	scanService service.ScanService
	maxUploadMB int64
	logger      *zap.Logger
}

func NewScanHandler(scanService service.ScanService, maxUploadMB int64, logger *zap.Logger) ScanHandler {
	return &scanHandler{
		scanService: scanService,
		maxUploadMB: maxUploadMB,
		logger:      logger,
	}
}

// ScanURL handles POST /api/v1/scan/url
func (h *scanHandler) ScanURL(c *gin.Context) {
	var req models.ScanURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.InvalidInput(`Request body must be a JSON object with a "url" field.`))
		return
	}

	scan, err := h.scanService.ScanURL(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, scan.Response())
}

// ScanFile handles POST /api/v1/scan/file
func (h *scanHandler) ScanFile(c *gin.Context) {
	limit := h.maxUploadMB << 20
	tooLarge := apperr.TooLarge(fmt.Sprintf("File exceeds %d MB limit.", h.maxUploadMB))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, h.logger, tooLarge)
			return
		}
		respondError(c, h.logger, apperr.InvalidInput(`A file must be uploaded in the "file" form field.`))
		return
	}
	if header.Size > limit {
		respondError(c, h.logger, tooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, apperr.InvalidInput("Uploaded file could not be read."))
		return
	}
	defer file.Close()

	scan, err := h.scanService.ScanFile(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, scan.Response())
}

// ScanHash handles POST /api/v1/scan/hash
func (h *scanHandler) ScanHash(c *gin.Context) {
	var req models.ScanHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.InvalidInput(`Request body must be a JSON object with a "hash" field.`))
		return
	}

	scan, err := h.scanService.ScanHash(c.Request.Context(), req.Hash)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, scan.Response())
}

// GetScan handles GET /api/v1/scan/:scan_id
func (h *scanHandler) GetScan(c *gin.Context) {
	scan, err := h.scanService.GetScan(c.Request.Context(), c.Param("scan_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, scan.Response())
}

// GetReport handles GET /api/v1/scan/:scan_id/report.pdf
func (h *scanHandler) GetReport(c *gin.Context) {
	scan, err := h.scanService.GetScan(c.Request.Context(), c.Param("scan_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	buf, err := report.ScanPDF(scan)
	if err != nil {
		h.logger.Error("Failed to render scan report", zap.String("scan_id", scan.ID), zap.Error(err))
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="cyber-guard-report-%s.pdf"`, scan.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
