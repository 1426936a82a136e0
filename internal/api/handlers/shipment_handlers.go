package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopops/backoffice/internal/application"
	"github.com/shopops/backoffice/internal/dispatch"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/middleware"
)

const dateLayout = "2006-01-02"

// ShipmentService is the shipment use cases the handlers call
type ShipmentService interface {
	MatchUpload(ctx context.Context, cmd application.MatchUploadCommand) (*application.MatchReportDTO, error)
	RegisterTracking(ctx context.Context, cmd application.RegisterTrackingCommand) (*application.DispatchSummaryDTO, error)
	ExportFailures(w io.Writer, failed []dispatch.FailedShipment) error
}

// ShipmentHandlers contains handlers for tracking number upload and registration
type ShipmentHandlers struct {
	service ShipmentService
	logger  *logging.Logger
}

// NewShipmentHandlers creates a new ShipmentHandlers
func NewShipmentHandlers(service ShipmentService, logger *logging.Logger) *ShipmentHandlers {
	return &ShipmentHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers shipment routes on the router
func (h *ShipmentHandlers) RegisterRoutes(router *gin.RouterGroup) {
	shipments := router.Group("/shipments")
	{
		shipments.POST("/match", h.MatchUpload)
		shipments.POST("/register", h.RegisterTracking)
		shipments.POST("/failures/export", h.ExportFailures)
	}
}

// MatchUpload handles POST /shipments/match with a multipart carrier file
func (h *ShipmentHandlers) MatchUpload(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError)

	var req struct {
		StartDate string `json:"startDate" form:"startDate" binding:"required,iso_date"`
		EndDate   string `json:"endDate" form:"endDate" binding:"required,iso_date"`
		Statuses  string `json:"statuses" form:"statuses"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(responder, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		responder.RespondValidationError("validation failed", map[string]string{"file": "is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		responder.RespondBadRequest("cannot open uploaded file")
		return
	}
	defer file.Close()

	// iso_date has already validated both values.
	startDate, _ := time.Parse(dateLayout, req.StartDate)
	endDate, _ := time.Parse(dateLayout, req.EndDate)

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"upload.file_name": header.Filename,
		"upload.size":      header.Size,
		"orders.start":     req.StartDate,
		"orders.end":       req.EndDate,
	})

	report, err := h.service.MatchUpload(c.Request.Context(), application.MatchUploadCommand{
		FileName:  header.Filename,
		File:      file,
		StartDate: startDate,
		EndDate:   endDate,
		Statuses:  parseStatuses(req.Statuses),
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.WithContext(c.Request.Context()).Info("Upload matched",
		"session_id", report.SessionID,
		"file_name", report.FileName,
		"matched", report.Stats.Matched,
		"failed", report.Stats.Failed,
	)
	c.JSON(http.StatusOK, report)
}

// RegisterTracking handles POST /shipments/register
func (h *ShipmentHandlers) RegisterTracking(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError)

	var req struct {
		Assignments []domain.MatchAssignment `json:"assignments" binding:"required,min=1,dive"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipments.count": len(req.Assignments),
	})

	summary, err := h.service.RegisterTracking(c.Request.Context(), application.RegisterTrackingCommand{
		Assignments: req.Assignments,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportFailures handles POST /shipments/failures/export and answers with CSV
func (h *ShipmentHandlers) ExportFailures(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError)

	var req struct {
		Failed []dispatch.FailedShipment `json:"failed" binding:"required"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportFailures(&buf, req.Failed); err != nil {
		responder.RespondInternalError(err)
		return
	}

	filename := fmt.Sprintf("shipment-failures-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func parseStatuses(raw string) []domain.OrderStatus {
	var statuses []domain.OrderStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, domain.OrderStatus(strings.ToUpper(s)))
		}
	}
	return statuses
}
