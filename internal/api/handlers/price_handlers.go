package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopops/backoffice/internal/application"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/middleware"
)

// PriceService is the price update use cases the handlers call
type PriceService interface {
	StartUpdate(ctx context.Context, cmd application.StartPriceUpdateCommand) (*application.PriceUpdateDTO, error)
	Stop() domain.ProgressSnapshot
	Resume(ctx context.Context) (domain.ProgressSnapshot, error)
	Reset() error
	Progress() domain.ProgressSnapshot
	Items() []domain.WorkItem
}

// PriceHandlers contains handlers for bulk price updates
type PriceHandlers struct {
	service PriceService
	logger  *logging.Logger
}

func NewPriceHandlers(service PriceService, logger *logging.Logger) *PriceHandlers {
	return &PriceHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers price update routes on the router
func (h *PriceHandlers) RegisterRoutes(router *gin.RouterGroup) {
	updates := router.Group("/prices/updates")
	{
		updates.POST("", h.StartUpdate)
		updates.POST("/stop", h.Stop)
		updates.POST("/resume", h.Resume)
		updates.POST("/reset", h.Reset)
		updates.GET("/progress", h.Progress)
		updates.GET("/items", h.Items)
	}
}

// StartUpdate handles POST /prices/updates. The run continues in the
// background; poll /progress for its state.
func (h *PriceHandlers) StartUpdate(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError)

	var req struct {
		Products []domain.ProductPriceChange `json:"products" binding:"required,min=1,dive"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"prices.products": len(req.Products),
	})

	dto, err := h.service.StartUpdate(c.Request.Context(), application.StartPriceUpdateCommand{Products: req.Products})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.WithContext(c.Request.Context()).Info("Price update started",
		"products", dto.Products,
		"work_items", dto.WorkItems,
	)
	c.JSON(http.StatusAccepted, dto)
}

// Stop handles POST /prices/updates/stop
func (h *PriceHandlers) Stop(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stop())
}

// Resume handles POST /prices/updates/resume
func (h *PriceHandlers) Resume(c *gin.Context) {
	progress, err := h.service.Resume(c.Request.Context())
	if err != nil {
		middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError).RespondWithError(err)
		return
	}
	c.JSON(http.StatusAccepted, progress)
}

// Reset handles POST /prices/updates/reset
func (h *PriceHandlers) Reset(c *gin.Context) {
	if err := h.service.Reset(); err != nil {
		middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError).RespondWithError(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PriceHandlers) Progress(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Progress())
}

func (h *PriceHandlers) Items(c *gin.Context) {
	items := h.service.Items()
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}
