package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/services"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// @Summary      Dashboard overview
// @Description  Project health and recent events; funnel figures only with view_financials
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.Overview
// @Router       /reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	out, err := h.Service.Overview(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReportHandler) Funnel(c *gin.Context) {
	out, err := h.Service.Funnel(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// History serves GET /reports/history/:kind/:id.
func (h *ReportHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.Service.History(c.Request.Context(), actor(c), c.Param("kind"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
