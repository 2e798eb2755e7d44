package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type CascadeHandler struct {
	Service *services.CascadeService
}

func NewCascadeHandler(service *services.CascadeService) *CascadeHandler {
	return &CascadeHandler{Service: service}
}

func (h *CascadeHandler) List(c *gin.Context) {
	status := models.CascadeStatus(c.DefaultQuery("status", string(models.CascadeFailed)))
	runs, err := h.Service.ListRuns(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// @Summary      Resume cascade
// @Description  Re-executes a failed run; steps already applied are skipped
// @Tags         Cascades
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  models.CascadeRun
// @Router       /cascades/{id}/resume [post]
func (h *CascadeHandler) Resume(c *gin.Context) {
	run, err := h.Service.Resume(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
