package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type OnboardingHandler struct {
	Service *services.OnboardingService
}

func NewOnboardingHandler(service *services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{Service: service}
}

func (h *OnboardingHandler) Create(c *gin.Context) {
	var o models.OnboardingItem
	if !bind(c, &o) {
		return
	}
	v, err := h.Service.Create(c.Request.Context(), actor(c), &o)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *OnboardingHandler) List(c *gin.Context) {
	list, err := h.Service.List(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OnboardingHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.Service.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *OnboardingHandler) AddChecklistItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var item models.ChecklistItem
	if !bind(c, &item) {
		return
	}
	v, err := h.Service.AddChecklistItem(c.Request.Context(), actor(c), id, item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *OnboardingHandler) ToggleChecklistItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	v, err := h.Service.ToggleChecklistItem(c.Request.Context(), actor(c), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *OnboardingHandler) UpdateChecklistItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	var p services.ChecklistPatch
	if !bind(c, &p) {
		return
	}
	v, err := h.Service.UpdateChecklistItem(c.Request.Context(), actor(c), id, itemID, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *OnboardingHandler) AddNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if !bind(c, &req) {
		return
	}
	n, err := h.Service.AddNote(c.Request.Context(), actor(c), id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

type onboardingStageRequest struct {
	To models.OnboardingStage `json:"to" binding:"required"`
}

// @Summary      Move onboarding stage
// @Description  Forward-only. Moving to Concluído creates the project and its tasks in one cascade.
// @Tags         Onboarding
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                     true  "Onboarding ID"
// @Param        body  body      onboardingStageRequest  true  "Target stage"
// @Success      200   {object}  services.OnboardingResult
// @Failure      500   {object}  map[string]interface{}  "cascade failed, retryable"
// @Router       /onboarding/{id}/stage [post]
func (h *OnboardingHandler) ChangeStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req onboardingStageRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Service.ChangeStage(c.Request.Context(), actor(c), id, req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *OnboardingHandler) Finish(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.Service.Finish(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
