package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type DealHandler struct {
	Service   *services.DealService
	Proposals *services.ProposalService
}

func NewDealHandler(service *services.DealService, proposals *services.ProposalService) *DealHandler {
	return &DealHandler{Service: service, Proposals: proposals}
}

func (h *DealHandler) Create(c *gin.Context) {
	var deal models.Deal
	if !bind(c, &deal) {
		return
	}
	if deal.Owner == "" {
		if u := actor(c); u != nil {
			deal.Owner = u.Name
		}
	}
	if err := h.Service.Create(c.Request.Context(), actor(c), &deal); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

func (h *DealHandler) List(c *gin.Context) {
	deals, err := h.Service.List(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deals)
}

func (h *DealHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deal, err := h.Service.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// Update edits fields and the manual value override; stage and products have
// their own endpoints.
func (h *DealHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body models.Deal
	if !bind(c, &body) {
		return
	}
	body.ID = id
	deal, err := h.Service.Update(c.Request.Context(), actor(c), &body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changeStageRequest struct {
	To      models.DealStage `json:"to" binding:"required"`
	Version int              `json:"version"`
}

// @Summary      Move deal
// @Description  Forces the deal to any stage. Entering Won runs the membership automation once.
// @Tags         CRM
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Deal ID"
// @Param        body  body      changeStageRequest  true  "Target stage"
// @Success      200   {object}  services.StageChange
// @Failure      500   {object}  map[string]interface{}  "cascade failed, retryable"
// @Router       /deals/{id}/stage [post]
func (h *DealHandler) ChangeStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeStageRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Service.ChangeStage(c.Request.Context(), actor(c), id, req.To, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type setProductsRequest struct {
	Products []string `json:"products"`
	Version  int      `json:"version"`
}

func (h *DealHandler) SetProducts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setProductsRequest
	if !bind(c, &req) {
		return
	}
	deal, err := h.Service.SetProducts(c.Request.Context(), actor(c), id, req.Products, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

type proposalRequest struct {
	Scope string `json:"scope"`
}

func (h *DealHandler) Proposal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req proposalRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	p, err := h.Proposals.Generate(c.Request.Context(), actor(c), id, req.Scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
