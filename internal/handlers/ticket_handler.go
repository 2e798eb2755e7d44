package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type TicketHandler struct {
	Service *services.TicketService
}

func NewTicketHandler(service *services.TicketService) *TicketHandler {
	return &TicketHandler{Service: service}
}

func (h *TicketHandler) Create(c *gin.Context) {
	var t models.Ticket
	if !bind(c, &t) {
		return
	}
	v, err := h.Service.Create(c.Request.Context(), actor(c), &t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *TicketHandler) List(c *gin.Context) {
	var f models.TicketFilter
	projectID, ok := optionalInt64(c, "project_id")
	if !ok {
		return
	}
	f.ProjectID = projectID
	if v := c.Query("status"); v != "" {
		st := models.TicketStatus(v)
		f.Status = &st
	}
	list, err := h.Service.List(c.Request.Context(), actor(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TicketHandler) GetByID(c *gin.Context) {
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

func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p services.TicketPatch
	if !bind(c, &p) {
		return
	}
	v, err := h.Service.Update(c.Request.Context(), actor(c), id, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type replyRequest struct {
	Text string `json:"text" binding:"required"`
}

// @Summary      Reply to ticket
// @Description  Appends an interaction; the author's role drives the status and the SLA clock
// @Tags         Tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int           true  "Ticket ID"
// @Param        body  body      replyRequest  true  "Message"
// @Success      201   {object}  services.TicketView
// @Router       /tickets/{id}/interactions [post]
func (h *TicketHandler) Reply(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.Service.Reply(c.Request.Context(), actor(c), id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *TicketHandler) Resolve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.Service.Resolve(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
