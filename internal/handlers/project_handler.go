package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type ProjectHandler struct {
	Service   *services.ProjectService
	Proposals *services.ProposalService
}

func NewProjectHandler(service *services.ProjectService, proposals *services.ProposalService) *ProjectHandler {
	return &ProjectHandler{Service: service, Proposals: proposals}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var p models.Project
	if !bind(c, &p) {
		return
	}
	if err := h.Service.Create(c.Request.Context(), actor(c), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.Service.List(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Service.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body models.Project
	if !bind(c, &body) {
		return
	}
	body.ID = id
	p, err := h.Service.Update(c.Request.Context(), actor(c), &body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
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

// @Summary      Project dashboard
// @Description  Project with derived progress, SLA flag, tasks, tickets, meetings, documents and notes
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  services.ProjectDashboard
// @Router       /projects/{id}/dashboard [get]
func (h *ProjectHandler) Dashboard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.Service.Dashboard(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *ProjectHandler) AddMeeting(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var m models.Meeting
	if !bind(c, &m) {
		return
	}
	m.ProjectID = id
	if err := h.Service.AddMeeting(c.Request.Context(), actor(c), &m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *ProjectHandler) Meetings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.Service.Meetings(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ProjectHandler) AddDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var d models.Document
	if !bind(c, &d) {
		return
	}
	d.ProjectID = id
	if err := h.Service.AddDocument(c.Request.Context(), actor(c), &d); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *ProjectHandler) Documents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.Service.Documents(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ProjectHandler) AddNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var n models.ProjectNote
	if !bind(c, &n) {
		return
	}
	n.ProjectID = id
	if err := h.Service.AddNote(c.Request.Context(), actor(c), &n); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *ProjectHandler) Notes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.Service.Notes(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ProjectHandler) ActionPlan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	plan, err := h.Proposals.ActionPlan(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": id, "plan": plan})
}
