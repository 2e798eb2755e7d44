package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type TaskHandler struct {
	Service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{Service: service}
}

func (h *TaskHandler) Create(c *gin.Context) {
	var t models.Task
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

// List accepts project_id, assigned_to and status filters; status=overdue
// matches the derived deadline status.
func (h *TaskHandler) List(c *gin.Context) {
	var f models.TaskFilter
	projectID, ok := optionalInt64(c, "project_id")
	if !ok {
		return
	}
	f.ProjectID = projectID
	if v := c.Query("assigned_to"); v != "" {
		f.AssignedTo = &v
	}
	if v := c.Query("status"); v != "" {
		st := models.TaskStatus(v)
		f.Status = &st
	}
	tasks, err := h.Service.List(c.Request.Context(), actor(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetByID(c *gin.Context) {
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

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p services.TaskPatch
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

func (h *TaskHandler) Delete(c *gin.Context) {
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

type taskStatusRequest struct {
	To      models.TaskStatus `json:"to" binding:"required"`
	Version int               `json:"version"`
}

func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req taskStatusRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.Service.ChangeStatus(c.Request.Context(), actor(c), id, req.To, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type subTaskRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *TaskHandler) AddSubTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req subTaskRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.Service.AddSubTask(c.Request.Context(), actor(c), id, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *TaskHandler) ToggleSubTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subID, ok := pathID(c, "sub_id")
	if !ok {
		return
	}
	v, err := h.Service.ToggleSubTask(c.Request.Context(), actor(c), id, subID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *TaskHandler) DeleteSubTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subID, ok := pathID(c, "sub_id")
	if !ok {
		return
	}
	v, err := h.Service.DeleteSubTask(c.Request.Context(), actor(c), id, subID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
