package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

type RoleHandler struct {
	Service *services.RoleService
}

func NewRoleHandler(service *services.RoleService) *RoleHandler {
	return &RoleHandler{Service: service}
}

func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.Service.List(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// Save serves both POST /roles and PUT /roles/:id; the path id wins.
func (h *RoleHandler) Save(c *gin.Context) {
	var r models.Role
	if !bind(c, &r) {
		return
	}
	if id := c.Param("id"); id != "" {
		r.ID = id
	}
	saved, err := h.Service.Save(c.Request.Context(), actor(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}
	c.JSON(status, saved)
}

func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
