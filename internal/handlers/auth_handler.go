package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"potencialize/internal/services"
	"potencialize/pkg/logger"
)

type AuthHandler struct {
	auth   *services.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Login
// @Description  Authenticates a user and returns a bearer token with the resolved permissions
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      LoginRequest  true  "Credentials"
// @Success      200    {object}  services.LoginResult
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.WithRequestID(c.Request.Context(), h.logger).Info("login rejected", zap.String("email", req.Email), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary  Current user
// @Tags     Auth
// @Produce  json
// @Security BearerAuth
// @Success  200  {object}  map[string]interface{}
// @Router   /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	u := actor(c)
	c.JSON(http.StatusOK, gin.H{"user": u, "permissions": h.auth.Permissions(u)})
}
