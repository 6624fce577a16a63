package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
	"github.com/ncruz89/share-space-app-backend/internal/services"
	"github.com/ncruz89/share-space-app-backend/internal/uploads"
)

type signupRequest struct {
	Username string `form:"username" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Signup expects the image middleware to have stored the avatar.
func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperr.Wrap(apperr.KindValidation, errInvalidInputs.Message, err))
		return
	}

	image, ok := uploads.FromContext(c)
	if !ok {
		_ = c.Error(errInvalidInputs)
		return
	}

	session, err := h.users.Register(c.Request.Context(), services.Signup{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ImageRef: image.Ref,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperr.Wrap(apperr.KindValidation, errInvalidInputs.Message, err))
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, session)
}
