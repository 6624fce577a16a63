package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
	"github.com/ncruz89/share-space-app-backend/internal/middleware"
	"github.com/ncruz89/share-space-app-backend/internal/services"
	"github.com/ncruz89/share-space-app-backend/internal/uploads"
)

var errInvalidInputs = apperr.Validation("Invalid inputs passed, please check your data.")

type createPlaceRequest struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description" binding:"required,min=5"`
	Address     string `form:"address" binding:"required"`
}

type updatePlaceRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required,min=5"`
}

type PlaceHandler struct {
	places *services.PlaceService
}

func NewPlaceHandler(places *services.PlaceService) *PlaceHandler {
	return &PlaceHandler{places: places}
}

func (h *PlaceHandler) GetPlaceByID(c *gin.Context) {
	place, err := h.places.GetByID(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"place": place})
}

func (h *PlaceHandler) GetPlacesByUserID(c *gin.Context) {
	places, err := h.places.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

// CreatePlace expects the image middleware to have stored the upload.
func (h *PlaceHandler) CreatePlace(c *gin.Context) {
	var req createPlaceRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperr.Wrap(apperr.KindValidation, errInvalidInputs.Message, err))
		return
	}

	image, ok := uploads.FromContext(c)
	if !ok {
		_ = c.Error(errInvalidInputs)
		return
	}

	place, err := h.places.Create(c.Request.Context(), middleware.UserID(c), services.NewPlace{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		ImageRef:    image.Ref,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"place": place})
}

func (h *PlaceHandler) UpdatePlace(c *gin.Context) {
	var req updatePlaceRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperr.Wrap(apperr.KindValidation, errInvalidInputs.Message, err))
		return
	}

	place, err := h.places.Update(c.Request.Context(), middleware.UserID(c), c.Param("placeId"), services.PlaceChanges{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updatedPlace": place})
}

func (h *PlaceHandler) DeletePlace(c *gin.Context) {
	if err := h.places.Delete(c.Request.Context(), middleware.UserID(c), c.Param("placeId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted place."})
}
