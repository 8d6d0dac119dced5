package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/models"
)

// CreateCategory - POST /categories
func (h *Handlers) CreateCategory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.services.Categories.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// ListCategories - GET /categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.services.Categories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCategory - GET /categories/:id
func (h *Handlers) GetCategory(c *gin.Context) {
	category, err := h.services.Categories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// UpdateCategory - PUT /categories/:id
func (h *Handlers) UpdateCategory(c *gin.Context) {
	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.services.Categories.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory - DELETE /categories/:id
func (h *Handlers) DeleteCategory(c *gin.Context) {
	if err := h.services.Categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}
