package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tazkara/internal/auth"
	"tazkara/internal/models"
)

// Signup - POST /users/signup
func (h *Handlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.services.Users.Signup(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login - POST /users/login
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.services.Users.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListUsers - GET /users (admin)
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser - GET /users/:id (admin)
func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.services.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUserRole - PATCH /users/:id/role (admin)
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.services.Users.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListPermissions - GET /permissions (admin)
// Exposes the policy table so clients can adapt their UI to the caller's
// role set.
func (h *Handlers) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permissions": auth.Policy})
}
