package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/service"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the authenticated user.
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, "GetProfile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfileRequest is the body of PUT /api/auth/profile.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required,max=255"`
}

// UpdateProfile changes the caller's full name.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "UpdateProfile", err)
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), currentUser(c).ID, req.FullName)
	if err != nil {
		respondError(c, "UpdateProfile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}
