package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/log"
)

// AdminHandler serves user administration and the dashboard numbers.
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, "ListUsers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// DeleteUser handles DELETE /api/admin/users/:id. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	admin := currentUser(c)
	userID := c.Param("id")
	if err := h.adminService.DeleteUser(c.Request.Context(), admin, userID); err != nil {
		respondError(c, "DeleteUser", err)
		return
	}
	log.Infof("Admin '%s' deleted user %s", admin.Email, userID)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
