package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/service"
)

// TagHandler serves the tag catalog.
type TagHandler struct {
	tagService service.TagService
}

// NewTagHandler creates a TagHandler.
func NewTagHandler(tagService service.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// List handles GET /api/tags.
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tagService.List(c.Request.Context())
	if err != nil {
		respondError(c, "ListTags", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// CreateTagRequest is the body of POST /api/tags.
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Color string `json:"color"`
}

// Create adds a tag to the catalog.
func (h *TagHandler) Create(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "CreateTag", err)
		return
	}
	tag, err := h.tagService.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		respondError(c, "CreateTag", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Tag created successfully", "tag": tag})
}

// Delete removes a tag and unlinks it from every resource.
func (h *TagHandler) Delete(c *gin.Context) {
	if err := h.tagService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "DeleteTag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
