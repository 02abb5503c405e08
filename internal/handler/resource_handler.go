package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/log"
)

// ResourceHandler serves the resource lifecycle: upload, browse, review and delivery.
type ResourceHandler struct {
	resourceService service.ResourceService
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(resourceService service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

// formTagIDs accepts tag_ids as repeated fields, a comma separated list or a JSON array.
func formTagIDs(c *gin.Context) []string {
	var ids []string
	for _, v := range c.PostFormArray("tag_ids") {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				ids = append(ids, arr...)
				continue
			}
		}
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Upload handles the multipart upload form (title, description, file, tag_ids).
func (h *ResourceHandler) Upload(c *gin.Context) {
	in := service.UploadInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		TagIDs:      formTagIDs(c),
	}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		respondBindError(c, "Upload", err)
		return
	default:
		f, err := fh.Open()
		if err != nil {
			respondError(c, "Upload: open form file", err)
			return
		}
		defer f.Close()
		in.FileName = fh.Filename
		in.ContentType = fh.Header.Get("Content-Type")
		in.Size = fh.Size
		in.Body = f
	}

	res, err := h.resourceService.Upload(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, "Upload", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Resource uploaded successfully", "resource": res})
}

// ListApproved handles GET /api/resources/approved with an optional ?tag= slug.
func (h *ResourceHandler) ListApproved(c *gin.Context) {
	resources, err := h.resourceService.ListApproved(c.Request.Context(), c.Query("tag"))
	if err != nil {
		respondError(c, "ListApproved", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// Search handles GET /api/resources/search.
func (h *ResourceHandler) Search(c *gin.Context) {
	resources, err := h.resourceService.Search(c.Request.Context(), c.Query("q"), c.Query("fileType"))
	if err != nil {
		respondError(c, "Search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// ListMine lists the caller's own uploads in every status.
func (h *ResourceHandler) ListMine(c *gin.Context) {
	resources, err := h.resourceService.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, "ListMine", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// ListAll handles GET /api/resources/all for admins, optionally filtered by ?status=.
func (h *ResourceHandler) ListAll(c *gin.Context) {
	resources, err := h.resourceService.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, "ListAll", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// Get works for anonymous callers; they only see approved resources.
func (h *ResourceHandler) Get(c *gin.Context) {
	res, err := h.resourceService.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "Get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": res})
}

// UpdateResourceRequest is the body of PUT /api/resources/:id.
type UpdateResourceRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
}

// Update edits the title and description of the caller's resource.
func (h *ResourceHandler) Update(c *gin.Context) {
	var req UpdateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "Update", err)
		return
	}
	res, err := h.resourceService.Update(c.Request.Context(), currentUser(c), c.Param("id"), req.Title, req.Description)
	if err != nil {
		respondError(c, "Update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource updated successfully", "resource": res})
}

// SetTagsRequest is the body of PUT /api/resources/:id/tags.
type SetTagsRequest struct {
	TagIDs []string `json:"tag_ids" binding:"required"`
}

// SetTags replaces the tag set of a resource.
func (h *ResourceHandler) SetTags(c *gin.Context) {
	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "SetTags", err)
		return
	}
	res, err := h.resourceService.SetTags(c.Request.Context(), currentUser(c), c.Param("id"), req.TagIDs)
	if err != nil {
		respondError(c, "SetTags", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tags updated successfully", "resource": res})
}

// Approve handles PUT /api/resources/:id/approve.
func (h *ResourceHandler) Approve(c *gin.Context) {
	res, err := h.resourceService.Approve(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "Approve", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource approved successfully", "resource": res})
}

// RejectRequest is the optional body of PUT /api/resources/:id/reject.
type RejectRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// Reject takes an optional {"reason": "..."} body.
func (h *ResourceHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, "Reject", err)
		return
	}
	res, err := h.resourceService.Reject(c.Request.Context(), currentUser(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, "Reject", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource rejected", "resource": res})
}

// Delete removes a resource. Owners and admins only.
func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.resourceService.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, "Delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource deleted successfully"})
}

// View counts the view and redirects to the file.
func (h *ResourceHandler) View(c *gin.Context) {
	target, err := h.resourceService.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "View", err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// Download records the download and returns the file URL.
func (h *ResourceHandler) Download(c *gin.Context) {
	link, err := h.resourceService.Download(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "Download", err)
		return
	}
	log.Infow("resource downloaded", "resource_id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"download_url": link})
}
