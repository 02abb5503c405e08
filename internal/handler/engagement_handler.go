package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/service"
)

// EngagementHandler serves ratings and favorites on a resource.
type EngagementHandler struct {
	ratingService   service.RatingService
	favoriteService service.FavoriteService
}

// NewEngagementHandler creates an EngagementHandler.
func NewEngagementHandler(ratingService service.RatingService, favoriteService service.FavoriteService) *EngagementHandler {
	return &EngagementHandler{ratingService: ratingService, favoriteService: favoriteService}
}

// RateRequest leaves range checks to the service so a missing rating reports the range.
type RateRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// Rate handles POST /api/resources/:id/rate.
func (h *EngagementHandler) Rate(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "Rate", err)
		return
	}
	rating, err := h.ratingService.Rate(c.Request.Context(), currentUser(c), c.Param("id"), req.Rating, req.Review)
	if err != nil {
		respondError(c, "Rate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rating submitted successfully", "rating": rating})
}

// ListRatings handles GET /api/resources/:id/ratings.
func (h *EngagementHandler) ListRatings(c *gin.Context) {
	ratings, err := h.ratingService.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "ListRatings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

// MyRating responds {"rating": null} when the caller has not rated the resource.
func (h *EngagementHandler) MyRating(c *gin.Context) {
	rating, err := h.ratingService.Mine(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "MyRating", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

// ToggleFavorite handles POST /api/resources/:id/favorite.
func (h *EngagementHandler) ToggleFavorite(c *gin.Context) {
	fav, err := h.favoriteService.Toggle(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "ToggleFavorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_favorite": fav})
}

// IsFavorite handles GET /api/resources/:id/is-favorite.
func (h *EngagementHandler) IsFavorite(c *gin.Context) {
	fav, err := h.favoriteService.IsFavorite(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "IsFavorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_favorite": fav})
}

// MyFavorites lists the caller's favorited resources.
func (h *EngagementHandler) MyFavorites(c *gin.Context) {
	resources, err := h.favoriteService.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, "MyFavorites", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}
