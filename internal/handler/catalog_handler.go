package handler

import (
	"net/http"
	"strconv"

	"sinedi/internal/middleware"
	"sinedi/internal/service"

	"github.com/gin-gonic/gin"
)

// VideoHandler serves the recorded-lesson catalogue.
type VideoHandler struct {
	videos *service.VideoService
}

func NewVideoHandler(videos *service.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func (h *VideoHandler) List(c *gin.Context) {
	list, err := h.videos.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": list})
}

func (h *VideoHandler) Add(c *gin.Context) {
	var req service.AddVideoInput
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.videos.Add(c.Request.Context(), middleware.GetUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// Upload takes a multipart form: file, title, category, price.
func (h *VideoHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	price, err := strconv.ParseInt(c.DefaultPostForm("price", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a number"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	in := service.AddVideoInput{Title: c.PostForm("title"), Category: c.PostForm("category"), Price: price}
	v, err := h.videos.Upload(c.Request.Context(), middleware.GetUser(c), in, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *VideoHandler) Buy(c *gin.Context) {
	job, err := h.videos.Buy(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// TutorHandler lists tutors and their public reviews.
type TutorHandler struct {
	profiles *service.ProfileService
	reviews  *service.ReviewService
}

func NewTutorHandler(profiles *service.ProfileService, reviews *service.ReviewService) *TutorHandler {
	return &TutorHandler{profiles: profiles, reviews: reviews}
}

func (h *TutorHandler) List(c *gin.Context) {
	list, err := h.profiles.ListTutors(c.Request.Context(), c.Query("subject"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tutors": list})
}

func (h *TutorHandler) Reviews(c *gin.Context) {
	id := c.Param("id")
	rating, err := h.reviews.TutorRating(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.reviews.TutorReviews(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating.Rating, "reviewCount": rating.ReviewCount, "reviews": list})
}
