package handler

import (
	"net/http"

	"sinedi/internal/middleware"
	"sinedi/internal/models"
	"sinedi/internal/service"

	"github.com/gin-gonic/gin"
)

// JobHandler exposes the job ledger: orders, claims, completion, reviews and
// the per-job chat history.
type JobHandler struct {
	ledger  *service.LedgerService
	reviews *service.ReviewService
	chat    *service.ChatService
}

func NewJobHandler(ledger *service.LedgerService, reviews *service.ReviewService, chat *service.ChatService) *JobHandler {
	return &JobHandler{ledger: ledger, reviews: reviews, chat: chat}
}

type FinishRequest struct {
	Result *models.JobResult `json:"result"`
}

type MeetingLinkRequest struct {
	Link string `json:"link" binding:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *JobHandler) Create(c *gin.Context) {
	var req service.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.ledger.CreateOrder(c.Request.Context(), middleware.GetUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.ledger.GetJob(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) PaymentIntent(c *gin.Context) {
	resp, err := h.ledger.PaymentIntent(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) Pay(c *gin.Context) {
	job, err := h.ledger.PayOrder(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Take(c *gin.Context) {
	job, err := h.ledger.TakeJob(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Finish accepts an optional body; mentoring sessions finish without one.
func (h *JobHandler) Finish(c *gin.Context) {
	var req FinishRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	job, err := h.ledger.FinishJob(c.Request.Context(), middleware.GetUser(c), c.Param("id"), req.Result)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Reject(c *gin.Context) {
	job, err := h.ledger.RejectMentoring(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) SetMeetingLink(c *gin.Context) {
	var req MeetingLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.ledger.SetMeetingLink(c.Request.Context(), middleware.GetUser(c), c.Param("id"), req.Link)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Review(c *gin.Context) {
	var req service.ReviewInput
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Submit(c.Request.Context(), middleware.GetUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *JobHandler) Messages(c *gin.Context) {
	list, err := h.chat.List(c.Request.Context(), middleware.GetUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func (h *JobHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chat.Send(c.Request.Context(), middleware.GetUser(c), c.Param("id"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Queue lists jobs a tutor can take, optionally narrowed by ?deadline=.
func (h *JobHandler) Queue(c *gin.Context) {
	list, err := h.ledger.Queue(c.Request.Context(), middleware.GetUser(c), c.Query("deadline"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}
