package handler

import (
	"net/http"
	"strconv"

	"sinedi/internal/middleware"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminRepo   *repository.AdminRepository
	withdrawals *repository.WithdrawalRepository
	profiles    *service.ProfileService
	ledger      *service.LedgerService
	wallet      *service.WalletService
}

func NewAdminHandler(
	adminRepo *repository.AdminRepository,
	withdrawals *repository.WithdrawalRepository,
	profiles *service.ProfileService,
	ledger *service.LedgerService,
	wallet *service.WalletService,
) *AdminHandler {
	return &AdminHandler{
		adminRepo:   adminRepo,
		withdrawals: withdrawals,
		profiles:    profiles,
		ledger:      ledger,
		wallet:      wallet,
	}
}

type ApproveWithdrawalRequest struct {
	Proof *models.JobResult `json:"proof" binding:"required"`
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.adminRepo.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /admin/users?search=&role=&page=&limit=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminRepo.ListUsers(c.Request.Context(), c.Query("search"), c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	page, limit := parsePagination(c)
	c.JSON(http.StatusOK, gin.H{"data": paginate(users, page, limit), "total": len(users), "page": page, "limit": limit})
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	u, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

// ListWithdrawals handles GET /admin/withdrawals?status=pending|completed.
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	var (
		list []models.Job
		err  error
	)
	switch c.DefaultQuery("status", "pending") {
	case "pending":
		list, err = h.withdrawals.ListPending(c.Request.Context())
	case "completed":
		list, err = h.withdrawals.ListCompleted(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending or completed"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	page, limit := parsePagination(c)
	c.JSON(http.StatusOK, gin.H{"data": paginate(list, page, limit), "total": len(list), "page": page, "limit": limit})
}

// ApproveWithdrawal handles POST /admin/withdrawals/:id/approve with the
// transfer proof returned by the proof upload.
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	var req ApproveWithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.ledger.ApproveWithdrawal(c.Request.Context(), middleware.GetUser(c), c.Param("id"), req.Proof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// AuditWallets handles POST /admin/audit: counts wallets whose stored
// balance differs from the one derived from the ledger.
func (h *AdminHandler) AuditWallets(c *gin.Context) {
	n, err := h.wallet.AuditDrift(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drifted": n})
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func paginate[T any](list []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
