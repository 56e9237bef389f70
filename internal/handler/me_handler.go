package handler

import (
	"net/http"
	"strconv"

	"sinedi/internal/middleware"
	"sinedi/internal/repository"
	"sinedi/internal/service"

	"github.com/gin-gonic/gin"
)

// MeHandler serves the signed-in user's own profile, wallet and activity.
type MeHandler struct {
	profiles    *service.ProfileService
	wallet      *service.WalletService
	ledger      *service.LedgerService
	withdrawals *repository.WithdrawalRepository
}

func NewMeHandler(
	profiles *service.ProfileService,
	wallet *service.WalletService,
	ledger *service.LedgerService,
	withdrawals *repository.WithdrawalRepository,
) *MeHandler {
	return &MeHandler{
		profiles:    profiles,
		wallet:      wallet,
		ledger:      ledger,
		withdrawals: withdrawals,
	}
}

func (h *MeHandler) GetProfile(c *gin.Context) {
	u, err := h.profiles.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

// UpdateProfile merges the given fields; availability and tutorProfile are
// merged key by key rather than replaced.
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.profiles.Update(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

// GetWallet reads the stored balance, not the session copy.
func (h *MeHandler) GetWallet(c *gin.Context) {
	u, err := h.profiles.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": u.Wallet})
}

func (h *MeHandler) Transactions(c *gin.Context) {
	list, err := h.wallet.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}

func (h *MeHandler) Stats(c *gin.Context) {
	stats, err := h.wallet.TutorStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *MeHandler) Recalculate(c *gin.Context) {
	res, err := h.wallet.Recalculate(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// WithdrawQuote previews fee and net amount: GET ?amount=.
func (h *MeHandler) WithdrawQuote(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}
	c.JSON(http.StatusOK, h.wallet.Quote(amount))
}

func (h *MeHandler) Withdraw(c *gin.Context) {
	var req service.WithdrawInput
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.wallet.Withdraw(c.Request.Context(), middleware.GetUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *MeHandler) Withdrawals(c *gin.Context) {
	list, err := h.withdrawals.ListByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

// Activity lists own jobs for one tab: ?tab=Semua|Antrian|Proses|Selesai.
func (h *MeHandler) Activity(c *gin.Context) {
	list, err := h.ledger.Activity(c.Request.Context(), middleware.GetUser(c), c.DefaultQuery("tab", service.TabAll))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}
