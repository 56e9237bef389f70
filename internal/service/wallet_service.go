package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sinedi/config"
	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
)

// WalletService handles withdrawals, wallet history and reconciliation.
type WalletService struct {
	st     store.Store
	users  *repository.UserRepository
	jobs   *repository.JobRepository
	wallet *repository.WalletRepository
	notify Notifier
	cfg    config.WalletConfig
	now    func() time.Time
}

func NewWalletService(st store.Store, users *repository.UserRepository, jobs *repository.JobRepository, wallet *repository.WalletRepository, notify Notifier, cfg config.WalletConfig) *WalletService {
	return &WalletService{st: st, users: users, jobs: jobs, wallet: wallet, notify: notify, cfg: cfg, now: time.Now}
}

type WithdrawInput struct {
	Amount      int64              `json:"amount" binding:"required,gt=0"`
	BankDetails models.BankDetails `json:"bankDetails" binding:"required"`
}

type WithdrawQuote struct {
	Amount    int64 `json:"amount"`
	AdminFee  int64 `json:"adminFee"`
	NetAmount int64 `json:"netAmount"`
}

// Quote computes the admin fee as floor(amount * percent / 100).
func (s *WalletService) Quote(amount int64) WithdrawQuote {
	fee := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(s.cfg.AdminFeePercent)).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	return WithdrawQuote{Amount: amount, AdminFee: fee, NetAmount: amount - fee}
}

func (s *WalletService) validateWithdraw(in WithdrawInput) error {
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.Amount < s.cfg.MinWithdrawal {
		return fmt.Errorf("%w: minimum withdrawal is Rp %d", ErrValidation, s.cfg.MinWithdrawal)
	}
	b := in.BankDetails
	if strings.TrimSpace(b.Bank) == "" || strings.TrimSpace(b.AccountNumber) == "" || strings.TrimSpace(b.AccountName) == "" {
		return fmt.Errorf("%w: bank, account number and account name are required", ErrValidation)
	}
	return nil
}

// Withdraw debits the wallet, opens a withdraw job awaiting transfer and logs
// the debit. The three writes commit together or not at all.
func (s *WalletService) Withdraw(ctx context.Context, user *models.User, in WithdrawInput) (*models.Job, error) {
	if err := s.validateWithdraw(in); err != nil {
		return nil, err
	}
	q := s.Quote(in.Amount)
	jobID := s.jobs.NewID()
	txID := s.wallet.NewID()
	bank := in.BankDetails

	var out *models.Job
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := repository.TxGetUser(tx, user.ID)
		if err != nil {
			return err
		}
		if in.Amount > u.Wallet {
			return ErrInsufficientBalance
		}
		now := timestamp(s.now())
		j := &models.Job{
			ID:          jobID,
			Type:        domain.JobTypeWithdraw,
			Status:      domain.StatusProcessing,
			Title:       "Penarikan Dana",
			Price:       in.Amount,
			CreatedAt:   now,
			TutorID:     u.ID,
			TutorName:   u.Name,
			BankDetails: &bank,
			AdminFee:    q.AdminFee,
			NetAmount:   q.NetAmount,
		}
		data, err := store.Encode(j)
		if err != nil {
			return err
		}
		if err := tx.Update(domain.CollectionUsers, u.ID, map[string]interface{}{"wallet": u.Wallet - in.Amount}); err != nil {
			return err
		}
		if err := tx.Set(domain.CollectionJobs, j.ID, data); err != nil {
			return err
		}
		out = j
		return repository.TxAppendTransaction(tx, txID, &models.WalletTransaction{
			UserID:    u.ID,
			Amount:    -in.Amount,
			Type:      domain.TxWithdraw,
			Title:     "Penarikan ke " + bank.Bank,
			Reference: j.ID,
			CreatedAt: now,
		})
	})
	if err != nil {
		if !isBusinessError(err) {
			logger.WithField("user_id", user.ID).Errorf("[wallet] withdraw failed: %v", err)
		}
		return nil, err
	}

	logger.WithFields(map[string]interface{}{"user_id": user.ID, "job_id": out.ID}).
		Infof("[wallet] withdraw requested amount=%d fee=%d", in.Amount, q.AdminFee)
	s.notify.Notify(ctx, user.ID, domain.NotifyInfo, "Penarikan Diproses",
		fmt.Sprintf("Penarikan Rp %d sedang diproses.", q.NetAmount), "/wallet")
	return out, nil
}

// DeriveWallet is the balance implied by the ledger: opening balance plus
// finished non-withdraw jobs the user tutored, minus every withdrawal.
func DeriveWallet(userID string, opening int64, jobs []models.Job) int64 {
	total := opening
	for _, j := range jobs {
		if j.TutorID != userID {
			continue
		}
		if domain.IsWithdrawType(j.Type) {
			total -= j.Price
			continue
		}
		if j.IsDone() {
			total += j.Price
		}
	}
	return total
}

type RecalculateResult struct {
	Previous int64 `json:"previous"`
	Wallet   int64 `json:"wallet"`
}

// Recalculate overwrites the stored wallet with the derived balance and logs
// any difference as an adjustment.
func (s *WalletService) Recalculate(ctx context.Context, user *models.User) (*RecalculateResult, error) {
	var res RecalculateResult
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := repository.TxGetUser(tx, user.ID)
		if err != nil {
			return err
		}
		docs, err := tx.Query(domain.CollectionJobs, store.Eq("tutorId", u.ID))
		if err != nil {
			return err
		}
		jobs := make([]models.Job, 0, len(docs))
		for _, d := range docs {
			j, err := repository.DecodeJob(d)
			if err != nil {
				return err
			}
			jobs = append(jobs, *j)
		}
		res = RecalculateResult{Previous: u.Wallet, Wallet: DeriveWallet(u.ID, u.OpeningBalance, jobs)}
		if res.Previous == res.Wallet {
			return nil
		}
		if err := tx.Update(domain.CollectionUsers, u.ID, map[string]interface{}{"wallet": res.Wallet}); err != nil {
			return err
		}
		return repository.TxAppendTransaction(tx, s.wallet.NewID(), &models.WalletTransaction{
			UserID:    u.ID,
			Amount:    res.Wallet - res.Previous,
			Type:      domain.TxAdjust,
			Title:     "Koreksi Saldo",
			CreatedAt: timestamp(s.now()),
		})
	})
	if err != nil {
		return nil, err
	}
	if res.Previous != res.Wallet {
		logger.WithField("user_id", user.ID).Warnf("[wallet] recalculated %d -> %d", res.Previous, res.Wallet)
	}
	return &res, nil
}

type TutorStats struct {
	Wallet      int64        `json:"wallet"`
	TotalEarned int64        `json:"totalEarned"`
	Completed   int          `json:"completed"`
	Active      int          `json:"active"`
	Withdrawn   int64        `json:"withdrawn"`
	Rating      float64      `json:"rating"`
	ReviewCount int          `json:"reviewCount"`
	History     []models.Job `json:"history"`
}

// TutorStats summarises the tutor's jobs. Rating and review count come from
// the reviews embedded in finished jobs; History lists those jobs newest first.
func (s *WalletService) TutorStats(ctx context.Context, userID string) (*TutorStats, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListByTutor(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &TutorStats{Wallet: u.Wallet, History: []models.Job{}}
	var reviews []models.Review
	for _, j := range jobs {
		switch {
		case domain.IsWithdrawType(j.Type):
			st.Withdrawn += j.Price
		case domain.IsDoneLike(string(j.Status)):
			st.Completed++
			st.TotalEarned += j.Price
			st.History = append(st.History, j)
			if j.Review != nil {
				reviews = append(reviews, *j.Review)
			}
		case j.Status == domain.StatusInProgress:
			st.Active++
		}
	}
	st.Rating = AverageRating(reviews)
	st.ReviewCount = len(reviews)
	return st, nil
}

func (s *WalletService) History(ctx context.Context, userID string) ([]models.WalletTransaction, error) {
	return s.wallet.ListByUserID(ctx, userID)
}

// AuditDrift compares every tutor's stored wallet with the derived balance and
// logs mismatches. It never writes.
func (s *WalletService) AuditDrift(ctx context.Context) (int, error) {
	tutors, err := s.users.ListByRole(ctx, domain.RoleTutor)
	if err != nil {
		return 0, err
	}
	drifted := 0
	for _, u := range tutors {
		jobs, err := s.jobs.ListByTutor(ctx, u.ID)
		if err != nil {
			return drifted, err
		}
		derived := DeriveWallet(u.ID, u.OpeningBalance, jobs)
		if derived != u.Wallet {
			drifted++
			logger.WithFields(map[string]interface{}{
				"user_id": u.ID,
				"stored":  u.Wallet,
				"derived": derived,
			}).Warn("[wallet] balance drift")
		}
	}
	logger.Infof("[wallet] drift audit checked %d tutors, %d drifted", len(tutors), drifted)
	return drifted, nil
}
