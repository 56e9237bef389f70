package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sinedi/config"
	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
	"sinedi/pkg/payment"

	"github.com/sirupsen/logrus"
)

// Notifier delivers best-effort notifications; it never reports failure.
type Notifier interface {
	Notify(ctx context.Context, userID, notifType, title, desc, link string)
}

// LedgerService owns job creation and every job status transition.
type LedgerService struct {
	st       store.Store
	jobs     *repository.JobRepository
	users    *repository.UserRepository
	videos   *repository.VideoRepository
	notify   Notifier
	payments payment.Provider
	cfg      config.LedgerConfig
	now      func() time.Time
}

func NewLedgerService(st store.Store, jobs *repository.JobRepository, users *repository.UserRepository, videos *repository.VideoRepository, notify Notifier, payments payment.Provider, cfg config.LedgerConfig) *LedgerService {
	if cfg.MaxActiveJobs <= 0 {
		cfg.MaxActiveJobs = 3
	}
	return &LedgerService{st: st, jobs: jobs, users: users, videos: videos, notify: notify, payments: payments, cfg: cfg, now: time.Now}
}

type CreateOrderInput struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Price      int64  `json:"price" binding:"gte=0"`
	TutorID    string `json:"tutorId"`
	Deadline   string `json:"deadline"`
	Difficulty string `json:"difficulty"`
	Details    string `json:"details"`
	VideoID    string `json:"videoId"`
}

func jobLog(jobID string) *logrus.Entry {
	return logger.WithField("job_id", jobID)
}

// CreateOrder writes a new Unpaid job for student and returns it.
func (s *LedgerService) CreateOrder(ctx context.Context, student *models.User, in CreateOrderInput) (*models.Job, error) {
	jobType := strings.TrimSpace(in.Type)
	if jobType == "" {
		jobType = domain.JobTypeTask
	}
	j := &models.Job{
		ID:          s.jobs.NewID(),
		Type:        jobType,
		Status:      domain.StatusUnpaid,
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		CreatedAt:   timestamp(s.now()),
		StudentID:   student.ID,
		StudentName: student.Name,
		Deadline:    in.Deadline,
		Difficulty:  in.Difficulty,
		Details:     in.Details,
	}

	switch {
	case domain.IsTaskType(jobType):
		if in.TutorID != "" {
			if err := s.assignTutor(ctx, j, in.TutorID); err != nil {
				return nil, err
			}
		}
	case jobType == domain.JobTypeMentoring:
		if in.TutorID == "" {
			return nil, fmt.Errorf("%w: mentoring needs a tutor", ErrValidation)
		}
		if err := s.assignTutor(ctx, j, in.TutorID); err != nil {
			return nil, err
		}
		if j.Difficulty == "" {
			j.Difficulty = "mentor"
		}
	case domain.IsVideoType(jobType):
		if in.VideoID == "" {
			return nil, fmt.Errorf("%w: videoId is required", ErrValidation)
		}
		v, err := s.videos.GetByID(ctx, in.VideoID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(v.URL) == "" {
			return nil, fmt.Errorf("%w: video %s has no url", ErrValidation, v.ID)
		}
		j.Title = "Video: " + v.Title
		j.Price = v.Price
		j.VideoID = v.ID
		j.VideoURL = v.URL
		j.TutorID = v.TutorID
		j.TutorName = v.TutorName
		j.Deadline = "-"
		j.Difficulty = "video"
		j.Details = "Kategori: " + v.Category
	default:
		return nil, fmt.Errorf("%w: unsupported order type %q", ErrValidation, jobType)
	}

	if j.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := s.jobs.Set(ctx, j); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	jobLog(j.ID).Infof("[ledger] order created type=%s price=%d", j.Type, j.Price)

	if j.TutorID != "" && !domain.IsVideoType(j.Type) {
		s.notify.Notify(ctx, j.TutorID, domain.NotifyInfo, "Permintaan Mentoring Baru", "Ada request masuk: "+j.Title, "/activity")
	}
	return j, nil
}

func (s *LedgerService) assignTutor(ctx context.Context, j *models.Job, tutorID string) error {
	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: tutor not found", ErrValidation)
		}
		return err
	}
	if !tutor.IsTutor() {
		return fmt.Errorf("%w: %s is not a tutor", ErrValidation, tutor.Name)
	}
	j.TutorID = tutor.ID
	j.TutorName = tutor.Name
	if j.Price == 0 && tutor.TutorProfile != nil {
		j.Price = tutor.TutorProfile.Price
	}
	return nil
}

// GetJob returns a job visible to actor: its participants, admins, and
// tutors looking at an open queued task.
func (s *LedgerService) GetJob(ctx context.Context, actor *models.User, jobID string) (*models.Job, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || j.HasParticipant(actor.ID) {
		return j, nil
	}
	if actor.IsTutor() && j.Status == domain.StatusQueued && domain.IsTaskType(j.Type) && j.TutorID == "" {
		return j, nil
	}
	return nil, ErrForbidden
}

// PaymentIntent opens a simulated checkout for an Unpaid order. The expiry is
// informational; PayOrder does not check it.
func (s *LedgerService) PaymentIntent(ctx context.Context, student *models.User, jobID string) (*payment.PaymentResponse, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.StudentID != student.ID {
		return nil, ErrForbidden
	}
	if j.Status != domain.StatusUnpaid {
		return nil, ErrInvalidTransition
	}
	return s.payments.InitiatePayment(ctx, payment.PaymentRequest{
		OrderID:   j.ID,
		UserID:    student.ID,
		Amount:    j.Price,
		Title:     j.Title,
		ExpiresIn: s.cfg.PaymentWindow,
	})
}

// PayOrder settles an Unpaid order. Video purchases complete immediately and
// pay the video's tutor in the same transaction; everything else is queued.
func (s *LedgerService) PayOrder(ctx context.Context, student *models.User, jobID string) (*models.Job, error) {
	var out *models.Job
	var credited int64
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		credited = 0
		j, err := repository.TxGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if j.StudentID != student.ID && !student.IsAdmin() {
			return ErrForbidden
		}
		if j.Status != domain.StatusUnpaid {
			return ErrInvalidTransition
		}

		if !domain.IsVideoType(j.Type) {
			j.Status = domain.StatusQueued
			out = j
			return tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{"status": j.Status})
		}

		var tutor *models.User
		if j.TutorID != "" {
			tutor, err = repository.TxGetUser(tx, j.TutorID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		if j.VideoURL == "" {
			return fmt.Errorf("%w: video order %s has no url", ErrValidation, j.ID)
		}
		j.Status = domain.StatusDone
		j.Result = &models.JobResult{Type: domain.ResultLink, Name: "Tonton Video", URL: j.VideoURL}
		if err := tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{
			"status": j.Status,
			"result": j.Result,
		}); err != nil {
			return err
		}
		if tutor != nil {
			if err := s.stageCredit(tx, tutor, j); err != nil {
				return err
			}
			credited = j.Price
		}
		out = j
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			jobLog(jobID).Errorf("[ledger] pay order failed: %v", err)
		}
		return nil, err
	}

	jobLog(out.ID).Infof("[ledger] order paid, status=%s", out.Status)
	if out.IsDone() {
		s.notify.Notify(ctx, out.StudentID, domain.NotifySuccess, "Pembayaran Berhasil", "Video siap ditonton: "+out.Title, "/activity")
		if credited > 0 {
			s.notify.Notify(ctx, out.TutorID, domain.NotifySuccess, "Saldo Masuk", fmt.Sprintf("%s terjual. +Rp %d", out.Title, credited), "/wallet")
		}
	} else {
		s.notify.Notify(ctx, out.StudentID, domain.NotifySuccess, "Pembayaran Berhasil", "Pembayaran terkonfirmasi.", "/activity")
	}
	return out, nil
}

// TakeJob claims a queued job for tutor. The claim fails when another tutor
// got there first or when the tutor already holds the maximum number of
// jobs in progress.
func (s *LedgerService) TakeJob(ctx context.Context, tutor *models.User, jobID string) (*models.Job, error) {
	var out *models.Job
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		j, err := repository.TxGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if domain.IsWithdrawType(j.Type) || domain.IsVideoType(j.Type) {
			return ErrInvalidTransition
		}
		if j.Status == domain.StatusInProgress && j.TutorID != tutor.ID {
			return ErrAlreadyClaimed
		}
		if j.Status != domain.StatusQueued {
			return ErrInvalidTransition
		}
		if j.TutorID != "" && j.TutorID != tutor.ID {
			return ErrAlreadyClaimed
		}

		docs, err := tx.Query(domain.CollectionJobs, store.Eq("tutorId", tutor.ID))
		if err != nil {
			return err
		}
		active := 0
		for _, d := range docs {
			held, err := repository.DecodeJob(d)
			if err != nil {
				return err
			}
			if held.Status == domain.StatusInProgress {
				active++
			}
		}
		if active >= s.cfg.MaxActiveJobs {
			return ErrTooManyActiveJobs
		}

		j.Status = domain.StatusInProgress
		j.TutorID = tutor.ID
		j.TutorName = tutor.Name
		out = j
		return tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{
			"status":    j.Status,
			"tutorId":   j.TutorID,
			"tutorName": j.TutorName,
		})
	})
	if err != nil {
		return nil, err
	}

	jobLog(out.ID).WithField("user_id", tutor.ID).Info("[ledger] job taken")
	if out.Type == domain.JobTypeMentoring {
		s.notify.Notify(ctx, out.StudentID, domain.NotifySuccess, "Mentoring Diterima", tutor.Name+" menerima permintaan mentoringmu.", "/chat/"+out.ID)
	} else {
		s.notify.Notify(ctx, out.StudentID, domain.NotifyInfo, "Tutor Menemukanmu!", tutor.Name+" mengambil tugasmu.", "/activity")
	}
	return out, nil
}

// FinishJob marks a job done, stores its result and pays the tutor, all in one
// transaction. Finishing a job that is already done changes nothing.
func (s *LedgerService) FinishJob(ctx context.Context, actor *models.User, jobID string, result *models.JobResult) (*models.Job, error) {
	var (
		out      *models.Job
		noop     bool
		credited int64
	)
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		noop, credited = false, 0
		j, err := repository.TxGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if j.IsDone() {
			out, noop = j, true
			return nil
		}
		if domain.IsWithdrawType(j.Type) {
			if !actor.IsAdmin() {
				return ErrForbidden
			}
			out = j
			return stageWithdrawProof(j, tx, result)
		}
		if j.Status != domain.StatusInProgress && j.Status != domain.StatusQueued {
			return ErrInvalidTransition
		}

		switch {
		case j.TutorID == "" && actor.IsTutor():
			j.TutorID = actor.ID
			j.TutorName = actor.Name
		case actor.IsAdmin() && j.TutorID == "":
			return ErrInvalidTransition
		case j.TutorID == actor.ID, actor.IsAdmin():
		default:
			return ErrForbidden
		}

		res, err := normalizeResult(j, result)
		if err != nil {
			return err
		}

		var tutor *models.User
		if j.TutorID != "" {
			tutor, err = repository.TxGetUser(tx, j.TutorID)
			if errors.Is(err, repository.ErrNotFound) {
				jobLog(j.ID).Warnf("[ledger] tutor %s missing, finishing without payout", j.TutorID)
				tutor = nil
			} else if err != nil {
				return err
			}
		}

		j.Status = domain.StatusDone
		j.Result = res
		if err := tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{
			"status":    j.Status,
			"result":    j.Result,
			"tutorId":   j.TutorID,
			"tutorName": j.TutorName,
		}); err != nil {
			return err
		}
		if tutor != nil {
			if err := s.stageCredit(tx, tutor, j); err != nil {
				return err
			}
			credited = j.Price
		}
		out = j
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			jobLog(jobID).Errorf("[ledger] finish job failed: %v", err)
		}
		return nil, err
	}
	if noop {
		jobLog(out.ID).Info("[ledger] finish on done job ignored")
		return out, nil
	}

	if domain.IsWithdrawType(out.Type) {
		jobLog(out.ID).Info("[ledger] withdrawal transferred")
		s.notify.Notify(ctx, out.TutorID, domain.NotifySuccess, "Penarikan Berhasil",
			fmt.Sprintf("Dana Rp %d telah ditransfer ke %s.", out.NetAmount, bankLabel(out.BankDetails)), "/wallet")
		return out, nil
	}
	jobLog(out.ID).Infof("[ledger] job done, credited=%d", credited)
	s.notify.Notify(ctx, out.StudentID, domain.NotifySuccess, "Tugas Selesai", out.Title+" telah diselesaikan oleh "+out.TutorName+".", "/activity")
	if credited > 0 {
		s.notify.Notify(ctx, out.TutorID, domain.NotifySuccess, "Saldo Masuk", fmt.Sprintf("+Rp %d dari %s", credited, out.Title), "/wallet")
	}
	return out, nil
}

// ApproveWithdrawal attaches the admin's transfer proof to a pending withdrawal.
func (s *LedgerService) ApproveWithdrawal(ctx context.Context, admin *models.User, jobID string, proof *models.JobResult) (*models.Job, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !domain.IsWithdrawType(j.Type) {
		return nil, ErrInvalidTransition
	}
	return s.FinishJob(ctx, admin, jobID, proof)
}

func stageWithdrawProof(j *models.Job, tx store.Tx, proof *models.JobResult) error {
	if j.Status != domain.StatusProcessing {
		return ErrInvalidTransition
	}
	if proof == nil || proof.URL == "" {
		return fmt.Errorf("%w: transfer proof is required", ErrValidation)
	}
	p := *proof
	if p.Type == "" {
		p.Type = domain.ResultFile
	}
	if p.Name == "" {
		p.Name = "Bukti Transfer"
	}
	j.Status = domain.StatusDone
	j.Result = &p
	return tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{
		"status": j.Status,
		"result": j.Result,
	})
}

// normalizeResult defaults mentoring results and requires a file or link for
// every other job.
func normalizeResult(j *models.Job, in *models.JobResult) (*models.JobResult, error) {
	if j.Type == domain.JobTypeMentoring {
		if in == nil || in.Type == "" {
			return &models.JobResult{Type: domain.ResultMentoring, Name: "Sesi Selesai"}, nil
		}
		r := *in
		return &r, nil
	}
	if in == nil || strings.TrimSpace(in.URL) == "" {
		return nil, fmt.Errorf("%w: upload a file or a link first", ErrValidation)
	}
	r := *in
	switch r.Type {
	case domain.ResultFile, domain.ResultLink:
	case "":
		r.Type = domain.ResultLink
	default:
		return nil, fmt.Errorf("%w: unknown result type %q", ErrValidation, r.Type)
	}
	if r.Name == "" {
		r.Name = "Link Result"
	}
	return &r, nil
}

// stageCredit adds the job price to the tutor wallet and logs the income.
// Callers must have read tutor inside the same transaction.
func (s *LedgerService) stageCredit(tx store.Tx, tutor *models.User, j *models.Job) error {
	if j.Price <= 0 {
		return nil
	}
	if err := tx.Update(domain.CollectionUsers, tutor.ID, map[string]interface{}{"wallet": tutor.Wallet + j.Price}); err != nil {
		return err
	}
	return repository.TxAppendTransaction(tx, s.st.NewID(domain.CollectionTransactions), &models.WalletTransaction{
		UserID:    tutor.ID,
		Amount:    j.Price,
		Type:      domain.TxIncome,
		Title:     "Pendapatan: " + j.Title,
		Reference: j.ID,
		CreatedAt: timestamp(s.now()),
	})
}

// RejectMentoring lets the requested tutor decline a mentoring booking. The
// student is not refunded.
func (s *LedgerService) RejectMentoring(ctx context.Context, tutor *models.User, jobID string) (*models.Job, error) {
	var out *models.Job
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		j, err := repository.TxGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if j.Type != domain.JobTypeMentoring {
			return ErrInvalidTransition
		}
		if j.TutorID != tutor.ID {
			return ErrForbidden
		}
		if j.Status != domain.StatusQueued && j.Status != domain.StatusUnpaid {
			return ErrInvalidTransition
		}
		j.Status = domain.StatusCancelled
		out = j
		return tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{"status": j.Status})
	})
	if err != nil {
		return nil, err
	}
	jobLog(out.ID).Info("[ledger] mentoring rejected")
	s.notify.Notify(ctx, out.StudentID, domain.NotifyError, "Mentoring Ditolak", tutor.Name+" tidak dapat menerima permintaan: "+out.Title, "/activity")
	return out, nil
}

// SetMeetingLink stores the video-call link of a mentoring session.
func (s *LedgerService) SetMeetingLink(ctx context.Context, tutor *models.User, jobID, link string) (*models.Job, error) {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return nil, fmt.Errorf("%w: meeting link must be an http(s) URL", ErrValidation)
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Type != domain.JobTypeMentoring {
		return nil, ErrInvalidTransition
	}
	if j.TutorID != tutor.ID {
		return nil, ErrForbidden
	}
	if j.IsDone() || j.Status == domain.StatusCancelled {
		return nil, ErrInvalidTransition
	}
	if err := s.jobs.Update(ctx, j.ID, map[string]interface{}{"meetingLink": link}); err != nil {
		return nil, err
	}
	j.MeetingLink = link
	s.notify.Notify(ctx, j.StudentID, domain.NotifyInfo, "Link Meeting Tersedia", "Link meeting untuk "+j.Title+" sudah dikirim.", link)
	return j, nil
}

// Queue lists the jobs tutor can take: open tasks plus mentoring requests
// addressed to them, optionally narrowed to a deadline bucket.
func (s *LedgerService) Queue(ctx context.Context, tutor *models.User, bucket string) ([]models.Job, error) {
	queued, err := s.jobs.ListQueued(ctx)
	if err != nil {
		return nil, err
	}
	allowed, filtered := domain.DeadlineBuckets[bucket]
	out := make([]models.Job, 0, len(queued))
	for _, j := range queued {
		switch {
		case domain.IsTaskType(j.Type):
			if j.TutorID != "" && j.TutorID != tutor.ID {
				continue
			}
		case j.Type == domain.JobTypeMentoring:
			if j.TutorID != tutor.ID {
				continue
			}
		default:
			continue
		}
		if filtered && !contains(allowed, j.Deadline) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// Activity tabs.
const (
	TabAll      = "Semua"
	TabQueue    = "Antrian"
	TabProgress = "Proses"
	TabDone     = "Selesai"
)

// Activity lists the user's own jobs for one activity tab. Students see
// their orders; tutors see assigned work and their withdrawals.
func (s *LedgerService) Activity(ctx context.Context, user *models.User, tab string) ([]models.Job, error) {
	var all []models.Job
	if user.IsTutor() {
		if tab == TabAll || tab == TabQueue || tab == "" {
			tab = TabProgress
		}
		mine, err := s.jobs.ListByTutor(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		for _, j := range mine {
			if domain.IsWithdrawType(j.Type) || j.Status == domain.StatusInProgress || j.IsDone() {
				all = append(all, j)
			}
		}
	} else {
		mine, err := s.jobs.ListByStudent(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		for _, j := range mine {
			if !domain.IsWithdrawType(j.Type) {
				all = append(all, j)
			}
		}
	}

	out := make([]models.Job, 0, len(all))
	for _, j := range all {
		var keep bool
		switch tab {
		case TabQueue:
			keep = j.Status == domain.StatusQueued && j.Type != domain.JobTypeVideoBuy
		case TabProgress:
			keep = j.Status == domain.StatusInProgress || j.Status == domain.StatusProcessing
		case TabDone:
			keep = j.IsDone() || j.Type == domain.JobTypeVideoBuy
		default:
			keep = true
		}
		if keep {
			out = append(out, j)
		}
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func bankLabel(b *models.BankDetails) string {
	if b == nil {
		return "rekeningmu"
	}
	return b.Bank + " " + b.AccountNumber
}

// isBusinessError reports errors that reject a request rather than signal a
// store failure.
func isBusinessError(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrValidation, ErrForbidden, ErrInvalidTransition, ErrAlreadyClaimed,
		ErrTooManyActiveJobs, ErrInsufficientBalance, ErrChatLocked, ErrNotParticipant,
		ErrAlreadyReviewed, ErrRatingRequired,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
