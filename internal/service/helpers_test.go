package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sinedi/config"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/payment"
)

type sentNotification struct {
	UserID, Type, Title, Desc, Link string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, userID, notifType, title, desc, link string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{userID, notifType, title, desc, link})
}

func (r *recordingNotifier) to(userID string) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	ctx      context.Context
	st       *store.MemoryStore
	users    *repository.UserRepository
	jobs     *repository.JobRepository
	videos   *repository.VideoRepository
	wallet   *repository.WalletRepository
	notify   *recordingNotifier
	ledger   *LedgerService
	walletSv *WalletService
	reviews  *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	f := &fixture{
		ctx:    context.Background(),
		st:     st,
		users:  repository.NewUserRepository(st),
		jobs:   repository.NewJobRepository(st),
		videos: repository.NewVideoRepository(st),
		wallet: repository.NewWalletRepository(st),
		notify: &recordingNotifier{},
	}
	f.ledger = NewLedgerService(st, f.jobs, f.users, f.videos, f.notify, payment.NewStubProvider(),
		config.LedgerConfig{MaxActiveJobs: 3, PaymentWindow: 15 * time.Minute})
	f.walletSv = NewWalletService(st, f.users, f.jobs, f.wallet, f.notify,
		config.WalletConfig{AdminFeePercent: 5, MinWithdrawal: 50000})
	f.reviews = NewReviewService(st, f.users, repository.NewReviewRepository(st), f.notify)
	return f
}

func (f *fixture) user(t *testing.T, name, role string, wallet int64) *models.User {
	t.Helper()
	u := &models.User{Name: name, Username: name, Role: role, Wallet: wallet, CreatedAt: "2024-01-01T00:00:00.000Z"}
	require.NoError(t, f.users.Create(f.ctx, u))
	return u
}

func (f *fixture) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, err := f.users.GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) job(t *testing.T, id string) *models.Job {
	t.Helper()
	j, err := f.jobs.GetByID(f.ctx, id)
	require.NoError(t, err)
	return j
}

// queuedTask creates and pays a task order for student.
func (f *fixture) queuedTask(t *testing.T, student *models.User, title string, price int64) *models.Job {
	t.Helper()
	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Title: title, Price: price, Deadline: "Besok"})
	require.NoError(t, err)
	j, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	require.NoError(t, err)
	return j
}
