package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/internal/domain"
	"sinedi/internal/models"
)

func TestLedger_TaskLifecycle(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)

	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Type: "joki", Title: "Makalah Sejarah", Price: 150000, Deadline: "Besok"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnpaid, j.Status)
	assert.Equal(t, "joki", j.Type)

	j, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, j.Status)

	j, err = f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, j.Status)
	assert.Equal(t, tutor.ID, j.TutorID)
	assert.Equal(t, "budi", j.TutorName)

	res := &models.JobResult{Type: domain.ResultLink, Name: "Hasil", URL: "https://drive.example/x"}
	j, err = f.ledger.FinishJob(f.ctx, tutor, j.ID, res)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, j.Status)

	stored := f.job(t, j.ID)
	assert.Equal(t, domain.StatusDone, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, "https://drive.example/x", stored.Result.URL)
	assert.Equal(t, int64(150000), f.reload(t, tutor).Wallet)

	history, err := f.wallet.ListByUserID(f.ctx, tutor.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(150000), history[0].Amount)
	assert.Equal(t, domain.TxIncome, history[0].Type)
	assert.Equal(t, j.ID, history[0].Reference)

	assert.NotEmpty(t, f.notify.to(student.ID))
	assert.NotEmpty(t, f.notify.to(tutor.ID))
}

func TestLedger_FinishTwiceCreditsOnce(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	j := f.queuedTask(t, student, "Esai", 80000)
	_, err := f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)

	res := &models.JobResult{Type: domain.ResultFile, Name: "esai.pdf", URL: "https://cdn.example/esai.pdf"}
	_, err = f.ledger.FinishJob(f.ctx, tutor, j.ID, res)
	require.NoError(t, err)
	again, err := f.ledger.FinishJob(f.ctx, tutor, j.ID, res)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, again.Status)

	assert.Equal(t, int64(80000), f.reload(t, tutor).Wallet)
	history, _ := f.wallet.ListByUserID(f.ctx, tutor.ID)
	assert.Len(t, history, 1)
}

func TestLedger_FinishRequiresResultForTasks(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	j := f.queuedTask(t, student, "Esai", 80000)
	_, err := f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)

	_, err = f.ledger.FinishJob(f.ctx, tutor, j.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, domain.StatusInProgress, f.job(t, j.ID).Status)
	assert.Zero(t, f.reload(t, tutor).Wallet)
}

func TestLedger_FinishSelfHealsTutor(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	j := f.queuedTask(t, student, "Esai", 50000)

	done, err := f.ledger.FinishJob(f.ctx, tutor, j.ID, &models.JobResult{URL: "https://x.example"})
	require.NoError(t, err)
	assert.Equal(t, tutor.ID, done.TutorID)
	assert.Equal(t, domain.ResultLink, done.Result.Type)
	assert.Equal(t, int64(50000), f.reload(t, tutor).Wallet)
}

func TestLedger_FinishRejectsOtherTutor(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	other := f.user(t, "andi", domain.RoleTutor, 0)
	j := f.queuedTask(t, student, "Esai", 50000)
	_, err := f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)

	_, err = f.ledger.FinishJob(f.ctx, other, j.ID, &models.JobResult{URL: "https://x.example"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLedger_AdminFinishNeedsClaimedJob(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	admin := f.user(t, "admin", domain.RoleAdmin, 0)
	result := &models.JobResult{URL: "https://x.example"}

	open := f.queuedTask(t, student, "Belum diambil", 30000)
	_, err := f.ledger.FinishJob(f.ctx, admin, open.ID, result)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, domain.StatusQueued, f.job(t, open.ID).Status)

	claimed := f.queuedTask(t, student, "Sudah diambil", 30000)
	_, err = f.ledger.TakeJob(f.ctx, tutor, claimed.ID)
	require.NoError(t, err)
	done, err := f.ledger.FinishJob(f.ctx, admin, claimed.ID, result)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, done.Status)
	assert.Equal(t, int64(30000), f.reload(t, tutor).Wallet)
}

func TestLedger_TakeJobRules(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	other := f.user(t, "andi", domain.RoleTutor, 0)

	unpaid, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Title: "Belum bayar", Price: 10000})
	require.NoError(t, err)
	_, err = f.ledger.TakeJob(f.ctx, tutor, unpaid.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	j := f.queuedTask(t, student, "Laporan", 90000)
	_, err = f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)
	_, err = f.ledger.TakeJob(f.ctx, other, j.ID)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, tutor.ID, f.job(t, j.ID).TutorID)
}

func TestLedger_ActiveJobLimit(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)

	for i := 0; i < 3; i++ {
		j := f.queuedTask(t, student, "Tugas", 10000)
		_, err := f.ledger.TakeJob(f.ctx, tutor, j.ID)
		require.NoError(t, err)
	}
	fourth := f.queuedTask(t, student, "Tugas keempat", 10000)
	_, err := f.ledger.TakeJob(f.ctx, tutor, fourth.ID)
	assert.ErrorIs(t, err, ErrTooManyActiveJobs)
	assert.Equal(t, domain.StatusQueued, f.job(t, fourth.ID).Status)
}

func TestLedger_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	j := f.queuedTask(t, student, "Rebutan", 70000)

	tutors := []*models.User{
		f.user(t, "t1", domain.RoleTutor, 0),
		f.user(t, "t2", domain.RoleTutor, 0),
		f.user(t, "t3", domain.RoleTutor, 0),
	}
	var wg sync.WaitGroup
	errs := make([]error, len(tutors))
	for i, tu := range tutors {
		wg.Add(1)
		go func(i int, tu *models.User) {
			defer wg.Done()
			_, errs[i] = f.ledger.TakeJob(f.ctx, tu, j.ID)
		}(i, tu)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, domain.StatusInProgress, f.job(t, j.ID).Status)
}

func TestLedger_VideoPurchaseSkipsQueue(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	v := &models.Video{Title: "Kalkulus 1", Category: "Matematika", Price: 25000, URL: "https://videos.example/k1", TutorID: tutor.ID, TutorName: tutor.Name}
	require.NoError(t, f.videos.Create(f.ctx, v))

	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Type: domain.JobTypeVideoBuy, VideoID: v.ID})
	require.NoError(t, err)
	assert.Equal(t, "Video: Kalkulus 1", j.Title)
	assert.Equal(t, int64(25000), j.Price)
	assert.Equal(t, "Kategori: Matematika", j.Details)

	j, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, j.Status)

	stored := f.job(t, j.ID)
	assert.Equal(t, domain.StatusDone, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, models.JobResult{Type: domain.ResultLink, Name: "Tonton Video", URL: "https://videos.example/k1"}, *stored.Result)
	assert.Equal(t, int64(25000), f.reload(t, tutor).Wallet)

	queue, err := f.ledger.Queue(f.ctx, tutor, "")
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestLedger_PayOnlyUnpaid(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	intruder := f.user(t, "joko", domain.RoleStudent, 0)

	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Title: "Tugas", Price: 10000})
	require.NoError(t, err)
	_, err = f.ledger.PayOrder(f.ctx, intruder, j.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	require.NoError(t, err)
	_, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLedger_CreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	other := f.user(t, "joko", domain.RoleStudent, 0)

	cases := []struct {
		name string
		in   CreateOrderInput
	}{
		{"missing title", CreateOrderInput{Price: 1000}},
		{"withdraw through orders", CreateOrderInput{Type: domain.JobTypeWithdraw, Title: "x"}},
		{"mentoring without tutor", CreateOrderInput{Type: domain.JobTypeMentoring, Title: "x"}},
		{"mentoring with a student", CreateOrderInput{Type: domain.JobTypeMentoring, Title: "x", TutorID: other.ID}},
		{"video without id", CreateOrderInput{Type: domain.JobTypeVideoBuy}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.CreateOrder(f.ctx, student, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestLedger_MentoringFlow(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	require.NoError(t, f.users.Update(f.ctx, tutor.ID, map[string]interface{}{
		"tutorProfile": map[string]interface{}{"price": 120000},
	}))

	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Type: domain.JobTypeMentoring, Title: "Belajar Statistik", TutorID: tutor.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(120000), j.Price)
	requests := f.notify.to(tutor.ID)
	require.Len(t, requests, 1)
	assert.Equal(t, "Permintaan Mentoring Baru", requests[0].Title)
	assert.Equal(t, "Ada request masuk: Belajar Statistik", requests[0].Desc)

	_, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	require.NoError(t, err)

	queue, err := f.ledger.Queue(f.ctx, tutor, "")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	other := f.user(t, "andi", domain.RoleTutor, 0)
	otherQueue, err := f.ledger.Queue(f.ctx, other, "")
	require.NoError(t, err)
	assert.Empty(t, otherQueue)

	_, err = f.ledger.SetMeetingLink(f.ctx, tutor, j.ID, "https://meet.example/abc")
	require.NoError(t, err)
	_, err = f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)

	done, err := f.ledger.FinishJob(f.ctx, tutor, j.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, &models.JobResult{Type: domain.ResultMentoring, Name: "Sesi Selesai"}, done.Result)
	assert.Equal(t, "https://meet.example/abc", f.job(t, j.ID).MeetingLink)
	assert.Equal(t, int64(120000), f.reload(t, tutor).Wallet)
}

func TestLedger_RejectMentoring(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Type: domain.JobTypeMentoring, Title: "Fisika", Price: 50000, TutorID: tutor.ID})
	require.NoError(t, err)
	_, err = f.ledger.PayOrder(f.ctx, student, j.ID)
	require.NoError(t, err)

	j, err = f.ledger.RejectMentoring(f.ctx, tutor, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, j.Status)
	assert.Zero(t, f.reload(t, tutor).Wallet)

	_, err = f.ledger.TakeJob(f.ctx, tutor, j.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLedger_QueueDeadlineBuckets(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	for _, d := range []string{"Hari ini", "Besok", "Lusa", "Bulan depan"} {
		j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Title: d, Price: 1000, Deadline: d})
		require.NoError(t, err)
		_, err = f.ledger.PayOrder(f.ctx, student, j.ID)
		require.NoError(t, err)
	}

	tests := []struct {
		bucket string
		want   int
	}{
		{"", 4},
		{"Hari Ini", 1},
		{"Besok", 1},
		{"Minggu Ini", 3},
	}
	for _, tc := range tests {
		got, err := f.ledger.Queue(f.ctx, tutor, tc.bucket)
		require.NoError(t, err)
		assert.Len(t, got, tc.want, tc.bucket)
	}
}

func TestLedger_ActivityTabs(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)

	queued := f.queuedTask(t, student, "Antri", 1000)
	working := f.queuedTask(t, student, "Dikerjakan", 1000)
	_, err := f.ledger.TakeJob(f.ctx, tutor, working.ID)
	require.NoError(t, err)

	tabIDs := func(u *models.User, tab string) []string {
		jobs, err := f.ledger.Activity(f.ctx, u, tab)
		require.NoError(t, err)
		ids := make([]string, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.ID)
		}
		return ids
	}

	assert.ElementsMatch(t, []string{queued.ID, working.ID}, tabIDs(student, TabAll))
	assert.Equal(t, []string{queued.ID}, tabIDs(student, TabQueue))
	assert.Equal(t, []string{working.ID}, tabIDs(student, TabProgress))
	assert.Empty(t, tabIDs(student, TabDone))
	assert.Equal(t, []string{working.ID}, tabIDs(tutor, TabProgress))
}

func TestLedger_GetJobAccess(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)
	stranger := f.user(t, "joko", domain.RoleStudent, 0)
	j := f.queuedTask(t, student, "Tugas", 1000)

	_, err := f.ledger.GetJob(f.ctx, student, j.ID)
	assert.NoError(t, err)
	_, err = f.ledger.GetJob(f.ctx, tutor, j.ID)
	assert.NoError(t, err)
	_, err = f.ledger.GetJob(f.ctx, stranger, j.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.ledger.GetJob(f.ctx, student, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_PaymentIntent(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	j, err := f.ledger.CreateOrder(f.ctx, student, CreateOrderInput{Title: "Tugas", Price: 150000})
	require.NoError(t, err)

	intent, err := f.ledger.PaymentIntent(f.ctx, student, j.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), intent.Amount)
	assert.Equal(t, j.ID, intent.OrderID)
}
