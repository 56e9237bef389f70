package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		stars []int
		want  float64
	}{
		{nil, 0},
		{[]int{5}, 5},
		{[]int{4, 5, 5}, 4.7},
		{[]int{1, 2}, 1.5},
		{[]int{3, 4, 4}, 3.7},
	}
	for _, tc := range tests {
		reviews := make([]models.Review, 0, len(tc.stars))
		for _, s := range tc.stars {
			reviews = append(reviews, models.Review{Stars: s})
		}
		assert.Equal(t, tc.want, AverageRating(reviews), "%v", tc.stars)
	}
}

// finishedJob runs a task through to done and returns it.
func finishedJob(t *testing.T, f *fixture, student, tutor *models.User, title string) *models.Job {
	t.Helper()
	j := f.queuedTask(t, student, title, 10000)
	_, err := f.ledger.TakeJob(f.ctx, tutor, j.ID)
	require.NoError(t, err)
	j, err = f.ledger.FinishJob(f.ctx, tutor, j.ID, &models.JobResult{URL: "https://x.example"})
	require.NoError(t, err)
	return j
}

func TestReview_SubmitAggregates(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)

	for i, stars := range []int{4, 5, 5} {
		j := finishedJob(t, f, student, tutor, "Tugas")
		r, err := f.reviews.Submit(f.ctx, student, j.ID, ReviewInput{Stars: stars, Text: " mantap "})
		require.NoError(t, err)
		assert.Equal(t, "mantap", r.Text)

		stored := f.job(t, j.ID)
		assert.True(t, stored.HasReviewed)
		require.NotNil(t, stored.Review)
		assert.Equal(t, stars, stored.Review.Stars)
		assert.Equal(t, i+1, f.reload(t, tutor).ReviewCount)
	}

	u := f.reload(t, tutor)
	assert.Equal(t, 4.7, u.Rating)
	assert.Len(t, u.Reviews, 3)

	list, err := f.reviews.TutorReviews(f.ctx, tutor.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	rating, err := f.reviews.TutorRating(f.ctx, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, &TutorRating{Rating: 4.7, ReviewCount: 3}, rating)

	notes := f.notify.to(tutor.ID)
	assert.Equal(t, "Ulasan Baru", notes[len(notes)-1].Title)
}

func TestReview_Rejections(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "siti", domain.RoleStudent, 0)
	stranger := f.user(t, "joko", domain.RoleStudent, 0)
	tutor := f.user(t, "budi", domain.RoleTutor, 0)

	done := finishedJob(t, f, student, tutor, "Selesai")
	open := f.queuedTask(t, student, "Belum", 10000)

	_, err := f.reviews.Submit(f.ctx, student, done.ID, ReviewInput{Stars: 0})
	assert.ErrorIs(t, err, ErrRatingRequired)
	_, err = f.reviews.Submit(f.ctx, student, done.ID, ReviewInput{Stars: 6})
	assert.ErrorIs(t, err, ErrRatingRequired)
	_, err = f.reviews.Submit(f.ctx, stranger, done.ID, ReviewInput{Stars: 5})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.reviews.Submit(f.ctx, student, open.ID, ReviewInput{Stars: 5})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.reviews.Submit(f.ctx, student, done.ID, ReviewInput{Stars: 3})
	require.NoError(t, err)
	_, err = f.reviews.Submit(f.ctx, student, done.ID, ReviewInput{Stars: 5})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	u := f.reload(t, tutor)
	assert.Equal(t, 1, u.ReviewCount)
	assert.Equal(t, 3.0, u.Rating)

	_, err = f.reviews.TutorReviews(f.ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
