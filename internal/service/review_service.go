package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
)

type ReviewService struct {
	st      store.Store
	users   *repository.UserRepository
	reviews *repository.ReviewRepository
	notify  Notifier
	now     func() time.Time
}

func NewReviewService(st store.Store, users *repository.UserRepository, reviews *repository.ReviewRepository, notify Notifier) *ReviewService {
	return &ReviewService{st: st, users: users, reviews: reviews, notify: notify, now: time.Now}
}

type ReviewInput struct {
	Stars int    `json:"stars"`
	Text  string `json:"text"`
}

// AverageRating is the mean of all stars rounded to one decimal, 0 without reviews.
func AverageRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Stars
	}
	return round1(float64(sum) / float64(len(reviews)))
}

// Submit records the student's review of a finished job and refreshes the
// tutor's rating in the same transaction.
func (s *ReviewService) Submit(ctx context.Context, student *models.User, jobID string, in ReviewInput) (*models.Review, error) {
	if in.Stars < 1 || in.Stars > 5 {
		return nil, ErrRatingRequired
	}

	var (
		review  *models.Review
		tutorID string
		title   string
	)
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		j, err := repository.TxGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if j.StudentID != student.ID {
			return ErrForbidden
		}
		if !j.IsDone() {
			return ErrInvalidTransition
		}
		if j.HasReviewed {
			return ErrAlreadyReviewed
		}
		if j.TutorID == "" {
			return fmt.Errorf("%w: job has no tutor", ErrValidation)
		}
		tutor, err := repository.TxGetUser(tx, j.TutorID)
		if err != nil {
			return err
		}

		r := &models.Review{
			Stars:       in.Stars,
			Text:        strings.TrimSpace(in.Text),
			StudentName: student.Name,
			JobID:       j.ID,
			CreatedAt:   timestamp(s.now()),
		}
		all := append(append([]models.Review(nil), tutor.Reviews...), *r)

		if err := tx.Update(domain.CollectionJobs, j.ID, map[string]interface{}{
			"review":      r,
			"hasReviewed": true,
		}); err != nil {
			return err
		}
		if err := tx.Update(domain.CollectionUsers, tutor.ID, map[string]interface{}{
			"reviews":     all,
			"rating":      AverageRating(all),
			"reviewCount": len(all),
		}); err != nil {
			return err
		}
		data, err := store.Encode(r)
		if err != nil {
			return err
		}
		if err := tx.Set(domain.ReviewsPath(tutor.ID), s.reviews.NewID(tutor.ID), data); err != nil {
			return err
		}
		review, tutorID, title = r, tutor.ID, j.Title
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{"job_id": jobID, "user_id": tutorID}).Infof("[review] %d stars", review.Stars)
	s.notify.Notify(ctx, tutorID, domain.NotifySuccess, "Ulasan Baru",
		fmt.Sprintf("%s memberi %d bintang untuk %s.", student.Name, review.Stars, title), "/profile")
	return review, nil
}

func (s *ReviewService) TutorReviews(ctx context.Context, tutorID string) ([]models.Review, error) {
	if _, err := s.users.GetByID(ctx, tutorID); err != nil {
		return nil, err
	}
	return s.reviews.ListByTutor(ctx, tutorID)
}

type TutorRating struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

func (s *ReviewService) TutorRating(ctx context.Context, tutorID string) (*TutorRating, error) {
	u, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	return &TutorRating{Rating: u.Rating, ReviewCount: u.ReviewCount}, nil
}
