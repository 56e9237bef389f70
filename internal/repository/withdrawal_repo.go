package repository

import (
	"context"

	"sinedi/internal/domain"
	"sinedi/internal/models"
)

// WithdrawalRepository lists withdraw jobs for the admin transfer desk.
type WithdrawalRepository struct {
	jobs *JobRepository
}

func NewWithdrawalRepository(jobs *JobRepository) *WithdrawalRepository {
	return &WithdrawalRepository{jobs: jobs}
}

// ListPending returns withdrawals still awaiting transfer, newest first.
func (r *WithdrawalRepository) ListPending(ctx context.Context) ([]models.Job, error) {
	return r.filter(ctx, func(j *models.Job) bool { return !j.IsDone() })
}

func (r *WithdrawalRepository) ListCompleted(ctx context.Context) ([]models.Job, error) {
	return r.filter(ctx, func(j *models.Job) bool { return j.IsDone() })
}

func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID string) ([]models.Job, error) {
	return r.filter(ctx, func(j *models.Job) bool { return j.TutorID == userID })
}

func (r *WithdrawalRepository) filter(ctx context.Context, keep func(*models.Job) bool) ([]models.Job, error) {
	all, err := r.jobs.ListByType(ctx, domain.JobTypeWithdraw)
	if err != nil {
		return nil, err
	}
	out := make([]models.Job, 0, len(all))
	for i := range all {
		if keep(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}
