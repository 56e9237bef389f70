package repository

import (
	"context"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

type JobRepository struct {
	st store.Store
}

func NewJobRepository(st store.Store) *JobRepository {
	return &JobRepository{st: st}
}

func (r *JobRepository) NewID() string {
	return r.st.NewID(domain.CollectionJobs)
}

// Set writes the whole job under j.ID.
func (r *JobRepository) Set(ctx context.Context, j *models.Job) error {
	data, err := store.Encode(j)
	if err != nil {
		return err
	}
	return r.st.Set(ctx, domain.CollectionJobs, j.ID, data)
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	doc, err := r.st.Get(ctx, domain.CollectionJobs, id)
	if err != nil {
		return nil, notFound(err)
	}
	return DecodeJob(doc)
}

func (r *JobRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return notFound(r.st.Update(ctx, domain.CollectionJobs, id, fields))
}

func (r *JobRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Job, error) {
	return r.list(ctx, store.Eq("studentId", studentID))
}

func (r *JobRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Job, error) {
	return r.list(ctx, store.Eq("tutorId", tutorID))
}

func (r *JobRepository) ListByType(ctx context.Context, jobType string) ([]models.Job, error) {
	return r.list(ctx, store.Eq("type", jobType))
}

// ListQueued returns jobs waiting for a tutor, legacy "pending" included.
func (r *JobRepository) ListQueued(ctx context.Context) ([]models.Job, error) {
	return r.list(ctx, store.In("status", []string{string(domain.StatusQueued), "pending"}))
}

func (r *JobRepository) ListAll(ctx context.Context) ([]models.Job, error) {
	return r.list(ctx)
}

func (r *JobRepository) list(ctx context.Context, filters ...store.Filter) ([]models.Job, error) {
	docs, err := r.st.Query(ctx, domain.CollectionJobs, filters...)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeAll(docs, DecodeJob)
	if err != nil {
		return nil, err
	}
	SortJobsNewestFirst(jobs)
	return jobs, nil
}
