package repository

import (
	"context"
	"sort"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

// ReviewRepository reads the users/{id}/reviews sub-collection.
type ReviewRepository struct {
	st store.Store
}

func NewReviewRepository(st store.Store) *ReviewRepository {
	return &ReviewRepository{st: st}
}

var decodeReview = decodeInto(func(*models.Review, string) {})

func (r *ReviewRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Review, error) {
	docs, err := r.st.Query(ctx, domain.ReviewsPath(tutorID))
	if err != nil {
		return nil, err
	}
	list, err := decodeAll(docs, decodeReview)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, k int) bool { return list[i].CreatedAt > list[k].CreatedAt })
	return list, nil
}

func (r *ReviewRepository) NewID(tutorID string) string {
	return r.st.NewID(domain.ReviewsPath(tutorID))
}
