package repository

import (
	"context"
	"sort"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

type VideoRepository struct {
	st store.Store
}

func NewVideoRepository(st store.Store) *VideoRepository {
	return &VideoRepository{st: st}
}

var decodeVideo = decodeInto(func(v *models.Video, id string) { v.ID = id })

func (r *VideoRepository) Create(ctx context.Context, v *models.Video) error {
	data, err := store.Encode(v)
	if err != nil {
		return err
	}
	delete(data, "id")
	id, err := r.st.Create(ctx, domain.CollectionVideos, data)
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	doc, err := r.st.Get(ctx, domain.CollectionVideos, id)
	if err != nil {
		return nil, notFound(err)
	}
	return decodeVideo(doc)
}

// List returns videos newest first, narrowed to category when it is set.
func (r *VideoRepository) List(ctx context.Context, category string) ([]models.Video, error) {
	var filters []store.Filter
	if category != "" {
		filters = append(filters, store.Eq("category", category))
	}
	docs, err := r.st.Query(ctx, domain.CollectionVideos, filters...)
	if err != nil {
		return nil, err
	}
	list, err := decodeAll(docs, decodeVideo)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, k int) bool { return list[i].CreatedAt > list[k].CreatedAt })
	return list, nil
}
