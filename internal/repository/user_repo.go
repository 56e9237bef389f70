package repository

import (
	"context"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

type UserRepository struct {
	st store.Store
}

func NewUserRepository(st store.Store) *UserRepository {
	return &UserRepository{st: st}
}

// Create stores u under a new id and sets u.ID.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	data, err := store.Encode(u)
	if err != nil {
		return err
	}
	delete(data, "id")
	id, err := r.st.Create(ctx, domain.CollectionUsers, data)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.st.Get(ctx, domain.CollectionUsers, id)
	if err != nil {
		return nil, notFound(err)
	}
	return DecodeUser(doc)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, store.Eq("username", username))
}

// GetByName finds accounts created before usernames existed, which were
// keyed by display name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	return r.first(ctx, store.Eq("name", name))
}

func (r *UserRepository) first(ctx context.Context, f store.Filter) (*models.User, error) {
	docs, err := r.st.Query(ctx, domain.CollectionUsers, f)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return DecodeUser(docs[0])
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	docs, err := r.st.Query(ctx, domain.CollectionUsers, store.Eq("role", role))
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, DecodeUser)
}

// Update writes the given top-level fields only.
func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return notFound(r.st.Update(ctx, domain.CollectionUsers, id, fields))
}
