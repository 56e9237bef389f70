package repository

import (
	"context"
	"sort"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

type NotificationRepository struct {
	st store.Store
}

func NewNotificationRepository(st store.Store) *NotificationRepository {
	return &NotificationRepository{st: st}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	data, err := store.Encode(n)
	if err != nil {
		return err
	}
	delete(data, "id")
	id, err := r.st.Create(ctx, domain.CollectionNotifications, data)
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

var decodeNotification = decodeInto(func(n *models.Notification, id string) { n.ID = id })

// ListByUserID returns the user's notifications newest first.
func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string) ([]models.Notification, error) {
	docs, err := r.st.Query(ctx, domain.CollectionNotifications, store.Eq("userId", userID))
	if err != nil {
		return nil, err
	}
	list, err := decodeAll(docs, decodeNotification)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, k int) bool { return list[i].CreatedAt > list[k].CreatedAt })
	return list, nil
}

// MarkRead only touches notifications addressed to userID.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	doc, err := r.st.Get(ctx, domain.CollectionNotifications, id)
	if err != nil {
		return notFound(err)
	}
	if owner, _ := doc.Data["userId"].(string); owner != userID {
		return ErrNotFound
	}
	return notFound(r.st.Update(ctx, domain.CollectionNotifications, id, map[string]interface{}{"isRead": true}))
}

// MarkAllRead returns how many notifications changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	docs, err := r.st.Query(ctx, domain.CollectionNotifications, store.Eq("userId", userID), store.Eq("isRead", false))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if err := r.st.Update(ctx, domain.CollectionNotifications, d.ID, map[string]interface{}{"isRead": true}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
