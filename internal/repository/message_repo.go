package repository

import (
	"context"
	"sort"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

type MessageRepository struct {
	st store.Store
}

func NewMessageRepository(st store.Store) *MessageRepository {
	return &MessageRepository{st: st}
}

var decodeMessage = decodeInto(func(m *models.ChatMessage, id string) { m.ID = id })

func (r *MessageRepository) NewID(jobID string) string {
	return r.st.NewID(domain.MessagesPath(jobID))
}

// TxAppend stages the message under id with a store-assigned createdAt.
func TxAppend(tx store.Tx, jobID, id string, m *models.ChatMessage) error {
	return tx.Set(domain.MessagesPath(jobID), id, map[string]interface{}{
		"text":      m.Text,
		"sender":    m.Sender,
		"senderId":  m.SenderID,
		"role":      m.Role,
		"createdAt": store.ServerTimestamp,
	})
}

func (r *MessageRepository) Get(ctx context.Context, jobID, id string) (*models.ChatMessage, error) {
	doc, err := r.st.Get(ctx, domain.MessagesPath(jobID), id)
	if err != nil {
		return nil, notFound(err)
	}
	return decodeMessage(doc)
}

// ListByJob returns messages oldest first.
func (r *MessageRepository) ListByJob(ctx context.Context, jobID string) ([]models.ChatMessage, error) {
	docs, err := r.st.Query(ctx, domain.MessagesPath(jobID))
	if err != nil {
		return nil, err
	}
	list, err := decodeAll(docs, decodeMessage)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, k int) bool { return list[i].CreatedAt.Before(list[k].CreatedAt) })
	return list, nil
}
