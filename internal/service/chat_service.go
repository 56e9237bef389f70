package service

import (
	"context"
	"fmt"
	"strings"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
)

// RoomBroadcaster pushes a payload to everyone watching a job's chat.
type RoomBroadcaster interface {
	BroadcastToJob(jobID string, payload interface{})
}

// maxMessageLen bounds a single chat message in bytes.
const maxMessageLen = 4000

type ChatService struct {
	st       store.Store
	jobs     *repository.JobRepository
	messages *repository.MessageRepository
	notify   Notifier
	rooms    RoomBroadcaster
}

func NewChatService(st store.Store, jobs *repository.JobRepository, messages *repository.MessageRepository, notify Notifier, rooms RoomBroadcaster) *ChatService {
	return &ChatService{st: st, jobs: jobs, messages: messages, notify: notify, rooms: rooms}
}

// Authorize returns the job when user may read its chat.
func (s *ChatService) Authorize(ctx context.Context, user *models.User, jobID string) (*models.Job, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.HasParticipant(user.ID) && !user.IsAdmin() {
		return nil, ErrNotParticipant
	}
	return j, nil
}

func (s *ChatService) List(ctx context.Context, user *models.User, jobID string) ([]models.ChatMessage, error) {
	if _, err := s.Authorize(ctx, user, jobID); err != nil {
		return nil, err
	}
	return s.messages.ListByJob(ctx, jobID)
}

// Send appends a message to an open job's chat. Finished jobs are read only.
func (s *ChatService) Send(ctx context.Context, user *models.User, jobID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if len(text) > maxMessageLen {
		return nil, fmt.Errorf("%w: message is too long", ErrValidation)
	}

	id := s.messages.NewID(jobID)
	var job *models.Job
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		j, err := repository.TxGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if !j.HasParticipant(user.ID) {
			return ErrNotParticipant
		}
		if j.IsDone() {
			return ErrChatLocked
		}
		job = j
		return repository.TxAppend(tx, jobID, id, &models.ChatMessage{
			Text:     text,
			Sender:   user.Name,
			SenderID: user.ID,
			Role:     user.Role,
		})
	})
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Get(ctx, jobID, id)
	if err != nil {
		return nil, fmt.Errorf("read back message: %w", err)
	}
	logger.WithFields(map[string]interface{}{"job_id": jobID, "user_id": user.ID}).Debugf("[chat] message %s", id)

	if s.rooms != nil {
		s.rooms.BroadcastToJob(jobID, map[string]interface{}{"type": "message", "jobId": jobID, "message": msg})
	}
	if other := otherParty(job, user.ID); other != "" {
		s.notify.Notify(ctx, other, domain.NotifyInfo, "Pesan Baru (Order #"+shortID(jobID)+")", user.Name+": "+preview(text), "/chat/"+jobID)
	}
	return msg, nil
}

func otherParty(j *models.Job, userID string) string {
	if j.StudentID == userID {
		return j.TutorID
	}
	return j.StudentID
}

// shortID is the last four characters of an id, as shown to users.
func shortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= 60 {
		return text
	}
	return string(r[:60]) + "..."
}
