package service

import (
	"context"
	"time"

	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/pkg/logger"
)

// Pusher delivers a payload to a user's live connections.
type Pusher interface {
	BroadcastToUser(userID string, payload interface{})
}

// EventPublisher receives notification events for downstream consumers.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v interface{}) error
}

// NotificationService writes notifications and fans them out over the live
// hub, FCM and the event stream. Every delivery step is best effort.
type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	fcm      *FCMService
	hub      Pusher
	events   EventPublisher
	now      func() time.Time
}

// NewNotificationService accepts nil for fcm, hub and events.
func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, fcm *FCMService, hub Pusher, events EventPublisher) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm, hub: hub, events: events, now: time.Now}
}

type notificationEvent struct {
	Event        string              `json:"event"`
	Notification models.Notification `json:"notification"`
}

// Notify never fails the caller; errors are logged and dropped.
func (s *NotificationService) Notify(ctx context.Context, userID, notifType, title, desc, link string) {
	if userID == "" {
		return
	}
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Desc:      desc,
		Type:      notifType,
		Link:      link,
		CreatedAt: timestamp(s.now()),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		logger.WithField("user_id", userID).Errorf("[notify] store failed: %v", err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, map[string]interface{}{"type": "notification", "notification": n})
	}
	if s.events != nil {
		if err := s.events.PublishJSON(ctx, userID, notificationEvent{Event: "notification.created", Notification: *n}); err != nil {
			logger.WithField("user_id", userID).Warnf("[notify] publish failed: %v", err)
		}
	}
	s.sendPush(ctx, n)
}

func (s *NotificationService) sendPush(ctx context.Context, n *models.Notification) {
	if s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(ctx, n.UserID)
	if err != nil || u.FCMToken == "" {
		return
	}
	data := map[string]interface{}{"notification_id": n.ID}
	if n.Link != "" {
		data["link"] = n.Link
	}
	_ = s.fcm.SendToUser(ctx, u.FCMToken, n.Type, n.Title, n.Desc, data)
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
