package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/internal/domain"
	"sinedi/internal/repository"
)

type recordingPusher struct {
	mu    sync.Mutex
	users []string
	roles []string
}

func (p *recordingPusher) BroadcastToUser(userID string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
}

func (p *recordingPusher) BroadcastToRole(role string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles = append(p.roles, role)
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishJSON(context.Context, string, interface{}) error {
	p.calls++
	return errors.New("broker down")
}

func TestNotification_NotifyFansOut(t *testing.T) {
	f := newFixture(t)
	hub := &recordingPusher{}
	events := &failingPublisher{}
	svc := NewNotificationService(repository.NewNotificationRepository(f.st), f.users, nil, hub, events)
	u := f.user(t, "siti", domain.RoleStudent, 0)

	svc.Notify(f.ctx, u.ID, domain.NotifySuccess, "Pembayaran Berhasil", "ok", "/activity")

	list, err := svc.List(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pembayaran Berhasil", list[0].Title)
	assert.Equal(t, domain.NotifySuccess, list[0].Type)
	assert.False(t, list[0].IsRead)
	assert.Equal(t, []string{u.ID}, hub.users)
	assert.Equal(t, 1, events.calls)

	svc.Notify(f.ctx, "", domain.NotifyInfo, "ignored", "", "")
	assert.Equal(t, 1, events.calls)
}

func TestNotification_MarkRead(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(repository.NewNotificationRepository(f.st), f.users, nil, nil, nil)
	owner := f.user(t, "siti", domain.RoleStudent, 0)
	other := f.user(t, "joko", domain.RoleStudent, 0)

	svc.Notify(f.ctx, owner.ID, domain.NotifyInfo, "satu", "", "")
	svc.Notify(f.ctx, owner.ID, domain.NotifyInfo, "dua", "", "")
	list, err := svc.List(f.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	err = svc.MarkRead(f.ctx, other.ID, list[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, svc.MarkRead(f.ctx, owner.ID, list[0].ID))

	n, err := svc.MarkAllRead(f.ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, _ = svc.List(f.ctx, owner.ID)
	for _, item := range list {
		assert.True(t, item.IsRead)
	}
}
