// Package session holds the active user record of every signed-in user. The
// record is persisted to a KV store, rehydrated from it on first use and kept
// current by a live subscription on the user document. Users not seen for
// the session TTL are released along with their subscription.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
)

const keyPrefix = "sinedi:session:"

func Key(userID string) string { return keyPrefix + userID }

type entry struct {
	mu   sync.RWMutex
	user *models.User
	sub  store.Subscription

	// lastSeen is guarded by Holder.mu.
	lastSeen time.Time
}

func (e *entry) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sub != nil {
		e.sub.Stop()
		e.sub = nil
	}
}

type Holder struct {
	st    store.Store
	users *repository.UserRepository
	kv    KV
	ttl   time.Duration
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
}

// NewHolder releases users idle for ttl. A non-positive ttl keeps them until Close.
func NewHolder(st store.Store, users *repository.UserRepository, kv KV, ttl time.Duration) *Holder {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Holder{st: st, users: users, kv: kv, ttl: ttl, now: time.Now, ctx: ctx, cancel: cancel, entries: make(map[string]*entry)}
	if ttl > 0 {
		go h.cleanup()
	}
	return h
}

// Get returns a copy of the user's current record. A user not held yet is
// rehydrated from the KV store, or read from the document store, and watched
// from then on.
func (h *Holder) Get(ctx context.Context, userID string) (*models.User, error) {
	h.mu.Lock()
	e, ok := h.entries[userID]
	if ok {
		e.lastSeen = h.now()
	}
	h.mu.Unlock()
	if ok {
		e.mu.RLock()
		defer e.mu.RUnlock()
		if e.user == nil {
			return nil, repository.ErrNotFound
		}
		u := *e.user
		return &u, nil
	}

	u, err := h.rehydrate(ctx, userID)
	if err != nil {
		return nil, err
	}
	h.watch(userID, u)
	cp := *u
	return &cp, nil
}

func (h *Holder) rehydrate(ctx context.Context, userID string) (*models.User, error) {
	if b, err := h.kv.Get(ctx, Key(userID)); err == nil {
		var u models.User
		if err := json.Unmarshal(b, &u); err == nil && u.ID == userID {
			return &u, nil
		}
	} else if !errors.Is(err, ErrMiss) {
		logger.WithField("user_id", userID).Warnf("[session] kv read failed: %v", err)
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	h.persist(ctx, u)
	return u, nil
}

func (h *Holder) watch(userID string, u *models.User) {
	h.mu.Lock()
	if _, ok := h.entries[userID]; ok {
		h.mu.Unlock()
		return
	}
	e := &entry{user: u, lastSeen: h.now()}
	h.entries[userID] = e
	h.mu.Unlock()

	sub, err := h.st.SubscribeDoc(h.ctx, domain.CollectionUsers, userID, func(d store.Document) {
		h.refresh(e, userID, d)
	})
	if err != nil {
		logger.WithField("user_id", userID).Errorf("[session] subscribe failed: %v", err)
		h.mu.Lock()
		delete(h.entries, userID)
		h.mu.Unlock()
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries[userID] != e {
		sub.Stop()
		return
	}
	e.mu.Lock()
	e.sub = sub
	e.mu.Unlock()
}

func (h *Holder) refresh(e *entry, userID string, d store.Document) {
	if d.Data == nil {
		e.mu.Lock()
		e.user = nil
		e.mu.Unlock()
		_ = h.kv.Del(h.ctx, Key(userID))
		return
	}
	u, err := repository.DecodeUser(d)
	if err != nil {
		logger.WithField("user_id", userID).Warnf("[session] decode failed: %v", err)
		return
	}
	e.mu.Lock()
	e.user = u
	e.mu.Unlock()
	h.persist(h.ctx, u)
}

// persist writes the record without credentials.
func (h *Holder) persist(ctx context.Context, u *models.User) {
	b, err := json.Marshal(u.Public())
	if err != nil {
		return
	}
	if err := h.kv.Set(ctx, Key(u.ID), b, h.ttl); err != nil {
		logger.WithField("user_id", u.ID).Warnf("[session] kv write failed: %v", err)
	}
}

func (h *Holder) cleanup() {
	every := h.ttl
	if every > time.Minute {
		every = time.Minute
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-tick.C:
			h.evictIdle()
		}
	}
}

// evictIdle stops watching users not read within ttl. Their KV record is
// left to expire on its own.
func (h *Holder) evictIdle() int {
	cutoff := h.now().Add(-h.ttl)
	var idle []*entry
	h.mu.Lock()
	for id, e := range h.entries {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e)
			delete(h.entries, id)
		}
	}
	h.mu.Unlock()
	for _, e := range idle {
		e.stop()
	}
	if len(idle) > 0 {
		logger.Debugf("[session] released %d idle users", len(idle))
	}
	return len(idle)
}

func (h *Holder) held() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Close stops every subscription. Persisted records stay in the KV store.
func (h *Holder) Close() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, e := range h.entries {
		e.stop()
		delete(h.entries, id)
	}
}
