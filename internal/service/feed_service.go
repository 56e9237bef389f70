package service

import (
	"context"
	"encoding/json"
	"sync"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
)

// FeedHub is the slice of the live hub the feed writes to.
type FeedHub interface {
	BroadcastToUser(userID string, payload interface{})
	BroadcastToRole(role string, payload interface{})
}

// FeedService watches the jobs collection and pushes every changed job to the
// people who see it: its student and tutor, and every tutor while it sits
// open in the queue.
type FeedService struct {
	st  store.Store
	hub FeedHub

	mu     sync.Mutex
	seen   map[string]string
	primed bool
	sub    store.Subscription
}

func NewFeedService(st store.Store, hub FeedHub) *FeedService {
	return &FeedService{st: st, hub: hub, seen: make(map[string]string)}
}

type feedEvent struct {
	Type string      `json:"type"`
	Job  *models.Job `json:"job"`
}

// Start subscribes to job changes until ctx is done or Stop is called.
func (s *FeedService) Start(ctx context.Context) error {
	sub, err := s.st.Subscribe(ctx, domain.CollectionJobs, s.onSnapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	logger.Info("[feed] live job feed started")
	return nil
}

func (s *FeedService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Stop()
		s.sub = nil
	}
}

// onSnapshot diffs the snapshot against the last one. The first snapshot only
// primes the cache.
func (s *FeedService) onSnapshot(docs []store.Document) {
	s.mu.Lock()
	priming := !s.primed
	s.primed = true
	var changed []store.Document
	for _, d := range docs {
		b, err := json.Marshal(d.Data)
		if err != nil {
			continue
		}
		sig := string(b)
		if prev, ok := s.seen[d.ID]; ok && prev == sig {
			continue
		}
		s.seen[d.ID] = sig
		if !priming {
			changed = append(changed, d)
		}
	}
	s.mu.Unlock()

	for _, d := range changed {
		j, err := repository.DecodeJob(d)
		if err != nil {
			logger.Warnf("[feed] skip job %s: %v", d.ID, err)
			continue
		}
		s.dispatch(j)
	}
}

func (s *FeedService) dispatch(j *models.Job) {
	ev := feedEvent{Type: "job", Job: j}
	if j.StudentID != "" {
		s.hub.BroadcastToUser(j.StudentID, ev)
	}
	if j.TutorID != "" {
		s.hub.BroadcastToUser(j.TutorID, ev)
	}
	if j.Status == domain.StatusQueued && domain.IsTaskType(j.Type) && j.TutorID == "" {
		s.hub.BroadcastToRole(domain.RoleTutor, feedEvent{Type: "queue", Job: j})
	}
	s.hub.BroadcastToRole(domain.RoleAdmin, ev)
}
