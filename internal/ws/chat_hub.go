package ws

import (
	"encoding/json"
	"sync"
)

// ChatRoom is one room per job: its student and its tutor.
type ChatRoom struct {
	JobID   string
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

func NewChatRoom(jobID string) *ChatRoom {
	return &ChatRoom{JobID: jobID, clients: make(map[*Client]struct{})}
}

func (r *ChatRoom) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *ChatRoom) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *ChatRoom) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast sends payload to everyone in the room except from (nil reaches all).
func (r *ChatRoom) Broadcast(from *Client, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c != from {
			clients = append(clients, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range clients {
		c.trySend(data)
	}
}

// ChatHub holds all chat rooms by job ID.
type ChatHub struct {
	mu    sync.RWMutex
	rooms map[string]*ChatRoom
}

func NewChatHub() *ChatHub {
	return &ChatHub{rooms: make(map[string]*ChatRoom)}
}

func (h *ChatHub) GetOrCreateRoom(jobID string) *ChatRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[jobID]; ok {
		return r
	}
	r := NewChatRoom(jobID)
	h.rooms[jobID] = r
	return r
}

func (h *ChatHub) GetRoom(jobID string) *ChatRoom {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[jobID]
}

// Leave removes c from the job's room and drops the room once empty.
func (h *ChatHub) Leave(jobID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[jobID]
	if !ok {
		return
	}
	r.Leave(c)
	if r.ClientCount() == 0 {
		delete(h.rooms, jobID)
	}
}

// BroadcastToJob reaches every connection in the job's room, if any.
func (h *ChatHub) BroadcastToJob(jobID string, payload interface{}) {
	if r := h.GetRoom(jobID); r != nil {
		r.Broadcast(nil, payload)
	}
}
