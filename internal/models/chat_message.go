package models

import "time"

// ChatMessage lives in the jobs/{id}/messages sub-collection. CreatedAt is
// assigned by the store.
type ChatMessage struct {
	ID        string    `json:"id" firestore:"-"`
	Text      string    `json:"text" firestore:"text"`
	Sender    string    `json:"sender" firestore:"sender"`
	SenderID  string    `json:"senderId,omitempty" firestore:"senderId,omitempty"`
	Role      string    `json:"role" firestore:"role"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}
