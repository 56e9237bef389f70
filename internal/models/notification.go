package models

type Notification struct {
	ID        string `json:"id" firestore:"-"`
	UserID    string `json:"userId" firestore:"userId"`
	Title     string `json:"title" firestore:"title"`
	Desc      string `json:"desc" firestore:"desc"`
	Type      string `json:"type" firestore:"type"` // info | success | error | promo
	IsRead    bool   `json:"isRead" firestore:"isRead"`
	Link      string `json:"link,omitempty" firestore:"link,omitempty"`
	CreatedAt string `json:"createdAt" firestore:"createdAt"`
}
