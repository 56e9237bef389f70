package models

type Video struct {
	ID        string `json:"id" firestore:"-"`
	Title     string `json:"title" firestore:"title"`
	Category  string `json:"category" firestore:"category"`
	Price     int64  `json:"price" firestore:"price"`
	URL       string `json:"url" firestore:"url"`
	Thumbnail string `json:"thumbnail,omitempty" firestore:"thumbnail,omitempty"`
	TutorID   string `json:"tutorId" firestore:"tutorId"`
	TutorName string `json:"tutorName" firestore:"tutorName"`
	CreatedAt string `json:"createdAt" firestore:"createdAt"`
}
