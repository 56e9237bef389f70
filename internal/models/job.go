package models

import (
	"sinedi/internal/domain"
)

// JobResult is the deliverable attached to a finished job: a file, a link, a
// mentoring session marker or a transfer proof for withdrawals.
type JobResult struct {
	Type string `json:"type" firestore:"type"`
	Name string `json:"name" firestore:"name"`
	URL  string `json:"url,omitempty" firestore:"url,omitempty"`
}

type Review struct {
	Stars       int    `json:"stars" firestore:"stars"`
	Text        string `json:"text,omitempty" firestore:"text,omitempty"`
	StudentName string `json:"studentName" firestore:"studentName"`
	JobID       string `json:"jobId,omitempty" firestore:"jobId,omitempty"`
	CreatedAt   string `json:"createdAt" firestore:"createdAt"`
}

type BankDetails struct {
	Bank          string `json:"bank" firestore:"bank" binding:"required"`
	AccountNumber string `json:"accountNumber" firestore:"accountNumber" binding:"required"`
	AccountName   string `json:"accountName" firestore:"accountName" binding:"required"`
}

func (b BankDetails) Complete() bool {
	return b.Bank != "" && b.AccountNumber != "" && b.AccountName != ""
}

// Job is one ledger entry: a task order, mentoring booking, video purchase or
// withdrawal request, told apart by Type.
type Job struct {
	ID          string        `json:"id" firestore:"id"`
	Type        string        `json:"type" firestore:"type"`
	Status      domain.Status `json:"status" firestore:"status"`
	Title       string        `json:"title" firestore:"title"`
	Price       int64         `json:"price" firestore:"price"`
	CreatedAt   string        `json:"createdAt" firestore:"createdAt"`
	StudentID   string        `json:"studentId,omitempty" firestore:"studentId,omitempty"`
	StudentName string        `json:"studentName,omitempty" firestore:"studentName,omitempty"`
	TutorID     string        `json:"tutorId,omitempty" firestore:"tutorId,omitempty"`
	TutorName   string        `json:"tutorName,omitempty" firestore:"tutorName,omitempty"`
	Deadline    string        `json:"deadline,omitempty" firestore:"deadline,omitempty"`
	Difficulty  string        `json:"difficulty,omitempty" firestore:"difficulty,omitempty"`
	Details     string        `json:"details,omitempty" firestore:"details,omitempty"`
	VideoID     string        `json:"videoId,omitempty" firestore:"videoId,omitempty"`
	VideoURL    string        `json:"videoUrl,omitempty" firestore:"videoUrl,omitempty"`
	Result      *JobResult    `json:"result" firestore:"result"`
	Review      *Review       `json:"review" firestore:"review"`
	HasReviewed bool          `json:"hasReviewed" firestore:"hasReviewed"`
	MeetingLink string        `json:"meetingLink,omitempty" firestore:"meetingLink,omitempty"`
	BankDetails *BankDetails  `json:"bankDetails,omitempty" firestore:"bankDetails,omitempty"`
	AdminFee    int64         `json:"adminFee,omitempty" firestore:"adminFee,omitempty"`
	NetAmount   int64         `json:"netAmount,omitempty" firestore:"netAmount,omitempty"`
}

func (j *Job) IsDone() bool { return j.Status == domain.StatusDone }

// HasParticipant reports whether userID is the job's student or tutor.
func (j *Job) HasParticipant(userID string) bool {
	return userID != "" && (j.StudentID == userID || j.TutorID == userID)
}
