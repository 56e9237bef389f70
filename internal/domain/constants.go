package domain

import (
	"errors"
	"strings"
)

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

// ValidRole reports whether r is one of the account roles.
func ValidRole(r string) bool {
	return r == RoleStudent || r == RoleTutor || r == RoleAdmin
}

// Job types. An empty type and the legacy "joki" are both plain tasks.
const (
	JobTypeTask      = "task"
	JobTypeJoki      = "joki"
	JobTypeMentoring = "mentoring"
	JobTypeVideo     = "video"
	JobTypeVideoBuy  = "video_buy"
	JobTypeWithdraw  = "withdraw"
)

func IsTaskType(t string) bool     { return t == "" || t == JobTypeTask || t == JobTypeJoki }
func IsVideoType(t string) bool    { return t == JobTypeVideo || t == JobTypeVideoBuy }
func IsWithdrawType(t string) bool { return t == JobTypeWithdraw }

// Status is the canonical job status as written to the store.
type Status string

const (
	StatusUnpaid     Status = "Unpaid"
	StatusQueued     Status = "Queue"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "Cancelled"
	StatusProcessing Status = "process" // withdraw jobs awaiting transfer
)

var ErrUnknownStatus = errors.New("unknown job status")

// NormalizeStatus maps the legacy vocabulary onto the canonical statuses.
// "process" means a pending transfer on withdraw jobs and work in progress on
// everything else.
func NormalizeStatus(jobType, raw string) (Status, error) {
	switch strings.TrimSpace(raw) {
	case "Unpaid", "unpaid":
		return StatusUnpaid, nil
	case "Queue", "queue", "pending", "Pending":
		return StatusQueued, nil
	case "In Progress", "in progress", "in_progress":
		return StatusInProgress, nil
	case "process", "Process", "processing":
		if IsWithdrawType(jobType) {
			return StatusProcessing, nil
		}
		return StatusInProgress, nil
	case "done", "Done", "completed", "Completed", "Selesai":
		return StatusDone, nil
	case "Cancelled", "cancelled", "Canceled", "canceled":
		return StatusCancelled, nil
	}
	return "", ErrUnknownStatus
}

// IsDoneLike reports whether a raw status string means terminal success.
func IsDoneLike(raw string) bool {
	switch raw {
	case "done", "Done", "completed", "Completed", "Selesai":
		return true
	}
	return false
}

func (s Status) IsDone() bool { return s == StatusDone }

// Store collection paths. Field and collection names are the wire contract
// shared with existing clients.
const (
	CollectionUsers         = "users"
	CollectionJobs          = "jobs"
	CollectionVideos        = "videos"
	CollectionTransactions  = "transactions"
	CollectionNotifications = "notifications"
)

func MessagesPath(jobID string) string { return CollectionJobs + "/" + jobID + "/messages" }
func ReviewsPath(userID string) string { return CollectionUsers + "/" + userID + "/reviews" }

// Notification types.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyPromo   = "promo"
)

// Transaction log types.
const (
	TxIncome   = "income"
	TxWithdraw = "withdraw"
	TxAdjust   = "adjustment"
)

// Result types attached to finished jobs.
const (
	ResultFile      = "file"
	ResultLink      = "link"
	ResultMentoring = "mentoring"
)

// Weekdays as stored in tutor availability.
var Weekdays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}

// Deadline buckets used by the tutor queue filter.
var DeadlineBuckets = map[string][]string{
	"Hari Ini":   {"Hari ini"},
	"Besok":      {"Besok"},
	"Minggu Ini": {"Hari ini", "Besok", "Lusa", "Minggu ini"},
}

// Banks accepted as withdrawal destinations.
var Banks = []string{"BCA", "Mandiri", "BRI", "BNI", "BSI", "Jago", "SeaBank", "GoPay", "OVO", "Dana"}
