package models

import (
	"sinedi/internal/domain"
)

type Availability struct {
	Days      []string `json:"days" firestore:"days"`
	TimeStart string   `json:"timeStart" firestore:"timeStart"`
	TimeEnd   string   `json:"timeEnd" firestore:"timeEnd"`
}

type TutorProfile struct {
	Price       int64    `json:"price,omitempty" firestore:"price,omitempty"`
	Skill       string   `json:"skill,omitempty" firestore:"skill,omitempty"`
	Subjects    []string `json:"subjects,omitempty" firestore:"subjects,omitempty"`
	Bio         string   `json:"bio,omitempty" firestore:"bio,omitempty"`
	Education   string   `json:"education,omitempty" firestore:"education,omitempty"`
	Experience  string   `json:"experience,omitempty" firestore:"experience,omitempty"`
	MeetingLink string   `json:"meetingLink,omitempty" firestore:"meetingLink,omitempty"`
}

type User struct {
	ID             string        `json:"id" firestore:"-"`
	Name           string        `json:"name" firestore:"name"`
	Username       string        `json:"username,omitempty" firestore:"username,omitempty"`
	PasswordHash   string        `json:"passwordHash,omitempty" firestore:"passwordHash,omitempty"`
	Role           string        `json:"role" firestore:"role"`
	Wallet         int64         `json:"wallet" firestore:"wallet"`
	OpeningBalance int64         `json:"openingBalance,omitempty" firestore:"openingBalance,omitempty"`
	Email          string        `json:"email,omitempty" firestore:"email,omitempty"`
	Phone          string        `json:"phone,omitempty" firestore:"phone,omitempty"`
	Photo          string        `json:"photo,omitempty" firestore:"photo,omitempty"`
	University     string        `json:"university,omitempty" firestore:"university,omitempty"`
	Major          string        `json:"major,omitempty" firestore:"major,omitempty"`
	Subjects       []string      `json:"subjects,omitempty" firestore:"subjects,omitempty"`
	Availability   *Availability `json:"availability,omitempty" firestore:"availability,omitempty"`
	TutorProfile   *TutorProfile `json:"tutorProfile,omitempty" firestore:"tutorProfile,omitempty"`
	Rating         float64       `json:"rating,omitempty" firestore:"rating,omitempty"`
	ReviewCount    int           `json:"reviewCount,omitempty" firestore:"reviewCount,omitempty"`
	Reviews        []Review      `json:"reviews,omitempty" firestore:"reviews,omitempty"`
	FCMToken       string        `json:"fcmToken,omitempty" firestore:"fcmToken,omitempty"`
	CreatedAt      string        `json:"createdAt" firestore:"createdAt"`
}

func (u *User) IsTutor() bool   { return u.Role == domain.RoleTutor }
func (u *User) IsStudent() bool { return u.Role == domain.RoleStudent }
func (u *User) IsAdmin() bool   { return u.Role == domain.RoleAdmin }

// Public returns a copy without credentials, safe to send to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	u.FCMToken = ""
	return u
}
