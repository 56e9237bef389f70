package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/pkg/logger"
)

type ProfileService struct {
	users *repository.UserRepository
}

func NewProfileService(users *repository.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

// ProfileUpdate carries editable fields only; nil means unchanged. Wallet,
// role and rating are never client-editable.
type ProfileUpdate struct {
	Name         *string              `json:"name"`
	Email        *string              `json:"email" binding:"omitempty,email"`
	Phone        *string              `json:"phone"`
	Photo        *string              `json:"photo"`
	University   *string              `json:"university"`
	Major        *string              `json:"major"`
	Subjects     []string             `json:"subjects"`
	FCMToken     *string              `json:"fcmToken"`
	Availability *models.Availability `json:"availability"`
	TutorProfile *models.TutorProfile `json:"tutorProfile"`
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Update overwrites plain fields and merges the availability and tutorProfile
// sub-objects into what is stored.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	setString("name", in.Name)
	setString("email", in.Email)
	setString("phone", in.Phone)
	setString("photo", in.Photo)
	setString("university", in.University)
	setString("major", in.Major)
	setString("fcmToken", in.FCMToken)
	if in.Subjects != nil {
		fields["subjects"] = in.Subjects
	}
	if in.Availability != nil {
		merged, err := mergeAvailability(u.Availability, in.Availability)
		if err != nil {
			return nil, err
		}
		fields["availability"] = merged
	}
	if in.TutorProfile != nil {
		if !u.IsTutor() {
			return nil, ErrForbidden
		}
		fields["tutorProfile"] = mergeTutorProfile(u.TutorProfile, in.TutorProfile)
	}
	if len(fields) == 0 {
		return u, nil
	}
	if err := s.users.Update(ctx, userID, fields); err != nil {
		return nil, err
	}
	logger.WithField("user_id", userID).Debugf("[profile] updated %d fields", len(fields))
	return s.users.GetByID(ctx, userID)
}

func mergeAvailability(cur, in *models.Availability) (*models.Availability, error) {
	out := models.Availability{}
	if cur != nil {
		out = *cur
	}
	if in.Days != nil {
		for _, d := range in.Days {
			if !contains(domain.Weekdays, d) {
				return nil, fmt.Errorf("%w: unknown day %q", ErrValidation, d)
			}
		}
		out.Days = in.Days
	}
	if in.TimeStart != "" {
		out.TimeStart = in.TimeStart
	}
	if in.TimeEnd != "" {
		out.TimeEnd = in.TimeEnd
	}
	if out.TimeStart != "" && out.TimeEnd != "" && out.TimeStart >= out.TimeEnd {
		return nil, fmt.Errorf("%w: availability must end after it starts", ErrValidation)
	}
	return &out, nil
}

func mergeTutorProfile(cur, in *models.TutorProfile) *models.TutorProfile {
	out := models.TutorProfile{}
	if cur != nil {
		out = *cur
	}
	if in.Price > 0 {
		out.Price = in.Price
	}
	if in.Skill != "" {
		out.Skill = in.Skill
	}
	if in.Subjects != nil {
		out.Subjects = in.Subjects
	}
	if in.Bio != "" {
		out.Bio = in.Bio
	}
	if in.Education != "" {
		out.Education = in.Education
	}
	if in.Experience != "" {
		out.Experience = in.Experience
	}
	if in.MeetingLink != "" {
		out.MeetingLink = in.MeetingLink
	}
	return &out
}

// ListTutors returns the public tutor directory, best rated first, narrowed
// to tutors teaching subject when it is set.
func (s *ProfileService) ListTutors(ctx context.Context, subject string) ([]models.User, error) {
	tutors, err := s.users.ListByRole(ctx, domain.RoleTutor)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(tutors))
	for _, t := range tutors {
		if subject != "" && !teaches(&t, subject) {
			continue
		}
		pub := t.Public()
		pub.Wallet = 0
		pub.OpeningBalance = 0
		out = append(out, pub)
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Rating > out[k].Rating })
	return out, nil
}

func teaches(u *models.User, subject string) bool {
	subjects := u.Subjects
	if u.TutorProfile != nil {
		subjects = append(append([]string(nil), subjects...), u.TutorProfile.Subjects...)
	}
	for _, s := range subjects {
		if strings.EqualFold(s, subject) {
			return true
		}
	}
	return false
}
