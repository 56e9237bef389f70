package repository

import (
	"context"
	"sort"
	"strings"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
)

type DashboardStats struct {
	TotalUsers         int            `json:"totalUsers"`
	TotalStudents      int            `json:"totalStudents"`
	TotalTutors        int            `json:"totalTutors"`
	JobsByStatus       map[string]int `json:"jobsByStatus"`
	PendingWithdrawals int            `json:"pendingWithdrawals"`
	CompletedVolume    int64          `json:"completedVolume"`
	WithdrawnVolume    int64          `json:"withdrawnVolume"`
	PlatformFees       int64          `json:"platformFees"`
}

type AdminRepository struct {
	st   store.Store
	jobs *JobRepository
}

func NewAdminRepository(st store.Store, jobs *JobRepository) *AdminRepository {
	return &AdminRepository{st: st, jobs: jobs}
}

func (r *AdminRepository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	users, err := r.ListUsers(ctx, "", "")
	if err != nil {
		return nil, err
	}
	jobs, err := r.jobs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s := DashboardStats{TotalUsers: len(users), JobsByStatus: make(map[string]int)}
	for _, u := range users {
		switch u.Role {
		case domain.RoleStudent:
			s.TotalStudents++
		case domain.RoleTutor:
			s.TotalTutors++
		}
	}
	for _, j := range jobs {
		if domain.IsWithdrawType(j.Type) {
			if j.IsDone() {
				s.WithdrawnVolume += j.Price
			} else {
				s.PendingWithdrawals++
			}
			s.PlatformFees += j.AdminFee
			continue
		}
		s.JobsByStatus[string(j.Status)]++
		if j.IsDone() {
			s.CompletedVolume += j.Price
		}
	}
	return &s, nil
}

// ListUsers filters by role and a case-insensitive name/username search.
func (r *AdminRepository) ListUsers(ctx context.Context, search, role string) ([]models.User, error) {
	var filters []store.Filter
	if role != "" {
		filters = append(filters, store.Eq("role", role))
	}
	docs, err := r.st.Query(ctx, domain.CollectionUsers, filters...)
	if err != nil {
		return nil, err
	}
	all, err := decodeAll(docs, DecodeUser)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.User, 0, len(all))
	for _, u := range all {
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(strings.ToLower(u.Username), search) {
			continue
		}
		out = append(out, u.Public())
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].CreatedAt > out[k].CreatedAt })
	return out, nil
}
