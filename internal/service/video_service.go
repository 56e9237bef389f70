package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/pkg/cloudinary"
	"sinedi/pkg/logger"
)

type VideoService struct {
	videos *repository.VideoRepository
	ledger *LedgerService
	media  cloudinary.Client
	now    func() time.Time
}

// NewVideoService accepts a nil media client; uploads then fail with
// ErrUploadUnavailable.
func NewVideoService(videos *repository.VideoRepository, ledger *LedgerService, media cloudinary.Client) *VideoService {
	return &VideoService{videos: videos, ledger: ledger, media: media, now: time.Now}
}

type AddVideoInput struct {
	Title    string `json:"title" binding:"required"`
	Category string `json:"category" binding:"required"`
	Price    int64  `json:"price" binding:"gte=0"`
	URL      string `json:"url" binding:"required,url"`
}

func (s *VideoService) Add(ctx context.Context, tutor *models.User, in AddVideoInput) (*models.Video, error) {
	if !tutor.IsTutor() {
		return nil, ErrForbidden
	}
	return s.create(ctx, tutor, in, "")
}

// Upload stores the file on Cloudinary and adds it to the catalogue.
func (s *VideoService) Upload(ctx context.Context, tutor *models.User, in AddVideoInput, file io.Reader) (*models.Video, error) {
	if !tutor.IsTutor() {
		return nil, ErrForbidden
	}
	if s.media == nil {
		return nil, ErrUploadUnavailable
	}
	url, thumb, err := s.media.UploadVideo(ctx, file, cloudinary.FolderVideos, "video_"+uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	in.URL = url
	return s.create(ctx, tutor, in, thumb)
}

func (s *VideoService) create(ctx context.Context, tutor *models.User, in AddVideoInput, thumb string) (*models.Video, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Category) == "" {
		return nil, fmt.Errorf("%w: title and category are required", ErrValidation)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if strings.TrimSpace(in.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	v := &models.Video{
		Title:     strings.TrimSpace(in.Title),
		Category:  strings.TrimSpace(in.Category),
		Price:     in.Price,
		URL:       strings.TrimSpace(in.URL),
		Thumbnail: thumb,
		TutorID:   tutor.ID,
		TutorName: tutor.Name,
		CreatedAt: timestamp(s.now()),
	}
	if err := s.videos.Create(ctx, v); err != nil {
		return nil, err
	}
	logger.WithField("user_id", tutor.ID).Infof("[video] added %s", v.ID)
	return v, nil
}

func (s *VideoService) List(ctx context.Context, category string) ([]models.Video, error) {
	return s.videos.List(ctx, category)
}

// Buy opens an Unpaid video_buy order; paying it unlocks the video.
func (s *VideoService) Buy(ctx context.Context, student *models.User, videoID string) (*models.Job, error) {
	return s.ledger.CreateOrder(ctx, student, CreateOrderInput{Type: domain.JobTypeVideoBuy, VideoID: videoID})
}
