package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"little-stars/internal/repository"
	"little-stars/internal/storage"
)

var (
	// ErrNoPhoto is returned when a student has no photo on file.
	ErrNoPhoto = errors.New("no photo on file")
	// ErrUnsupportedPhoto is returned for uploads that are not PNG or JPEG.
	ErrUnsupportedPhoto = errors.New("photo must be png or jpeg")
)

// PhotoConfig describes where student photos live.
type PhotoConfig struct {
	Bucket    string
	KeyPrefix string
	URLExpiry time.Duration
}

// PhotoService manages student profile photos.
type PhotoService interface {
	UploadPhoto(ctx context.Context, studentID string, body io.Reader, contentType string) (string, error)
	PhotoURL(ctx context.Context, studentID string) (string, error)
}

type photoService struct {
	students repository.StudentRepository
	store    storage.Service
	cfg      PhotoConfig
	logger   logrus.FieldLogger
}

func NewPhotoService(students repository.StudentRepository, store storage.Service, cfg PhotoConfig, logger logrus.FieldLogger) PhotoService {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &photoService{
		students: students,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// UploadPhoto stores a new photo and points the profile at it. The previous
// object, if it was ours, is removed afterwards.
func (s *photoService) UploadPhoto(ctx context.Context, studentID string, body io.Reader, contentType string) (string, error) {
	ext, err := photoExtension(contentType)
	if err != nil {
		return "", err
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrStudentNotFound
		}
		return "", err
	}

	key := path.Join(strings.Trim(s.cfg.KeyPrefix, "/"), student.ID, uuid.NewString()+ext)
	location, err := s.store.PutObject(ctx, s.cfg.Bucket, key, body, contentType)
	if err != nil {
		return "", err
	}

	if err := s.students.UpdatePhoto(ctx, student.ID, location); err != nil {
		if delErr := s.store.DeleteObject(ctx, s.cfg.Bucket, key); delErr != nil {
			s.logger.WithError(delErr).Warnf("remove orphaned photo %s", key)
		}
		return "", err
	}

	if oldKey, err := storage.ParseLocation(student.PhotoURL, s.cfg.Bucket); err == nil {
		if err := s.store.DeleteObject(ctx, s.cfg.Bucket, oldKey); err != nil {
			s.logger.WithError(err).Warnf("remove previous photo %s", oldKey)
		}
	}
	return location, nil
}

// PhotoURL returns a URL the client can fetch. Photos kept in our bucket get
// a short-lived presigned URL; external URLs are returned as they are.
func (s *photoService) PhotoURL(ctx context.Context, studentID string) (string, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrStudentNotFound
		}
		return "", err
	}

	photo := strings.TrimSpace(student.PhotoURL)
	switch {
	case photo == "":
		return "", ErrNoPhoto
	case strings.HasPrefix(photo, "s3://"):
		key, err := storage.ParseLocation(photo, s.cfg.Bucket)
		if err != nil {
			return "", fmt.Errorf("photo location: %w", err)
		}
		return s.store.GetObjectURL(ctx, s.cfg.Bucket, key, s.cfg.URLExpiry)
	default:
		return photo, nil
	}
}

func photoExtension(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return ".png", nil
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	}
	return "", ErrUnsupportedPhoto
}
