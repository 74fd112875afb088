package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/getsuraikai/kyudo-tournament/models"
	"github.com/getsuraikai/kyudo-tournament/repositories"
	"github.com/getsuraikai/kyudo-tournament/storage"
)

type ArcherService interface {
	CreateArcher(ctx context.Context, input CreateArcherInput) (*models.Archer, error)
	GetArcherByID(ctx context.Context, id int) (*models.Archer, error)
	ListArchers(ctx context.Context, filter repositories.ListArchersFilter) ([]*models.Archer, error)
	ListArchersPaginated(ctx context.Context, filter repositories.ListArchersFilter) ([]*models.Archer, int, error)
	UpdateArcher(ctx context.Context, id int, input UpdateArcherInput) (*models.Archer, error)
	DeleteArcher(ctx context.Context, id int) error
	UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Archer, error)
}

type CreateArcherInput struct {
	Name     string
	Position models.ArcherPosition
}

type UpdateArcherInput struct {
	Name     string
	Position models.ArcherPosition
}

type archerService struct {
	archerRepo repositories.ArcherRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewArcherService(archerRepo repositories.ArcherRepository, uploader storage.FileUploader, logger *slog.Logger) ArcherService {
	return &archerService{
		archerRepo: archerRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func validateArcherInput(name string, position models.ArcherPosition) error {
	if strings.TrimSpace(name) == "" {
		return ErrArcherNameRequired
	}
	if !position.Valid() {
		return fmt.Errorf("%w: %q", ErrArcherInvalidPosition, position)
	}
	return nil
}

func (s *archerService) CreateArcher(ctx context.Context, input CreateArcherInput) (*models.Archer, error) {
	if err := validateArcherInput(input.Name, input.Position); err != nil {
		return nil, err
	}

	archer := &models.Archer{
		Name:     strings.TrimSpace(input.Name),
		Position: input.Position,
	}
	if err := s.archerRepo.Create(ctx, archer); err != nil {
		return nil, fmt.Errorf("failed to create archer: %w", err)
	}
	return archer, nil
}

func (s *archerService) GetArcherByID(ctx context.Context, id int) (*models.Archer, error) {
	archer, err := s.archerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return nil, ErrArcherNotFound
		}
		return nil, fmt.Errorf("failed to get archer %d: %w", id, err)
	}
	s.populatePhotoURL(archer)
	return archer, nil
}

func (s *archerService) ListArchers(ctx context.Context, filter repositories.ListArchersFilter) ([]*models.Archer, error) {
	archers, err := s.archerRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list archers: %w", err)
	}
	for _, a := range archers {
		s.populatePhotoURL(a)
	}
	return archers, nil
}

func (s *archerService) ListArchersPaginated(ctx context.Context, filter repositories.ListArchersFilter) ([]*models.Archer, int, error) {
	archers, err := s.ListArchers(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.archerRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count archers: %w", err)
	}
	return archers, total, nil
}

func (s *archerService) UpdateArcher(ctx context.Context, id int, input UpdateArcherInput) (*models.Archer, error) {
	if err := validateArcherInput(input.Name, input.Position); err != nil {
		return nil, err
	}

	archer, err := s.GetArcherByID(ctx, id)
	if err != nil {
		return nil, err
	}
	archer.Name = strings.TrimSpace(input.Name)
	archer.Position = input.Position

	if err := s.archerRepo.Update(ctx, archer); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return nil, ErrArcherNotFound
		}
		return nil, fmt.Errorf("failed to update archer %d: %w", id, err)
	}
	return archer, nil
}

func (s *archerService) DeleteArcher(ctx context.Context, id int) error {
	archer, err := s.GetArcherByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.archerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return ErrArcherNotFound
		}
		return fmt.Errorf("failed to delete archer %d: %w", id, err)
	}

	if archer.PhotoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *archer.PhotoKey); err != nil {
			// Orphaned object, not worth failing the delete over.
			s.logger.Warn("failed to delete archer photo",
				slog.Int("archer_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *archerService) UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Archer, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file uploads are not configured", ErrValidationFailed)
	}

	archer, err := s.GetArcherByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	oldKey := archer.PhotoKey
	key := fmt.Sprintf("archers/%d/photo%s", id, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload archer photo: %w", err)
	}

	if err := s.archerRepo.UpdatePhotoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist archer photo key: %w", err)
	}

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous archer photo",
				slog.Int("archer_id", id), slog.Any("error", err))
		}
	}

	archer.PhotoKey = &result.Key
	s.populatePhotoURL(archer)
	return archer, nil
}

func (s *archerService) populatePhotoURL(archer *models.Archer) {
	if archer == nil || archer.PhotoKey == nil || *archer.PhotoKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*archer.PhotoKey); url != "" {
		archer.PhotoURL = &url
	}
}
