package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/Dosada05/dance-battle/storage"
)

const MaxImageSize = 5 << 20

type ImageUploadInput struct {
	// Folder — "participants" или "judges"; пустое значение кладёт файл в "misc".
	Folder      string
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type ImageService interface {
	Enabled() bool
	UploadImage(ctx context.Context, input ImageUploadInput) (*storage.UploadResult, error)
}

type imageService struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

// NewImageService принимает nil uploader, если хранилище не настроено.
func NewImageService(uploader storage.FileUploader, logger *slog.Logger) ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &imageService{uploader: uploader, logger: logger}
}

func (s *imageService) Enabled() bool {
	return s.uploader != nil
}

func (s *imageService) UploadImage(ctx context.Context, input ImageUploadInput) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if input.Size > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, input.Size, MaxImageSize)
	}
	ext, err := GetExtensionFromContentType(input.ContentType)
	if err != nil {
		return nil, err
	}

	key := imageKey(input.Folder, input.Name, ext)
	result, err := s.uploader.Upload(ctx, key, input.ContentType, input.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	s.logger.Info("image uploaded", slog.String("key", result.Key))
	return result, nil
}

func imageKey(folder, name, ext string) string {
	switch folder {
	case "participants", "judges":
	default:
		folder = "misc"
	}
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s/%s-%s%s", folder, base, uuid.NewString(), ext)
}

func GetExtensionFromContentType(contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrImageTypeNotAllowed, contentType)
	}
}
