package media

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/plumekit/plume/internal/cache"
	"github.com/plumekit/plume/internal/domain"
)

// Service manages the storage bucket: cached file and folder listings,
// uploads routed into a folder by MIME type, and deletes.
type Service struct {
	repo   domain.MediaRepository
	store  domain.Store
	logger *slog.Logger
}

// NewService creates a new media service.
func NewService(repo domain.MediaRepository, store domain.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, logger: logger}
}

// GetFiles returns the media files in the bucket root folders, cache-aside
// with the media_files namespace TTL.
func (s *Service) GetFiles(ctx context.Context) ([]domain.MediaFile, error) {
	if files, ok := s.store.GetMediaFiles(); ok {
		s.logger.Debug("media files served from cache", "count", len(files))
		return files, nil
	}

	folders, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}

	var files []domain.MediaFile
	for _, folder := range folders {
		inFolder, err := s.repo.ListFiles(ctx, folder)
		if err != nil {
			s.logger.Error("failed to list folder", "error", err, "folder", folder)
			return nil, err
		}
		files = append(files, inFolder...)
	}

	if err := s.store.SaveMediaFiles(files); err != nil {
		s.logger.Error("failed to cache media files", "error", err)
	}
	s.logger.Debug("media files fetched from backend", "count", len(files))
	return files, nil
}

// GetCategories returns the bucket's top-level folders, cache-aside with
// the media_categories namespace TTL.
func (s *Service) GetCategories(ctx context.Context) ([]string, error) {
	if categories, ok := s.store.GetMediaCategories(); ok {
		return categories, nil
	}
	return s.categories(ctx)
}

func (s *Service) categories(ctx context.Context) ([]string, error) {
	folders, err := s.repo.ListFolders(ctx)
	if err != nil {
		s.logger.Error("failed to list folders", "error", err)
		return nil, err
	}
	if err := s.store.SaveMediaCategories(folders); err != nil {
		s.logger.Error("failed to cache media categories", "error", err)
	}
	return folders, nil
}

// Upload stores a file in the bucket under a folder chosen by its MIME
// type, with a fresh object name that keeps the original extension, and
// returns the public URL.
func (s *Service) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error) {
	objectPath := folderFor(contentType) + "/" + uuid.NewString() + path.Ext(fileName)

	url, err := s.repo.Upload(ctx, objectPath, contentType, body)
	if err != nil {
		s.logger.Error("upload failed", "error", err, "path", objectPath)
		return "", err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationCreate, domain.EntityMedia)
	s.logger.Info("uploaded media file", "path", objectPath, "type", contentType)
	return url, nil
}

// folderFor routes a MIME type to its bucket folder.
func folderFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "images"
	case strings.HasPrefix(contentType, "video/"):
		return "videos"
	case strings.HasPrefix(contentType, "audio/"):
		return "audios"
	case strings.Contains(contentType, "pdf"):
		return "documents"
	default:
		return "others"
	}
}

// Delete removes a file from the bucket by name, optionally inside a folder.
func (s *Service) Delete(ctx context.Context, fileName, folder string) error {
	objectPath := fileName
	if folder != "" {
		objectPath = folder + "/" + fileName
	}

	if err := s.repo.Remove(ctx, objectPath); err != nil {
		s.logger.Error("failed to delete media file", "error", err, "path", objectPath)
		return err
	}

	cache.AfterMutation(s.store, s.logger, domain.OperationDelete, domain.EntityMedia)
	s.logger.Info("deleted media file", "path", objectPath)
	return nil
}

// ResolveName resolves a public URL to the file's display name, from the
// cached list first and from the backend on a miss.
func (s *Service) ResolveName(ctx context.Context, url string) (string, error) {
	if f, ok := s.store.FindMediaFileByURL(url); ok {
		return f.Name, nil
	}

	files, err := s.GetFiles(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.URL == url {
			return f.Name, nil
		}
	}
	// Fall back to the last URL segment
	if i := strings.LastIndexByte(url, '/'); i >= 0 && i < len(url)-1 {
		return url[i+1:], nil
	}
	return url, nil
}
