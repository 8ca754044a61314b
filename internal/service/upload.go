package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/blob"
)

// MaxUploadBytes caps a single upload.
const MaxUploadBytes = 10 << 20 // 10 MiB

// UploadService pushes product images and attachments into blob storage.
type UploadService struct {
	store  blob.Store
	logger *slog.Logger
}

func NewUploadService(store blob.Store, logger *slog.Logger) *UploadService {
	return &UploadService{store: store, logger: logger}
}

// Upload validates the MIME type, derives the object key, and writes the
// body. size is the declared content length; -1 means unknown, in which
// case the body is still capped at MaxUploadBytes while copying.
func (s *UploadService) Upload(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error) {
	if size > MaxUploadBytes {
		return "", apperror.ValidationFailed("file",
			fmt.Sprintf("file exceeds the %d byte limit", MaxUploadBytes))
	}

	key, err := blob.ObjectKey(filename, contentType)
	if err != nil {
		return "", err
	}

	url, err := s.store.Put(ctx, key, io.LimitReader(body, MaxUploadBytes), contentType)
	if err != nil {
		return "", apperror.Remote("blob storage", err)
	}

	s.logger.Info("object uploaded",
		slog.String("key", key),
		slog.String("contentType", contentType),
	)
	return url, nil
}
