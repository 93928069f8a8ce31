package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
)

// LocalScheme prefixes references produced by LocalAttachmentStore
const LocalScheme = "file://"

// LocalAttachmentStore implements port.AttachmentStore on the local filesystem
type LocalAttachmentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalAttachmentStore creates a store rooted at baseDir
func NewLocalAttachmentStore(baseDir string, logger *zap.Logger) *LocalAttachmentStore {
	return &LocalAttachmentStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Store writes content under a unique name and returns a file:// reference relative to baseDir
func (s *LocalAttachmentStore) Store(ctx context.Context, name string, content []byte) (string, error) {
	relPath := ObjectName(name)
	fullPath := filepath.Join(s.baseDir, relPath)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write attachment",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	s.logger.Debug("Attachment stored",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return LocalScheme + filepath.ToSlash(relPath), nil
}

// Delete removes the file behind a file:// reference. Missing files are not an error.
func (s *LocalAttachmentStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, LocalScheme) {
		return fmt.Errorf("not a local attachment reference: %s", url)
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(url, LocalScheme)))

	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete attachment",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	s.logger.Debug("Attachment deleted", zap.String("path", fullPath))
	return nil
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalAttachmentStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// ObjectName derives a collision-free relative object name from an uploaded file name.
// The result is "<uuid>/<sanitized name>".
func ObjectName(name string) string {
	safe := SanitizeName(name)
	if safe == "" {
		safe = "attachment"
	}
	return uuid.NewString() + "/" + safe
}

// SanitizeName keeps letters, digits, dots, hyphens and underscores, and drops
// anything that could climb out of a directory
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	return out
}

var _ port.AttachmentStore = (*LocalAttachmentStore)(nil)
