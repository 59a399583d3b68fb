package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"grn-sheet-sync-go/internal/models"
)

// LocalService implements Service on a directory tree. Ids are paths
// relative to the root directory; the root itself is "". Only .pdf files are
// reported as application/pdf.
type LocalService struct {
	root string
}

// NewLocalService serves the tree under root.
func NewLocalService(root string) *LocalService {
	return &LocalService{root: root}
}

func (l *LocalService) abs(id string) string {
	return filepath.Join(l.root, filepath.FromSlash(id))
}

func (l *LocalService) FindFolder(_ context.Context, name, parentID string) (string, error) {
	id := filepath.ToSlash(filepath.Join(filepath.FromSlash(parentID), name))
	info, err := os.Stat(l.abs(id))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (l *LocalService) ListObjects(_ context.Context, parentID, mimeType string, createdAfter time.Time) ([]models.StoredObject, error) {
	entries, err := os.ReadDir(l.abs(parentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", parentID, err)
	}

	var objects []models.StoredObject
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if mimeType == MimeTypePDF && !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		if !createdAfter.IsZero() && info.ModTime().Before(createdAfter) {
			continue
		}
		objects = append(objects, models.StoredObject{
			ID:        filepath.ToSlash(filepath.Join(filepath.FromSlash(parentID), e.Name())),
			Name:      e.Name(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].CreatedAt.After(objects[j].CreatedAt)
	})
	return objects, nil
}

func (l *LocalService) Exists(_ context.Context, name, parentID string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.abs(parentID), name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l *LocalService) Upload(_ context.Context, name, parentID, _ string, data []byte) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	id := filepath.ToSlash(filepath.Join(filepath.FromSlash(parentID), name))
	if err := os.WriteFile(l.abs(id), data, 0o644); err != nil {
		return "", err
	}
	return id, nil
}

func (l *LocalService) Download(_ context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(l.abs(id))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", id, err)
	}
	return data, nil
}
