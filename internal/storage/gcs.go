package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"grn-sheet-sync-go/internal/models"
)

// GCSService implements Service on a Cloud Storage bucket. Folders are key
// prefixes ending in "/"; the bucket root is "". Object ids are full keys.
// A folder exists when at least one object, possibly a zero-length
// placeholder, sits under its prefix.
type GCSService struct {
	client *storage.Client
	bucket string
}

// NewGCSService creates a bucket-backed archive
func NewGCSService(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSService, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSService{client: client, bucket: bucket}, nil
}

func (g *GCSService) Close() error { return g.client.Close() }

func (g *GCSService) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	prefix := parentID + name + "/"
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	_, err := it.Next()
	if err == iterator.Done {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to search folder %s: %w", name, err)
	}
	return prefix, nil
}

func (g *GCSService) ListObjects(ctx context.Context, parentID, mimeType string, createdAfter time.Time) ([]models.StoredObject, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: parentID, Delimiter: "/"})

	var objects []models.StoredObject
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		// synthetic directory entries and folder placeholders
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		if mimeType != "" && attrs.ContentType != mimeType {
			continue
		}
		if !createdAfter.IsZero() && attrs.Created.Before(createdAfter) {
			continue
		}
		objects = append(objects, models.StoredObject{
			ID:        attrs.Name,
			Name:      path.Base(attrs.Name),
			CreatedAt: attrs.Created,
		})
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].CreatedAt.After(objects[j].CreatedAt)
	})
	return objects, nil
}

func (g *GCSService) Exists(ctx context.Context, name, parentID string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(parentID + name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GCSService) Upload(ctx context.Context, name, parentID, mimeType string, data []byte) (string, error) {
	key := parentID + name
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", key, err)
	}
	return key, nil
}

func (g *GCSService) Download(ctx context.Context, id string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(id).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return data, nil
}
