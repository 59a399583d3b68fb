package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"grn-sheet-sync-go/internal/models"
)

const drivePageSize = 100

// DriveService implements Service on Google Drive.
type DriveService struct {
	service *drive.Service
}

// NewDriveService creates a new Drive client
func NewDriveService(ctx context.Context, opts ...option.ClientOption) (*DriveService, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &DriveService{service: service}, nil
}

// quote escapes a literal for the Drive query language.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func (d *DriveService) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name=%s and mimeType=%s and %s in parents and trashed=false",
		quote(name), quote(MimeTypeFolder), quote(parentID))

	resp, err := d.service.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search folder %s: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, name)
	}
	return resp.Files[0].Id, nil
}

func (d *DriveService) ListObjects(ctx context.Context, parentID, mimeType string, createdAfter time.Time) ([]models.StoredObject, error) {
	q := fmt.Sprintf("%s in parents and mimeType=%s and trashed=false", quote(parentID), quote(mimeType))
	if !createdAfter.IsZero() {
		q += fmt.Sprintf(" and createdTime >= '%s'", createdAfter.UTC().Format(time.RFC3339))
	}

	var objects []models.StoredObject
	pageToken := ""
	for {
		call := d.service.Files.List().
			Q(q).
			Fields("nextPageToken, files(id, name, createdTime)").
			OrderBy("createdTime desc").
			PageSize(drivePageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, f := range resp.Files {
			created, err := time.Parse(time.RFC3339, f.CreatedTime)
			if err != nil {
				logrus.Warnf("Unparseable createdTime %q for %s", f.CreatedTime, f.Id)
			}
			objects = append(objects, models.StoredObject{ID: f.Id, Name: f.Name, CreatedAt: created})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return objects, nil
}

func (d *DriveService) Exists(ctx context.Context, name, parentID string) (bool, error) {
	q := fmt.Sprintf("name=%s and %s in parents and trashed=false", quote(name), quote(parentID))

	resp, err := d.service.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return false, err
	}
	return len(resp.Files) > 0, nil
}

func (d *DriveService) Upload(ctx context.Context, name, parentID, mimeType string, data []byte) (string, error) {
	meta := &drive.File{Name: name, Parents: []string{parentID}}

	f, err := d.service.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

func (d *DriveService) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := d.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return data, nil
}
