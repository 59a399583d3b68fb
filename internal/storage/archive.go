package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ArchiveRoot is the top folder that holds one subfolder per workflow.
const ArchiveRoot = "Gmail_Attachments"

// ArchivePath returns the folder segments for a workflow's PDFs.
func ArchivePath(workflow string) []string {
	return []string{ArchiveRoot, workflow, "PDFs"}
}

// ResolvePath walks segments from rootID and returns the id of the last one.
func ResolvePath(ctx context.Context, svc Service, rootID string, segments ...string) (string, error) {
	id := rootID
	for _, seg := range segments {
		next, err := svc.FindFolder(ctx, seg, id)
		if err != nil {
			if errors.Is(err, ErrFolderNotFound) {
				return "", fmt.Errorf("%w: %s", ErrTargetFolderNotFound, strings.Join(segments, "/"))
			}
			return "", fmt.Errorf("failed to find folder %s: %w", seg, err)
		}
		id = next
	}
	return id, nil
}

// ArchivedName is the stored name of an attachment: the message id, an
// underscore and the lower-cased original filename.
func ArchivedName(messageID, filename string) string {
	return messageID + "_" + strings.ToLower(filename)
}

// ArchiveOnce uploads data as name under parentID unless an object with that
// exact name is already there. It returns the new object id, or "" with
// uploaded false when the upload was skipped.
func ArchiveOnce(ctx context.Context, svc Service, data []byte, name, parentID string) (id string, uploaded bool, err error) {
	exists, err := svc.Exists(ctx, name, parentID)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing %s: %w", name, err)
	}
	if exists {
		logrus.Infof("File already exists, skipping: %s", name)
		return "", false, nil
	}

	id, err = svc.Upload(ctx, name, parentID, MimeTypePDF, data)
	if err != nil {
		return "", false, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	logrus.WithFields(logrus.Fields{"name": name, "id": id}).Info("Uploaded attachment")
	return id, true, nil
}

// WindowStart is UTC midnight of the first day of a daysBack-day window
// ending today.
func WindowStart(now time.Time, daysBack int) time.Time {
	if daysBack < 1 {
		daysBack = 1
	}
	start := now.UTC().AddDate(0, 0, -(daysBack - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
