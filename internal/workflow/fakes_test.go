package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/mailbox"
	"grn-sheet-sync-go/internal/metrics"
	"grn-sheet-sync-go/internal/models"
)

type fakeSource struct {
	items     []models.MailItem
	trees     map[string]*models.PartTree
	data      map[string][]byte
	searchErr error
}

func (f *fakeSource) Search(context.Context, mailbox.Query) ([]models.MailItem, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.items, nil
}

func (f *fakeSource) FetchMessage(_ context.Context, id string) (*models.PartTree, error) {
	tree, ok := f.trees[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return tree, nil
}

func (f *fakeSource) FetchAttachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	data, ok := f.data[messageID+"/"+attachmentID]
	if !ok {
		return nil, errors.New("attachment not found")
	}
	return data, nil
}

// nestedTree puts filename three levels below the root.
func nestedTree(id, filename, attachmentID string) *models.PartTree {
	tree := &models.PartTree{MessageID: id}
	root := tree.Add(-1, models.PartNode{MimeType: "multipart/mixed"})
	tree.Add(root, models.PartNode{MimeType: "text/plain"})
	alt := tree.Add(root, models.PartNode{MimeType: "multipart/related"})
	inner := tree.Add(alt, models.PartNode{MimeType: "multipart/mixed"})
	tree.Add(inner, models.PartNode{Filename: filename, MimeType: "application/pdf", AttachmentID: attachmentID})
	return tree
}

type fakeExtractor struct {
	mu       sync.Mutex
	failures int
	calls    int
	doc      map[string]any
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (*models.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if f.calls <= f.failures {
		return nil, errors.New("service temporarily unavailable")
	}
	return &models.ExtractionResult{Data: f.doc}, nil
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	from    string
	to      []string
	subject string
	body    string
}

func (f *fakeSender) Send(_ context.Context, from string, to []string, subject, body string) (string, error) {
	f.from, f.to, f.subject, f.body = from, to, subject, body
	return "sent-1", nil
}

func (f *fakeSender) Address(context.Context) (string, error) {
	return "me@example.com", nil
}

func newMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// writePDF stores a small file that passes as a PDF for fake extractors.
func writePDF(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4\n%fake\n"), 0o644))
}

func grnDoc() map[string]any {
	return map[string]any{
		"invoice_number": "INV-1",
		"supplier":       "Acme Farms",
		"items": []any{
			map[string]any{"description": "Onion", "qty": 10},
			map[string]any{"description": "Garlic", "qty": 2.5},
		},
	}
}
