package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/extraction"
	"grn-sheet-sync-go/internal/gcp"
	"grn-sheet-sync-go/internal/mailbox"
	"grn-sheet-sync-go/internal/sheets"
	"grn-sheet-sync-go/internal/storage"
	"grn-sheet-sync-go/internal/workflow"
)

// closers releases provider clients in reverse creation order.
type closers []io.Closer

func (c *closers) add(cl io.Closer) { *c = append(*c, cl) }

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			logrus.Errorf("Failed to close client: %v", err)
		}
	}
}

func newMailbox(ctx context.Context, cfg *config.Config, cl *closers) (mailbox.Source, mailbox.Sender, error) {
	switch cfg.Mail.Provider {
	case "imap":
		m, err := mailbox.NewIMAPMailbox(cfg.Mail.IMAPHost, cfg.Mail.IMAPPort, cfg.Mail.IMAPUser, cfg.Mail.IMAPPassword, cfg.Mail.IMAPMailbox)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create IMAP mailbox: %w", err)
		}
		cl.add(m)
		logrus.Info("Using IMAP for mail search")
		return m, nil, nil
	default:
		m, err := mailbox.NewGmailMailbox(ctx, cfg.Google.UserEmail, gcp.UserOptions(ctx, cfg.Google)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Gmail mailbox: %w", err)
		}
		logrus.Info("Using Gmail API for mail search")
		return m, m, nil
	}
}

func newStorage(ctx context.Context, cfg *config.Config, cl *closers) (storage.Service, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		g, err := storage.NewGCSService(ctx, cfg.Storage.GCSBucket, gcp.ServiceOptions(cfg.Google)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS storage: %w", err)
		}
		cl.add(g)
		return g, nil
	case "local":
		return storage.NewLocalService(cfg.Storage.LocalPath), nil
	default:
		d, err := storage.NewDriveService(ctx, gcp.UserOptions(ctx, cfg.Google)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Drive storage: %w", err)
		}
		return d, nil
	}
}

// newSheets returns the table service and the id of the destination
// spreadsheet (a workbook path for the excel provider).
func newSheets(ctx context.Context, cfg *config.Config, cl *closers) (sheets.Service, string, error) {
	switch cfg.Sheet.Provider {
	case "excel":
		x := sheets.NewExcelService()
		cl.add(x)
		return x, cfg.Sheet.ExcelPath, nil
	default:
		g, err := sheets.NewGoogleService(ctx, cfg.Sheet.WritesPerMinute, gcp.UserOptions(ctx, cfg.Google)...)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Sheets client: %w", err)
		}
		return g, cfg.Sheet.SpreadsheetID, nil
	}
}

func newResolver(cfg *config.Config, cl *closers) workflow.AgentResolver {
	ext := cfg.Extraction
	switch ext.Provider {
	case "documentai":
		var (
			mu        sync.Mutex
			extractor *extraction.DocumentAIExtractor
		)
		return func(ctx context.Context) (extraction.Extractor, error) {
			mu.Lock()
			defer mu.Unlock()
			if extractor != nil {
				return extractor, nil
			}
			d, err := extraction.NewDocumentAIExtractor(ctx, ext.DocAIProject, ext.DocAILocation, ext.DocAIProcessor, gcp.ServiceOptions(cfg.Google)...)
			if err != nil {
				return nil, err
			}
			cl.add(d)
			extractor = d
			return d, nil
		}
	default:
		client := extraction.NewLlamaClient(ext.LlamaBaseURL, ext.LlamaAPIKey, ext.PollInterval, ext.PollTimeout)
		return func(ctx context.Context) (extraction.Extractor, error) {
			agent, err := client.Agent(ctx, ext.Agent)
			if err != nil {
				return nil, err
			}
			logrus.Infof("Extraction agent %q found", ext.Agent)
			return agent, nil
		}
	}
}

func orDefault(id, fallback string) string {
	if id != "" {
		return id
	}
	return fallback
}
