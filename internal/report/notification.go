package report

import (
	"fmt"
	"strings"
	"time"

	"grn-sheet-sync-go/internal/models"
)

// SummaryContext carries the settings quoted in the summary mail.
type SummaryContext struct {
	AppName       string
	Sender        string
	SearchTerm    string
	MailDaysBack  int
	SheetDaysBack int
}

// Subject is the summary mail subject line.
func Subject(appName string, now time.Time) string {
	return fmt.Sprintf("%s Report - %s", appName, now.Format(TimeLayout))
}

// SummaryBody renders the plain-text run summary.
func SummaryBody(c SummaryContext, s models.RunSummary, now time.Time) string {
	rule := strings.Repeat("=", 50)
	lines := []string{
		strings.ToUpper(c.AppName) + " WORKFLOW SUMMARY",
		rule,
		"",
		"Report Time: " + now.Format(TimeLayout),
		fmt.Sprintf("Days Back Parameter: %d days", c.MailDaysBack),
		"",
		"MAIL TO STORAGE WORKFLOW:",
		"  • Sender Filter: " + c.Sender,
		"  • Search Term: " + c.SearchTerm,
		fmt.Sprintf("  • Number of emails processed: %d", s.Mail.EmailsProcessed),
		fmt.Sprintf("  • Number of attachments uploaded: %d", s.Mail.Processed),
		fmt.Sprintf("  • Failed to upload: %d", s.Mail.Failed),
		"",
		"STORAGE TO SHEET WORKFLOW:",
		fmt.Sprintf("  • Number of files found (last %d days): %d", c.SheetDaysBack, s.Sheet.TotalFiles),
		fmt.Sprintf("  • Number of files skipped (already processed): %d", s.Sheet.Skipped),
		fmt.Sprintf("  • Number of files successfully processed: %d", s.Sheet.Processed),
		fmt.Sprintf("  • Number of files failed to process: %d", s.Sheet.Failed),
		fmt.Sprintf("  • Incomplete extractions: %d", s.Sheet.Incomplete),
		fmt.Sprintf("  • Total rows added to sheet: %d", s.Sheet.RowsAdded),
		fmt.Sprintf("  • Files not yet in sheet: %d", s.Remaining),
		"",
		"OVERALL STATUS:",
		"  • Total Duration: " + FormatDuration(s.TotalDuration),
		"  • Workflow Status: " + s.Status,
		"",
		rule,
		"This is an automated report from " + c.AppName + ".",
		"",
	}
	return strings.Join(lines, "\n")
}
