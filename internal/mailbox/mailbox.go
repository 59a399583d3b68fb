// Package mailbox searches a mailbox for messages with attachments, fetches
// their MIME structure and attachment bytes, and sends plain-text mail.
package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grn-sheet-sync-go/internal/models"
)

// Query selects messages with attachments.
type Query struct {
	Sender     string
	SearchTerm string
	Since      time.Time
	MaxResults int
}

// NewQuery builds a query covering the last daysBack days.
func NewQuery(sender, term string, daysBack, maxResults int, now time.Time) Query {
	return Query{
		Sender:     sender,
		SearchTerm: term,
		Since:      now.AddDate(0, 0, -daysBack),
		MaxResults: maxResults,
	}
}

// Gmail renders the query in Gmail search syntax.
func (q Query) Gmail() string {
	parts := []string{"has:attachment"}
	if q.Sender != "" {
		parts = append(parts, fmt.Sprintf("from:%q", q.Sender))
	}
	if q.SearchTerm != "" {
		parts = append(parts, fmt.Sprintf("%q", q.SearchTerm))
	}
	if !q.Since.IsZero() {
		parts = append(parts, "after:"+q.Since.Format("2006/01/02"))
	}
	return strings.Join(parts, " ")
}

// Source reads messages from a mailbox.
type Source interface {
	Search(ctx context.Context, q Query) ([]models.MailItem, error)
	FetchMessage(ctx context.Context, id string) (*models.PartTree, error)
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Sender delivers plain-text messages.
type Sender interface {
	Send(ctx context.Context, from string, to []string, subject, body string) (string, error)
	// Address is the mailbox owner's address, used when no sender is
	// configured.
	Address(ctx context.Context) (string, error)
}

// MatchAttachments returns the parts whose filename equals filter, ignoring
// case, and that carry an attachment id. Parts come back in tree pre-order.
func MatchAttachments(tree *models.PartTree, filter string) []models.PartNode {
	var out []models.PartNode
	tree.Walk(func(_ int, n models.PartNode) {
		if n.AttachmentID == "" || n.Filename == "" {
			return
		}
		if strings.EqualFold(n.Filename, filter) {
			out = append(out, n)
		}
	})
	return out
}
