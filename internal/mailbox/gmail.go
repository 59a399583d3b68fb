package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"grn-sheet-sync-go/internal/models"
)

const gmailUser = "me"

// GmailMailbox implements Source and Sender with the Gmail API.
type GmailMailbox struct {
	service *gmail.Service

	mu      sync.Mutex
	address string
}

// NewGmailMailbox creates a new Gmail API client. address may be empty, in
// which case it is looked up from the account profile on first use.
func NewGmailMailbox(ctx context.Context, address string, opts ...option.ClientOption) (*GmailMailbox, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailMailbox{service: service, address: address}, nil
}

// Search lists matching messages, following pages until MaxResults.
func (g *GmailMailbox) Search(ctx context.Context, q Query) ([]models.MailItem, error) {
	query := q.Gmail()
	logrus.Infof("Gmail search query: %s", query)

	var ids []string
	pageToken := ""
	for {
		call := g.service.Users.Messages.List(gmailUser).Q(query).Context(ctx)
		if q.MaxResults > 0 {
			call = call.MaxResults(int64(q.MaxResults - len(ids)))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || (q.MaxResults > 0 && len(ids) >= q.MaxResults) {
			break
		}
	}

	items := make([]models.MailItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, g.details(ctx, id))
	}
	logrus.Infof("Found %d emails matching criteria", len(items))
	return items, nil
}

// details fills sender, subject and date from the message headers. Lookup
// failures leave only the id.
func (g *GmailMailbox) details(ctx context.Context, id string) models.MailItem {
	item := models.MailItem{ID: id}

	msg, err := g.service.Users.Messages.Get(gmailUser, id).
		Format("metadata").
		MetadataHeaders("From", "Subject", "Date").
		Context(ctx).
		Do()
	if err != nil {
		logrus.Warnf("Failed to get email details for %s: %v", id, err)
		return item
	}
	if msg.Payload == nil {
		return item
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			item.Sender = header.Value
		case "Subject":
			item.Subject = header.Value
		case "Date":
			var h mail.Header
			h.Set("Date", header.Value)
			if date, err := h.Date(); err == nil {
				item.Date = date
			}
		}
	}
	return item
}

// FetchMessage returns the MIME part tree of a message.
func (g *GmailMailbox) FetchMessage(ctx context.Context, id string) (*models.PartTree, error) {
	msg, err := g.service.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return partTree(id, msg.Payload), nil
}

// partTree flattens a Gmail payload into an arena without recursion.
func partTree(id string, payload *gmail.MessagePart) *models.PartTree {
	tree := &models.PartTree{MessageID: id}
	if payload == nil {
		return tree
	}

	type pending struct {
		part   *gmail.MessagePart
		parent int
	}
	stack := []pending{{part: payload, parent: -1}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := models.PartNode{Filename: p.part.Filename, MimeType: p.part.MimeType}
		if p.part.Body != nil {
			node.AttachmentID = p.part.Body.AttachmentId
		}
		idx := tree.Add(p.parent, node)

		for i := len(p.part.Parts) - 1; i >= 0; i-- {
			if p.part.Parts[i] != nil {
				stack = append(stack, pending{part: p.part.Parts[i], parent: idx})
			}
		}
	}
	return tree
}

// FetchAttachment downloads and decodes one attachment.
func (g *GmailMailbox) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := g.service.Users.Messages.Attachments.Get(gmailUser, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return decodeBase64URL(att.Data)
}

func decodeBase64URL(data string) ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return b, nil
	}
	b, rawErr := base64.RawURLEncoding.DecodeString(data)
	if rawErr != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return b, nil
}

// Send delivers a plain-text message and returns its Gmail id.
func (g *GmailMailbox) Send(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	raw, err := ComposeText(from, to, subject, body, time.Now())
	if err != nil {
		return "", err
	}

	sent, err := g.service.Users.Messages.Send(gmailUser, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return sent.Id, nil
}

// Address returns the authenticated account's email address.
func (g *GmailMailbox) Address(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.address != "" {
		return g.address, nil
	}
	profile, err := g.service.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	g.address = profile.EmailAddress
	return g.address, nil
}
