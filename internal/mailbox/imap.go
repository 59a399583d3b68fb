package mailbox

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/models"
)

// IMAPMailbox implements Source over IMAP. Message ids are UIDs and
// attachment ids are dotted MIME part paths ("2", "1.3").
type IMAPMailbox struct {
	mu      sync.Mutex
	client  *client.Client
	mailbox string

	// attachments of the last fetched message, keyed by part path
	cachedID    string
	attachments map[string][]byte
}

// NewIMAPMailbox connects, logs in and selects mailbox read-only.
func NewIMAPMailbox(host string, port int, user, password, mailbox string) (*IMAPMailbox, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", host, port), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(user, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if _, err := c.Select(mailbox, true); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to select %s: %w", mailbox, err)
	}

	return &IMAPMailbox{client: c, mailbox: mailbox}, nil
}

// Search runs a UID SEARCH with the query's sender, text and date criteria.
func (m *IMAPMailbox) Search(ctx context.Context, q Query) ([]models.MailItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	criteria := imap.NewSearchCriteria()
	if q.Sender != "" {
		criteria.Header.Add("From", q.Sender)
	}
	if q.SearchTerm != "" {
		criteria.Text = []string{q.SearchTerm}
	}
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if q.MaxResults > 0 && len(uids) > q.MaxResults {
		// newest messages have the highest UIDs
		uids = uids[len(uids)-q.MaxResults:]
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	items := make([]models.MailItem, 0, len(uids))
	for msg := range messages {
		item := models.MailItem{ID: strconv.FormatUint(uint64(msg.Uid), 10)}
		if msg.Envelope != nil {
			item.Subject = msg.Envelope.Subject
			item.Date = msg.Envelope.Date
			if len(msg.Envelope.From) > 0 {
				item.Sender = msg.Envelope.From[0].Address()
			}
		}
		items = append(items, item)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch envelopes: %w", err)
	}
	logrus.Infof("Found %d emails matching criteria", len(items))
	return items, nil
}

// FetchMessage downloads the full message and builds its part tree. The
// attachment bodies are kept until the next FetchMessage call.
func (m *IMAPMailbox) FetchMessage(ctx context.Context, id string) (*models.PartTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tree, attachments, err := m.fetch(id)
	if err != nil {
		return nil, err
	}
	m.cachedID = id
	m.attachments = attachments
	return tree, nil
}

// FetchAttachment returns the body of a part of a message.
func (m *IMAPMailbox) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cachedID != messageID {
		_, attachments, err := m.fetch(messageID)
		if err != nil {
			return nil, err
		}
		m.cachedID = messageID
		m.attachments = attachments
	}

	data, ok := m.attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found in message %s", attachmentID, messageID)
	}
	return data, nil
}

func (m *IMAPMailbox) fetch(id string) (*models.PartTree, map[string][]byte, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid message uid %q: %w", id, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, []imap.FetchItem{section.FetchItem(), imap.FetchUid}, messages)
	}()

	var body imap.Literal
	for msg := range messages {
		if r := msg.GetBody(section); r != nil {
			body = r
		}
	}
	if err := <-done; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if body == nil {
		return nil, nil, fmt.Errorf("message %s has no body", id)
	}

	entity, err := message.Read(body)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, nil, fmt.Errorf("failed to read message: %w", err)
	}
	return ParseEntity(id, entity)
}

// ParseEntity builds the part tree of a parsed message and collects the
// bodies of every part that has a filename.
func ParseEntity(id string, entity *message.Entity) (*models.PartTree, map[string][]byte, error) {
	tree := &models.PartTree{MessageID: id}
	attachments := make(map[string][]byte)
	if err := addEntity(tree, attachments, -1, "", 0, entity); err != nil {
		return nil, nil, err
	}
	return tree, attachments, nil
}

// maxPartDepth bounds multipart nesting. Containers deeper than this are
// kept as leaves and their contents skipped.
const maxPartDepth = 32

// addEntity reads entity into the tree. Multipart bodies can only be
// consumed in stream order, so parsing descends part by part.
func addEntity(tree *models.PartTree, attachments map[string][]byte, parent int, path string, depth int, entity *message.Entity) error {
	mediaType, params, _ := entity.Header.ContentType()
	node := models.PartNode{MimeType: mediaType, Filename: filename(entity.Header, params)}

	mr := entity.MultipartReader()
	if mr == nil {
		if node.Filename != "" {
			data, err := io.ReadAll(entity.Body)
			if err != nil {
				return fmt.Errorf("failed to read part %s: %w", path, err)
			}
			key := path
			if key == "" {
				key = "1"
			}
			node.AttachmentID = key
			attachments[key] = data
		}
		tree.Add(parent, node)
		return nil
	}

	idx := tree.Add(parent, node)
	if depth >= maxPartDepth {
		logrus.Warnf("Skipping MIME part %s: nested deeper than %d levels", path, maxPartDepth)
		return nil
	}
	for n := 1; ; n++ {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return fmt.Errorf("failed to read part: %w", err)
		}
		childPath := strconv.Itoa(n)
		if path != "" {
			childPath = path + "." + childPath
		}
		if err := addEntity(tree, attachments, idx, childPath, depth+1, part); err != nil {
			return err
		}
	}
	return nil
}

func filename(h message.Header, ctParams map[string]string) string {
	if _, params, err := h.ContentDisposition(); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	}
	return strings.TrimSpace(ctParams["name"])
}

// Close logs out of the server
func (m *IMAPMailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client.Logout()
}
