package models

import "time"

// MailItem is a message header summary. Identity is the provider message id.
type MailItem struct {
	ID      string    `json:"id"`
	Sender  string    `json:"sender"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
}

// PartNode is one MIME part of a message.
type PartNode struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	AttachmentID string `json:"attachment_id"`
	Children     []int  `json:"children,omitempty"`
}

// PartTree stores a message's MIME structure as an arena; node 0 is the root.
type PartTree struct {
	MessageID string     `json:"message_id"`
	Nodes     []PartNode `json:"nodes"`
}

// Add appends n as a child of parent (or as the root when parent < 0) and
// returns its index.
func (t *PartTree) Add(parent int, n PartNode) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	if parent >= 0 && parent < idx {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
	}
	return idx
}

// Walk visits every node reachable from the root in pre-order using an
// explicit stack, so arbitrarily deep trees do not grow the goroutine stack.
func (t *PartTree) Walk(visit func(idx int, n PartNode)) {
	if t == nil || len(t.Nodes) == 0 {
		return
	}
	stack := []int{0}
	seen := make([]bool, len(t.Nodes))
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx < 0 || idx >= len(t.Nodes) || seen[idx] {
			continue
		}
		seen[idx] = true
		n := t.Nodes[idx]
		visit(idx, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}
