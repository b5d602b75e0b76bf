package models

import "time"

// Message kinds. File messages store a blob reference in Content instead of
// the raw text.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message is a single entry in a chat's ordered message log.
type Message struct {
	ID        string    `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chat_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Type      string    `db:"kind" json:"type"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ReadBy    []string  `json:"read_by"`
}

// ReadByUser reports whether the user has acknowledged the message.
func (m *Message) ReadByUser(userID string) bool {
	return containsID(m.ReadBy, userID)
}

// MarkReadBy records the user's read acknowledgement.
func (m *Message) MarkReadBy(userID string) {
	m.ReadBy = insertID(m.ReadBy, userID)
}
