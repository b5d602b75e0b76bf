package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fabricioGuac/chat-fusion/internal/models"
)

// MessageRepository persists the ordered message log of a chat together with
// per-user read marks.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	ListMessages(ctx context.Context, chatID string, limit, skip int) ([]models.Message, error)
	UpdateContent(ctx context.Context, messageID, content string) error
	MarkAllRead(ctx context.Context, chatID, userID string) (int, error)
	DeleteMessage(ctx context.Context, messageID string) error
	DeleteAllByChatID(ctx context.Context, chatID string) error
	CountUnread(ctx context.Context, chatID, userID string) (int, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores the message and any read marks it already carries
// (members that were live at send time).
func (r *MessageRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (id, chat_id, author_id, kind, content)
        VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		msg.ID, msg.ChatID, msg.AuthorID, msg.Type, msg.Content).Scan(&msg.CreatedAt)
	if err != nil {
		return err
	}
	for _, userID := range msg.ReadBy {
		if _, err = tx.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			msg.ID, userID); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// GetMessage fetches a single message with its read set.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, chat_id, author_id, kind, content, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	if err := r.db.SelectContext(ctx, &msg.ReadBy, `SELECT user_id FROM message_reads WHERE message_id=$1 ORDER BY user_id ASC`, messageID); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns messages ordered by creation time with limit/skip
// pagination, read sets included.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string, limit, skip int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, chat_id, author_id, kind, content, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`, chatID, limit, skip)
	if err != nil || len(msgs) == 0 {
		return msgs, err
	}

	ids := make([]string, 0, len(msgs))
	index := make(map[string]int, len(msgs))
	for i, msg := range msgs {
		ids = append(ids, msg.ID)
		index[msg.ID] = i
	}

	var reads []struct {
		MessageID string `db:"message_id"`
		UserID    string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &reads, `SELECT message_id, user_id FROM message_reads WHERE message_id = ANY($1) ORDER BY user_id ASC`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, read := range reads {
		i := index[read.MessageID]
		msgs[i].ReadBy = append(msgs[i].ReadBy, read.UserID)
	}
	return msgs, nil
}

// UpdateContent replaces the message body.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID, content string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET content=$2 WHERE id=$1`, messageID, content)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkAllRead adds the user's read mark to every message in the chat they
// did not author and have not read yet, returning how many were marked.
func (r *MessageRepo) MarkAllRead(ctx context.Context, chatID, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id)
        SELECT m.id, $2 FROM messages m WHERE m.chat_id=$1 AND m.author_id<>$2
        ON CONFLICT DO NOTHING`, chatID, userID)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

// DeleteMessage removes a message; read marks cascade.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteAllByChatID purges the whole message log of a chat.
func (r *MessageRepo) DeleteAllByChatID(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id=$1`, chatID)
	return err
}

// CountUnread counts messages by others that the user has not read.
func (r *MessageRepo) CountUnread(ctx context.Context, chatID, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        WHERE m.chat_id=$1 AND m.author_id<>$2
        AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id=$2)`, chatID, userID)
	return count, err
}
