package storage

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fabricioGuac/chat-fusion/internal/models"
)

// ChatRepository persists ChatGroup entities. Implementations must support
// read-modify-write per chat id; callers serialize mutations per chat.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID string) (models.ChatGroup, error)
	FindDirectChat(ctx context.Context, userID1, userID2 string) (models.ChatGroup, error)
	SaveChat(ctx context.Context, chat *models.ChatGroup) error
	DeleteChat(ctx context.Context, chatID string) error
	ListChatsForUser(ctx context.Context, userID string) ([]models.ChatGroup, error)
}

// ChatRepo is a sqlx implementation of ChatRepository. A ChatGroup spans the
// chats row and its chat_members rows; SaveChat reconciles both in one
// transaction.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

type chatRow struct {
	ID        string         `db:"id"`
	IsGroup   bool           `db:"is_group"`
	Name      sql.NullString `db:"name"`
	ImageRef  sql.NullString `db:"image_ref"`
	CreatedBy string         `db:"created_by"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

type memberRow struct {
	ChatID      string `db:"chat_id"`
	UserID      string `db:"user_id"`
	IsAdmin     bool   `db:"is_admin"`
	UnreadCount int    `db:"unread_count"`
}

// GetChat loads a chat with its full membership state.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.ChatGroup, error) {
	var row chatRow
	err := r.db.GetContext(ctx, &row, `SELECT id, is_group, name, image_ref, created_by, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatGroup{}, ErrChatNotFound
	}
	if err != nil {
		return models.ChatGroup{}, err
	}
	return r.assemble(ctx, row)
}

// FindDirectChat looks up the non-group chat containing exactly the two
// users.
func (r *ChatRepo) FindDirectChat(ctx context.Context, userID1, userID2 string) (models.ChatGroup, error) {
	var row chatRow
	err := r.db.GetContext(ctx, &row, `SELECT id, is_group, name, image_ref, created_by, created_at FROM chats WHERE direct_key=$1`, DirectKey(userID1, userID2))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatGroup{}, ErrChatNotFound
	}
	if err != nil {
		return models.ChatGroup{}, err
	}
	return r.assemble(ctx, row)
}

// SaveChat upserts the chat row and reconciles chat_members with the entity's
// member set.
func (r *ChatRepo) SaveChat(ctx context.Context, chat *models.ChatGroup) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var directKey sql.NullString
	if !chat.IsGroup {
		directKey = sql.NullString{String: directKeyFromMembers(chat.Members), Valid: true}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO chats (id, is_group, name, image_ref, created_by, direct_key)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
        ON CONFLICT (id) DO UPDATE SET name = NULLIF($3, ''), image_ref = NULLIF($4, '')`,
		chat.ID, chat.IsGroup, chat.Name, chat.ImageRef, chat.CreatedBy, directKey); err != nil {
		return err
	}

	members := make([]string, len(chat.Members))
	copy(members, chat.Members)
	sort.Strings(members)

	if _, err = tx.ExecContext(ctx, `DELETE FROM chat_members WHERE chat_id=$1 AND NOT (user_id = ANY($2))`,
		chat.ID, pq.Array(members)); err != nil {
		return err
	}
	for _, userID := range members {
		if _, err = tx.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id, is_admin, unread_count)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (chat_id, user_id) DO UPDATE SET is_admin = $3, unread_count = $4`,
			chat.ID, userID, chat.HasAdmin(userID), chat.UnreadCounts[userID]); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// DeleteChat removes the chat; members and messages cascade.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, chatID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ListChatsForUser returns every chat the user is a member of, newest first.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	var rows []chatRow
	err := r.db.SelectContext(ctx, &rows, `SELECT c.id, c.is_group, c.name, c.image_ref, c.created_by, c.created_at
        FROM chats c INNER JOIN chat_members cm ON cm.chat_id = c.id
        WHERE cm.user_id=$1 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	chats := make([]models.ChatGroup, 0, len(rows))
	for _, row := range rows {
		chat, err := r.assemble(ctx, row)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *ChatRepo) assemble(ctx context.Context, row chatRow) (models.ChatGroup, error) {
	chat := models.ChatGroup{
		ID:           row.ID,
		IsGroup:      row.IsGroup,
		Name:         row.Name.String,
		ImageRef:     row.ImageRef.String,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt.Time,
		UnreadCounts: map[string]int{},
	}

	var members []memberRow
	if err := r.db.SelectContext(ctx, &members, `SELECT chat_id, user_id, is_admin, unread_count FROM chat_members WHERE chat_id=$1 ORDER BY user_id ASC`, row.ID); err != nil {
		return models.ChatGroup{}, err
	}
	for _, member := range members {
		chat.Members = append(chat.Members, member.UserID)
		if member.IsAdmin {
			chat.Admins = append(chat.Admins, member.UserID)
		}
		chat.UnreadCounts[member.UserID] = member.UnreadCount
	}
	return chat, nil
}

// DirectKey is the unique lookup key of a direct chat, independent of the
// order the two user ids are given in.
func DirectKey(userID1, userID2 string) string {
	return directKeyFromMembers([]string{userID1, userID2})
}

func directKeyFromMembers(memberIDs []string) string {
	ids := make([]string, len(memberIDs))
	copy(ids, memberIDs)
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
