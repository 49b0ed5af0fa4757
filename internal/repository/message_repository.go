package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

const messageColumns = "id, sender_id, recipient_id, content, sent_at, is_read"

// MessageRepo stores direct messages in the MySQL `messages` table.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages ("+messageColumns+") VALUES (?,?,?,?,?,?)",
		m.ID, m.Sender, m.Recipient, m.Content, m.Timestamp, m.IsRead)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*model.Message, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id=? LIMIT 1", id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

// ListConversation returns every message exchanged between a and b in
// either direction, oldest first.
func (r *MessageRepo) ListConversation(ctx context.Context, a, b string) ([]*model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE (sender_id=? AND recipient_id=?) OR (sender_id=? AND recipient_id=?)
		 ORDER BY sent_at ASC, id ASC`,
		a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags unread messages from sender to recipient as read and
// returns how many changed.
func (r *MessageRepo) MarkRead(ctx context.Context, sender, recipient string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE messages SET is_read=1 WHERE sender_id=? AND recipient_id=? AND is_read=0",
		sender, recipient)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanMessage(s rowScanner) (*model.Message, error) {
	var m model.Message
	if err := s.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Content, &m.Timestamp, &m.IsRead); err != nil {
		return nil, err
	}
	return &m, nil
}
