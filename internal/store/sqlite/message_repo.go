package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

const messageColumns = `id, sender_id, receiver_id, text, image_url, seen, created_at`

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Seen = false
	m.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, text, image_url, seen, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, m.SenderID, m.ReceiverID, m.Text, m.ImageURL, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) ListConversation(ctx context.Context, selfID, otherID int64) ([]*domain.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`, selfID, otherID, otherID, selfID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Only the rows handed back to the reader are swept; anything committed
	// after the SELECT has a larger id and stays unseen.
	var unseen []*domain.Message
	var maxUnseen int64
	for _, m := range msgs {
		if m.SenderID == otherID && m.ReceiverID == selfID && !m.Seen {
			unseen = append(unseen, m)
			maxUnseen = max(maxUnseen, m.ID)
		}
	}
	if len(unseen) > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE messages SET seen = 1
			WHERE sender_id = ? AND receiver_id = ? AND seen = 0 AND id <= ?
		`, otherID, selfID, maxUnseen); err != nil {
			return nil, fmt.Errorf("mark conversation seen: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit list tx: %w", err)
	}
	for _, m := range unseen {
		m.Seen = true
	}
	return msgs, nil
}

func (r *MessageRepo) ListCounterparts(ctx context.Context, selfID int64) ([]domain.Counterpart, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS other_id,
			SUM(CASE WHEN receiver_id = ? AND seen = 0 THEN 1 ELSE 0 END) AS unseen
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		GROUP BY other_id
		ORDER BY MAX(id) DESC
	`, selfID, selfID, selfID, selfID)
	if err != nil {
		return nil, fmt.Errorf("list counterparts: %w", err)
	}
	defer rows.Close()

	var res []domain.Counterpart
	for rows.Next() {
		var c domain.Counterpart
		if err := rows.Scan(&c.UserID, &c.Unseen); err != nil {
			return nil, fmt.Errorf("scan counterpart: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *MessageRepo) MarkSeen(ctx context.Context, messageID, receiverID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET seen = 1
		WHERE id = ? AND receiver_id = ? AND seen = 0
	`, messageID, receiverID)
	if err != nil {
		return fmt.Errorf("mark message seen: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Text,
			&m.ImageURL,
			&m.Seen,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
