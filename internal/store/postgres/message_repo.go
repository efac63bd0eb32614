package postgres

import (
	"context"
	"database/sql"
	"fmt"

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, text, image_url, seen)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, seen, created_at
	`, m.SenderID, m.ReceiverID, m.Text, m.ImageURL,
	).Scan(&m.ID, &m.Seen, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListConversation reads the pair's history and sweeps exactly the returned
// unseen rows in the same transaction.
func (r *MessageRepo) ListConversation(ctx context.Context, selfID, otherID int64) ([]*domain.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, selfID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	var (
		unseen []*domain.Message
		ids    []int64
	)
	for _, m := range msgs {
		if m.SenderID == otherID && m.ReceiverID == selfID && !m.Seen {
			unseen = append(unseen, m)
			ids = append(ids, m.ID)
		}
	}
	if len(ids) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET seen = TRUE WHERE id = ANY($1) AND seen = FALSE`, ids,
		); err != nil {
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
			CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id,
			COUNT(*) FILTER (WHERE receiver_id = $1 AND NOT seen) AS unseen
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		GROUP BY other_id
		ORDER BY MAX(id) DESC
	`, selfID)
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
	if _, err := r.db.ExecContext(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE id = $1 AND receiver_id = $2 AND seen = FALSE
	`, messageID, receiverID); err != nil {
		return fmt.Errorf("mark message seen: %w", err)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.ImageURL, &m.Seen, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
