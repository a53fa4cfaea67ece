package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageCols = `id, chat_room_id, sender_id, sender_name, sender_role, type, content, ts,
	file_url, file_name, parent_message_id, feedback_ids`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.SenderName, &m.SenderRole,
		&m.Type, &m.Content, &m.Timestamp, &m.FileURL, &m.FileName,
		&m.ParentMessageID, &m.FeedbackIDs)
	return m, err
}

// MessageDraft is the client-supplied part of a message; the server assigns
// ID, timestamp, and sender attribution.
type MessageDraft struct {
	ChatRoomID      string
	Type            string
	Content         string
	FileURL         *string
	FileName        *string
	ParentMessageID *string
}

// CreateMessage durably stores a message on the REST write path. Feedback
// messages are linked back into their parent's feedback_ids, and the room's
// updated_at is bumped so room listings sort by activity.
func (p *Postgres) CreateMessage(ctx context.Context, draft MessageDraft, sender User) (Message, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback(ctx)

	msg, err := scanMessage(tx.QueryRow(ctx, `
		INSERT INTO messages (id, chat_room_id, sender_id, sender_name, sender_role,
		                      type, content, file_url, file_name, parent_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+messageCols,
		uuid.NewString(), draft.ChatRoomID, sender.ID, sender.Name, sender.Role,
		draft.Type, draft.Content, draft.FileURL, draft.FileName, draft.ParentMessageID))
	if err != nil {
		return Message{}, err
	}

	if draft.ParentMessageID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE messages
			SET feedback_ids = array_append(feedback_ids, $2)
			WHERE id = $1
		`, *draft.ParentMessageID, msg.ID); err != nil {
			return Message{}, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE chat_rooms SET updated_at = NOW() WHERE id = $1
	`, draft.ChatRoomID); err != nil {
		return Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ListMessages returns a room's history in timestamp order
func (p *Postgres) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]Message, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+messageCols+` FROM messages
		WHERE chat_room_id = $1
		ORDER BY ts
		LIMIT $2 OFFSET $3
	`, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
