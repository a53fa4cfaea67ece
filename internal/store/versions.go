package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const versionCols = "id, chat_room_id, version_number, description, created_at, created_by, message_ids"

func scanVersion(row pgx.Row) (ChatVersion, error) {
	var v ChatVersion
	err := row.Scan(&v.ID, &v.ChatRoomID, &v.VersionNumber, &v.Description,
		&v.CreatedAt, &v.CreatedBy, &v.MessageIDs)
	return v, err
}

// CreateVersion snapshots the room's current message-ID sequence under the
// next version number.
func (p *Postgres) CreateVersion(ctx context.Context, roomID string, description *string, createdBy string) (ChatVersion, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return ChatVersion{}, err
	}
	defer tx.Rollback(ctx)

	v, err := scanVersion(tx.QueryRow(ctx, `
		INSERT INTO chat_versions (id, chat_room_id, version_number, description, created_by, message_ids)
		SELECT $1, $2,
		       COALESCE((SELECT MAX(version_number) FROM chat_versions WHERE chat_room_id = $2), 0) + 1,
		       $3, $4,
		       COALESCE((SELECT array_agg(id ORDER BY ts) FROM messages WHERE chat_room_id = $2), '{}')
		RETURNING `+versionCols,
		uuid.NewString(), roomID, description, createdBy))
	if err != nil {
		return ChatVersion{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ChatVersion{}, err
	}
	p.log.Info("version.created", "room", roomID, "number", v.VersionNumber, "messages", len(v.MessageIDs))
	return v, nil
}

// ListVersions returns a room's versions, newest first
func (p *Postgres) ListVersions(ctx context.Context, roomID string) ([]ChatVersion, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+versionCols+` FROM chat_versions
		WHERE chat_room_id = $1
		ORDER BY version_number DESC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VersionMessages resolves a version's message IDs back into messages,
// in timestamp order.
func (p *Postgres) VersionMessages(ctx context.Context, versionID string) ([]Message, error) {
	v, err := scanVersion(p.pool.QueryRow(ctx, `
		SELECT `+versionCols+` FROM chat_versions WHERE id = $1
	`, versionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT `+messageCols+` FROM messages
		WHERE id = ANY($1)
		ORDER BY ts
	`, v.MessageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}
