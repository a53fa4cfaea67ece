package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roomCols = "id, name, description, type, project_id, user1_id, user2_id, created_at, updated_at"

func scanRoom(row pgx.Row) (ChatRoom, error) {
	var r ChatRoom
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Type, &r.ProjectID,
		&r.User1ID, &r.User2ID, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateRoom opens a group chat room with an explicit member set.
// The creator is always part of the room.
func (p *Postgres) CreateRoom(ctx context.Context, name string, description *string, memberIDs []string, creatorID string) (ChatRoom, []string, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return ChatRoom{}, nil, err
	}
	defer tx.Rollback(ctx)

	room, err := scanRoom(tx.QueryRow(ctx, `
		INSERT INTO chat_rooms (id, name, description, type)
		VALUES ($1, $2, $3, 'group')
		RETURNING `+roomCols,
		uuid.NewString(), name, description))
	if err != nil {
		return ChatRoom{}, nil, err
	}

	members := dedupe(append(memberIDs, creatorID))
	for _, uid := range members {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_room_members (chat_room_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, room.ID, uid); err != nil {
			return ChatRoom{}, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ChatRoom{}, nil, err
	}
	return room, members, nil
}

// ListRoomsFor returns the rooms userID is a member of
func (p *Postgres) ListRoomsFor(ctx context.Context, userID string) ([]ChatRoom, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.type, r.project_id, r.user1_id, r.user2_id, r.created_at, r.updated_at
		FROM chat_rooms r
		JOIN chat_room_members m ON m.chat_room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

// GetRoom fetches a room by ID
func (p *Postgres) GetRoom(ctx context.Context, id string) (ChatRoom, error) {
	room, err := scanRoom(p.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM chat_rooms WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChatRoom{}, ErrNotFound
		}
		return ChatRoom{}, err
	}
	return room, nil
}

// RoomMemberIDs lists the user IDs registered as members of a room
func (p *Postgres) RoomMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id FROM chat_room_members
		WHERE chat_room_id = $1
		ORDER BY joined_at
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

// IsRoomMember answers the admission check for the websocket layer
func (p *Postgres) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_room_members
			WHERE chat_room_id = $1 AND user_id = $2
		)
	`, roomID, userID)

	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// DeleteRoom removes a room; members, messages, and versions cascade
func (p *Postgres) DeleteRoom(ctx context.Context, id string) error {
	ct, err := p.pool.Exec(ctx, `DELETE FROM chat_rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrCreateDM returns the DM room between the two users, creating it on
// first use. Both users become room members so they pass admission.
func (p *Postgres) GetOrCreateDM(ctx context.Context, me, other User) (ChatRoom, error) {
	room, err := scanRoom(p.pool.QueryRow(ctx, `
		SELECT `+roomCols+` FROM chat_rooms
		WHERE type = 'dm'
		  AND ((user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1))
	`, me.ID, other.ID))
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ChatRoom{}, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return ChatRoom{}, err
	}
	defer tx.Rollback(ctx)

	room, err = scanRoom(tx.QueryRow(ctx, `
		INSERT INTO chat_rooms (id, name, description, type, user1_id, user2_id)
		VALUES ($1, $2, 'Direct Message', 'dm', $3, $4)
		RETURNING `+roomCols,
		uuid.NewString(), fmt.Sprintf("DM: %s - %s", me.Name, other.Name), me.ID, other.ID))
	if err != nil {
		return ChatRoom{}, err
	}

	for _, uid := range []string{me.ID, other.ID} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_room_members (chat_room_id, user_id)
			VALUES ($1, $2)
		`, room.ID, uid); err != nil {
			return ChatRoom{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ChatRoom{}, err
	}
	return room, nil
}

// ListDMsFor returns DM rooms where userID is a participant
func (p *Postgres) ListDMsFor(ctx context.Context, userID string) ([]ChatRoom, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+roomCols+` FROM chat_rooms
		WHERE type = 'dm' AND (user1_id = $1 OR user2_id = $1)
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

// ProjectRoom returns the project-wide chat room of a project
func (p *Postgres) ProjectRoom(ctx context.Context, projectID string) (ChatRoom, error) {
	room, err := scanRoom(p.pool.QueryRow(ctx, `
		SELECT `+roomCols+` FROM chat_rooms
		WHERE type = 'project' AND project_id = $1
	`, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChatRoom{}, ErrNotFound
		}
		return ChatRoom{}, err
	}
	return room, nil
}

func collectRooms(rows pgx.Rows) ([]ChatRoom, error) {
	var out []ChatRoom
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
