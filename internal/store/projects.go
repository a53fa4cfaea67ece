package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/YouMinSeok/Research-Chat-server/pkg/invite"
)

// ErrAlreadyMember is returned when joining a project twice.
var ErrAlreadyMember = errors.New("already a member")

// CreateProject inserts a project with a fresh invite code, makes the creator
// its owner, and opens the project-wide chat room. All in one transaction.
func (p *Postgres) CreateProject(ctx context.Context, name string, description *string, creatorID string) (Project, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Project{}, err
	}
	defer tx.Rollback(ctx)

	// Invite codes collide rarely (36^6 space); draw until one is unused.
	// The UNIQUE constraint still backstops a concurrent draw of the same code.
	var code string
	for {
		code = invite.NewCode()
		var taken bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM projects WHERE invite_code = $1)
		`, code).Scan(&taken); err != nil {
			return Project{}, err
		}
		if !taken {
			break
		}
	}

	var pr Project
	row := tx.QueryRow(ctx, `
		INSERT INTO projects (id, name, description, invite_code, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, invite_code, created_by, created_at
	`, uuid.NewString(), name, description, code, creatorID)
	if err := row.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.InviteCode, &pr.CreatedBy, &pr.CreatedAt); err != nil {
		return Project{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`, pr.ID, creatorID); err != nil {
		return Project{}, err
	}

	roomID := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_rooms (id, name, description, type, project_id)
		VALUES ($1, $2, 'Project-wide chat room', 'project', $3)
	`, roomID, fmt.Sprintf("%s - Project Chat", name), pr.ID); err != nil {
		return Project{}, err
	}

	// Room membership backs websocket admission, so the creator joins the
	// project room right away
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_room_members (chat_room_id, user_id)
		VALUES ($1, $2)
	`, roomID, creatorID); err != nil {
		return Project{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Project{}, err
	}
	p.log.Info("project.created", "id", pr.ID, "invite_code", pr.InviteCode)
	return pr, nil
}

// JoinProject adds userID as a member of the project behind the invite code
func (p *Postgres) JoinProject(ctx context.Context, inviteCode, userID string) (Project, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, description, invite_code, created_by, created_at
		FROM projects
		WHERE invite_code = $1
	`, inviteCode)

	var pr Project
	if err := row.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.InviteCode, &pr.CreatedBy, &pr.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Project{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, 'member')
	`, pr.ID, userID); err != nil {
		if isUniqueViolation(err) {
			return Project{}, ErrAlreadyMember
		}
		return Project{}, err
	}

	// New project members can use the project-wide room immediately
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_room_members (chat_room_id, user_id)
		SELECT id, $2 FROM chat_rooms
		WHERE type = 'project' AND project_id = $1
		ON CONFLICT DO NOTHING
	`, pr.ID, userID); err != nil {
		return Project{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Project{}, err
	}
	return pr, nil
}

// ListProjectsFor returns the projects userID belongs to
func (p *Postgres) ListProjectsFor(ctx context.Context, userID string) ([]Project, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT pr.id, pr.name, pr.description, pr.invite_code, pr.created_by, pr.created_at
		FROM projects pr
		JOIN project_members pm ON pm.project_id = pr.id
		WHERE pm.user_id = $1
		ORDER BY pr.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var pr Project
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.InviteCode, &pr.CreatedBy, &pr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// GetProject fetches a project by ID
func (p *Postgres) GetProject(ctx context.Context, id string) (Project, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, description, invite_code, created_by, created_at
		FROM projects
		WHERE id = $1
	`, id)

	var pr Project
	if err := row.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.InviteCode, &pr.CreatedBy, &pr.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return pr, nil
}

// ProjectMembers lists members of a project with user display info joined in
func (p *Postgres) ProjectMembers(ctx context.Context, projectID string) ([]ProjectMember, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT pm.id, pm.project_id, pm.user_id, pm.role, pm.joined_at,
		       u.name, u.email, u.role
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1
		ORDER BY pm.joined_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectMember
	for rows.Next() {
		var m ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt,
			&m.UserName, &m.UserEmail, &m.UserRole); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ProjectRole returns the role userID holds in the project, or ErrNotFound
func (p *Postgres) ProjectRole(ctx context.Context, projectID, userID string) (string, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT role FROM project_members
		WHERE project_id = $1 AND user_id = $2
	`, projectID, userID)

	var role string
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return role, nil
}

// DeleteProject removes the project; memberships, rooms, and messages cascade
func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	ct, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
