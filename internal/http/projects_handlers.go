package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YouMinSeok/Research-Chat-server/internal/store"
	"github.com/YouMinSeok/Research-Chat-server/pkg/auth"
)

type ProjectsAPI struct{ DB *store.Postgres }

type createProjectReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
type joinProjectReq struct {
	InviteCode string `json:"invite_code"`
}

type projectDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	InviteCode  string    `json:"invite_code"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type projectMemberDTO struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	UserRole  string    `json:"user_role"`
}

type projectWithMembersDTO struct {
	projectDTO
	Members []projectMemberDTO `json:"members"`
}

func toProjectDTO(p store.Project) projectDTO {
	return projectDTO{ID: p.ID, Name: p.Name, Description: p.Description,
		InviteCode: p.InviteCode, CreatedBy: p.CreatedBy, CreatedAt: p.CreatedAt}
}

func toMemberDTOs(members []store.ProjectMember) []projectMemberDTO {
	out := make([]projectMemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, projectMemberDTO{
			ID: m.ID, ProjectID: m.ProjectID, UserID: m.UserID, Role: m.Role,
			JoinedAt: m.JoinedAt, UserName: m.UserName, UserEmail: m.UserEmail, UserRole: m.UserRole,
		})
	}
	return out
}

// Create starts a project: invite code, owner membership, and the
// project-wide chat room come with it.
func (a *ProjectsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	p, err := a.DB.CreateProject(r.Context(), req.Name, req.Description, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toProjectDTO(p))
}

// Join adds the caller to the project behind an invite code
func (a *ProjectsAPI) Join(w http.ResponseWriter, r *http.Request) {
	var req joinProjectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteCode == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	p, err := a.DB.JoinProject(r.Context(), req.InviteCode, auth.UserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "invalid invite code", http.StatusNotFound)
		case errors.Is(err, store.ErrAlreadyMember):
			http.Error(w, "already a member of this project", http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, toProjectDTO(p))
}

// My lists the caller's projects
func (a *ProjectsAPI) My(w http.ResponseWriter, r *http.Request) {
	projects, err := a.DB.ListProjectsFor(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]projectDTO, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectDTO(p))
	}
	writeJSON(w, out)
}

// Get returns project details with members, for members only
func (a *ProjectsAPI) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.requireMember(w, r, id) {
		return
	}

	p, err := a.DB.GetProject(r.Context(), id)
	if err != nil {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	members, err := a.DB.ProjectMembers(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, projectWithMembersDTO{projectDTO: toProjectDTO(p), Members: toMemberDTOs(members)})
}

// Members lists a project's members, for members only
func (a *ProjectsAPI) Members(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.requireMember(w, r, id) {
		return
	}

	members, err := a.DB.ProjectMembers(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toMemberDTOs(members))
}

// Delete removes a project; owners only
func (a *ProjectsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	role, err := a.DB.ProjectRole(r.Context(), id, auth.UserID(r.Context()))
	if err != nil || role != "owner" {
		http.Error(w, "only the project owner can delete the project", http.StatusForbidden)
		return
	}

	if err := a.DB.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "project deleted successfully"})
}

// requireMember writes a 403 and returns false unless the caller belongs to
// the project
func (a *ProjectsAPI) requireMember(w http.ResponseWriter, r *http.Request, projectID string) bool {
	_, err := a.DB.ProjectRole(r.Context(), projectID, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "not a member of this project", http.StatusForbidden)
		return false
	}
	return true
}
