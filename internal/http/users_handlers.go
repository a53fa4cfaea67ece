package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/YouMinSeok/Research-Chat-server/internal/store"
	"github.com/YouMinSeok/Research-Chat-server/pkg/auth"
)

type UsersAPI struct{ DB *store.Postgres }

type updateUserReq struct {
	Name         *string `json:"name"`
	ProfileImage *string `json:"profile_image"`
}

// Me returns the authenticated user's profile
func (a *UsersAPI) Me(w http.ResponseWriter, r *http.Request) {
	u, err := a.DB.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, toUserDTO(u))
}

// UpdateMe patches the caller's name and/or profile image
func (a *UsersAPI) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.UpdateUser(r.Context(), auth.UserID(r.Context()), req.Name, req.ProfileImage)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toUserDTO(u))
}

// Get returns any user's public profile by ID
func (a *UsersAPI) Get(w http.ResponseWriter, r *http.Request) {
	u, err := a.DB.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, toUserDTO(u))
}

// List returns users with skip/limit paging
func (a *UsersAPI) List(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	users, err := a.DB.ListUsers(r.Context(), limit, skip)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, usersToDTO(users))
}

// Search matches users by name or email fragment
func (a *UsersAPI) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	if q == "" {
		http.Error(w, "query required", http.StatusBadRequest)
		return
	}

	users, err := a.DB.SearchUsers(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, usersToDTO(users))
}

func usersToDTO(users []store.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	return out
}

// queryInt parses a non-negative int query param with a fallback
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}
