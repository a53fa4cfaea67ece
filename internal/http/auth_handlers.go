package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/YouMinSeok/Research-Chat-server/internal/store"
	"github.com/YouMinSeok/Research-Chat-server/pkg/auth"
)

type AuthAPI struct {
	DB     *store.Postgres
	JWT    *auth.JWT
	JWTTTL time.Duration
}

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ProfileImage *string   `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserDTO(u store.User) userDTO {
	return userDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
		ProfileImage: u.ProfileImage, CreatedAt: u.CreatedAt}
}

func validRole(role string) bool {
	switch role {
	case "professor", "assistant", "student":
		return true
	}
	return false
}

// Signup handles account creation
func (a *AuthAPI) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	// Basic validation; passwords are capped by bcrypt's 72-byte limit
	if req.Name == "" || !strings.Contains(req.Email, "@") ||
		len(req.Password) < 4 || len(req.Password) > 72 || !validRole(req.Role) {
		http.Error(w, "invalid signup payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			http.Error(w, "email already registered", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, toUserDTO(u))
}

// Login verifies credentials and returns a bearer token
func (a *AuthAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.VerifyUser(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "incorrect email or password", http.StatusUnauthorized)
		return
	}

	tok, err := a.JWT.Sign(u.ID, a.JWTTTL)
	if err != nil {
		http.Error(w, "token signing failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, tokenResp{AccessToken: tok, TokenType: "bearer"})
}

// Logout is stateless; clients drop the token on their side
func (a *AuthAPI) Logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"message": "successfully logged out"})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
