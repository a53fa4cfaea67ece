package httpx

import (
	"net/http"

	"log/slog"

	"github.com/YouMinSeok/Research-Chat-server/internal/app"
	"github.com/YouMinSeok/Research-Chat-server/internal/store"
	"github.com/YouMinSeok/Research-Chat-server/internal/ws"
	"github.com/YouMinSeok/Research-Chat-server/pkg/auth"
	"github.com/YouMinSeok/Research-Chat-server/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, db *store.Postgres) http.Handler {
	mw := NewMiddleware(cfg)

	authAPI := &AuthAPI{DB: db, JWT: auth.New(cfg.JWTSecret), JWTTTL: cfg.JWTTTL}
	usersAPI := &UsersAPI{DB: db}
	projectsAPI := &ProjectsAPI{DB: db}
	chatAPI := &ChatAPI{DB: db}

	api := http.NewServeMux()

	// Health / readiness / metrics
	api.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	api.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	api.Handle("/metrics", metrics.Handler())

	// Auth endpoints
	api.Handle("POST /api/auth/signup", http.HandlerFunc(authAPI.Signup))
	api.Handle("POST /api/auth/login", http.HandlerFunc(authAPI.Login))
	api.Handle("POST /api/auth/logout", http.HandlerFunc(authAPI.Logout))

	// User endpoints (JWT-protected; literal segments win over {id})
	api.Handle("GET /api/users/me", mw.Auth(http.HandlerFunc(usersAPI.Me)))
	api.Handle("PUT /api/users/me", mw.Auth(http.HandlerFunc(usersAPI.UpdateMe)))
	api.Handle("GET /api/users/search", mw.Auth(http.HandlerFunc(usersAPI.Search)))
	api.Handle("GET /api/users/{id}", mw.Auth(http.HandlerFunc(usersAPI.Get)))
	api.Handle("GET /api/users", mw.Auth(http.HandlerFunc(usersAPI.List)))

	// Project endpoints
	api.Handle("POST /api/projects", mw.Auth(http.HandlerFunc(projectsAPI.Create)))
	api.Handle("POST /api/projects/join", mw.Auth(http.HandlerFunc(projectsAPI.Join)))
	api.Handle("GET /api/projects/my", mw.Auth(http.HandlerFunc(projectsAPI.My)))
	api.Handle("GET /api/projects/{id}", mw.Auth(http.HandlerFunc(projectsAPI.Get)))
	api.Handle("GET /api/projects/{id}/members", mw.Auth(http.HandlerFunc(projectsAPI.Members)))
	api.Handle("DELETE /api/projects/{id}", mw.Auth(http.HandlerFunc(projectsAPI.Delete)))

	// Chat endpoints
	api.Handle("POST /api/chat/rooms", mw.Auth(http.HandlerFunc(chatAPI.CreateRoom)))
	api.Handle("GET /api/chat/rooms", mw.Auth(http.HandlerFunc(chatAPI.ListRooms)))
	api.Handle("GET /api/chat/rooms/{id}", mw.Auth(http.HandlerFunc(chatAPI.GetRoom)))
	api.Handle("DELETE /api/chat/rooms/{id}", mw.Auth(http.HandlerFunc(chatAPI.DeleteRoom)))
	api.Handle("POST /api/chat/messages", mw.Auth(http.HandlerFunc(chatAPI.CreateMessage)))
	api.Handle("GET /api/chat/rooms/{id}/messages", mw.Auth(http.HandlerFunc(chatAPI.ListMessages)))
	api.Handle("POST /api/chat/versions", mw.Auth(http.HandlerFunc(chatAPI.CreateVersion)))
	api.Handle("GET /api/chat/rooms/{id}/versions", mw.Auth(http.HandlerFunc(chatAPI.ListVersions)))
	api.Handle("GET /api/chat/versions/{id}/messages", mw.Auth(http.HandlerFunc(chatAPI.VersionMessages)))
	api.Handle("POST /api/chat/dm", mw.Auth(http.HandlerFunc(chatAPI.CreateDM)))
	api.Handle("GET /api/chat/dm/my", mw.Auth(http.HandlerFunc(chatAPI.MyDMs)))
	api.Handle("GET /api/chat/project/{projectID}", mw.Auth(http.HandlerFunc(chatAPI.ProjectRoom)))

	// The websocket endpoint sits outside CORS + rate limiting: admission is
	// the membership check, and one long-lived request shouldn't spend the
	// caller's API budget
	root := http.NewServeMux()
	root.Handle("/ws/{room}/{user}", http.HandlerFunc(hub.ServeWS))
	root.Handle("/", mw.Wrap(api))

	logger.Debug("router.ready", "cors", cfg.CORSAllow)
	return root
}
