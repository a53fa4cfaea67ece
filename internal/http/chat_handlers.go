package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YouMinSeok/Research-Chat-server/internal/store"
	"github.com/YouMinSeok/Research-Chat-server/pkg/auth"
)

type ChatAPI struct{ DB *store.Postgres }

type createRoomReq struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

type createMessageReq struct {
	ChatRoomID      string  `json:"chat_room_id"`
	Type            string  `json:"type"`
	Content         string  `json:"content"`
	FileURL         *string `json:"file_url"`
	FileName        *string `json:"file_name"`
	ParentMessageID *string `json:"parent_message_id"`
}

type createVersionReq struct {
	ChatRoomID  string  `json:"chat_room_id"`
	Description *string `json:"description"`
}

type roomDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Type        string    `json:"type"`
	ProjectID   *string   `json:"project_id,omitempty"`
	User1ID     *string   `json:"user1_id,omitempty"`
	User2ID     *string   `json:"user2_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type roomWithMembersDTO struct {
	roomDTO
	MemberIDs []string `json:"member_ids"`
}

type messageDTO struct {
	ID              string    `json:"id"`
	ChatRoomID      string    `json:"chat_room_id"`
	SenderID        string    `json:"sender_id"`
	SenderName      string    `json:"sender_name"`
	SenderRole      string    `json:"sender_role"`
	Type            string    `json:"type"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	FileURL         *string   `json:"file_url"`
	FileName        *string   `json:"file_name"`
	ParentMessageID *string   `json:"parent_message_id"`
	FeedbackIDs     []string  `json:"feedback_ids"`
}

type versionDTO struct {
	ID            string    `json:"id"`
	ChatRoomID    string    `json:"chat_room_id"`
	VersionNumber int       `json:"version_number"`
	Description   *string   `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
	MessageIDs    []string  `json:"message_ids"`
}

func toRoomDTO(r store.ChatRoom) roomDTO {
	return roomDTO{ID: r.ID, Name: r.Name, Description: r.Description, Type: r.Type,
		ProjectID: r.ProjectID, User1ID: r.User1ID, User2ID: r.User2ID,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func toMessageDTO(m store.Message) messageDTO {
	if m.FeedbackIDs == nil {
		m.FeedbackIDs = []string{}
	}
	return messageDTO{ID: m.ID, ChatRoomID: m.ChatRoomID, SenderID: m.SenderID,
		SenderName: m.SenderName, SenderRole: m.SenderRole, Type: m.Type,
		Content: m.Content, Timestamp: m.Timestamp, FileURL: m.FileURL,
		FileName: m.FileName, ParentMessageID: m.ParentMessageID, FeedbackIDs: m.FeedbackIDs}
}

func toVersionDTO(v store.ChatVersion) versionDTO {
	if v.MessageIDs == nil {
		v.MessageIDs = []string{}
	}
	return versionDTO{ID: v.ID, ChatRoomID: v.ChatRoomID, VersionNumber: v.VersionNumber,
		Description: v.Description, CreatedAt: v.CreatedAt, CreatedBy: v.CreatedBy,
		MessageIDs: v.MessageIDs}
}

func messagesToDTO(msgs []store.Message) []messageDTO {
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageDTO(m))
	}
	return out
}

func validMessageType(t string) bool {
	switch t {
	case "text", "file", "feedback", "system":
		return true
	}
	return false
}

// CreateRoom opens a group room with an explicit member set
func (a *ChatAPI) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	room, members, err := a.DB.CreateRoom(r.Context(), req.Name, req.Description, req.MemberIDs, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, roomWithMembersDTO{roomDTO: toRoomDTO(room), MemberIDs: members})
}

// ListRooms returns the caller's rooms with their member lists
func (a *ChatAPI) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.DB.ListRoomsFor(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]roomWithMembersDTO, 0, len(rooms))
	for _, room := range rooms {
		members, err := a.DB.RoomMemberIDs(r.Context(), room.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, roomWithMembersDTO{roomDTO: toRoomDTO(room), MemberIDs: members})
	}
	writeJSON(w, out)
}

// GetRoom returns one room with members, for room members only
func (a *ChatAPI) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	room, err := a.DB.GetRoom(r.Context(), id)
	if err != nil {
		http.Error(w, "chat room not found", http.StatusNotFound)
		return
	}
	if !a.requireRoomMember(w, r, id) {
		return
	}

	members, err := a.DB.RoomMemberIDs(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, roomWithMembersDTO{roomDTO: toRoomDTO(room), MemberIDs: members})
}

// DeleteRoom removes a room and everything hanging off it
func (a *ChatAPI) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.DeleteRoom(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "chat room not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "chat room deleted successfully"})
}

// CreateMessage is the durable write path. The websocket layer never calls
// this; clients invoke it alongside their live send.
func (a *ChatAPI) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.ChatRoomID == "" || req.Content == "" || !validMessageType(req.Type) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if !a.requireRoomMember(w, r, req.ChatRoomID) {
		return
	}

	sender, err := a.DB.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "sender not found", http.StatusNotFound)
		return
	}

	msg, err := a.DB.CreateMessage(r.Context(), store.MessageDraft{
		ChatRoomID:      req.ChatRoomID,
		Type:            req.Type,
		Content:         req.Content,
		FileURL:         req.FileURL,
		FileName:        req.FileName,
		ParentMessageID: req.ParentMessageID,
	}, sender)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toMessageDTO(msg))
}

// ListMessages pages through a room's history, for room members only
func (a *ChatAPI) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.requireRoomMember(w, r, id) {
		return
	}

	msgs, err := a.DB.ListMessages(r.Context(), id, queryInt(r, "limit", 100), queryInt(r, "skip", 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, messagesToDTO(msgs))
}

// CreateVersion snapshots the room's current message sequence
func (a *ChatAPI) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatRoomID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	v, err := a.DB.CreateVersion(r.Context(), req.ChatRoomID, req.Description, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toVersionDTO(v))
}

// ListVersions returns a room's versions, newest first
func (a *ChatAPI) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.DB.ListVersions(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]versionDTO, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionDTO(v))
	}
	writeJSON(w, out)
}

// VersionMessages resolves a version snapshot back into its messages
func (a *ChatAPI) VersionMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.DB.VersionMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "version not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, messagesToDTO(msgs))
}

// CreateDM gets or creates the DM room with another user
func (a *ChatAPI) CreateDM(w http.ResponseWriter, r *http.Request) {
	otherID := r.URL.Query().Get("other_user_id")
	me := auth.UserID(r.Context())

	if otherID == "" {
		http.Error(w, "other_user_id required", http.StatusBadRequest)
		return
	}
	if otherID == me {
		http.Error(w, "cannot create dm with yourself", http.StatusBadRequest)
		return
	}

	meUser, err := a.DB.GetUser(r.Context(), me)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	other, err := a.DB.GetUser(r.Context(), otherID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	room, err := a.DB.GetOrCreateDM(r.Context(), meUser, other)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toRoomDTO(room))
}

// MyDMs lists the caller's DM rooms
func (a *ChatAPI) MyDMs(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.DB.ListDMsFor(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	writeJSON(w, out)
}

// ProjectRoom returns a project's chat room, for project members only
func (a *ChatAPI) ProjectRoom(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	if _, err := a.DB.ProjectRole(r.Context(), projectID, auth.UserID(r.Context())); err != nil {
		http.Error(w, "not a member of this project", http.StatusForbidden)
		return
	}

	room, err := a.DB.ProjectRoom(r.Context(), projectID)
	if err != nil {
		http.Error(w, "project chat room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, toRoomDTO(room))
}

// requireRoomMember writes a 403 and returns false unless the caller is a
// member of the room
func (a *ChatAPI) requireRoomMember(w http.ResponseWriter, r *http.Request, roomID string) bool {
	ok, err := a.DB.IsRoomMember(r.Context(), roomID, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if !ok {
		http.Error(w, "not a member of this chat room", http.StatusForbidden)
		return false
	}
	return true
}
