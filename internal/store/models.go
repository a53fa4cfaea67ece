package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	Role         string // professor, assistant, student
	ProfileImage *string
	CreatedAt    time.Time
}

type Project struct {
	ID          string
	Name        string
	Description *string
	InviteCode  string
	CreatedBy   string
	CreatedAt   time.Time
}

type ProjectMember struct {
	ID        int64
	ProjectID string
	UserID    string
	Role      string // owner or member
	JoinedAt  time.Time

	// Joined user info for member listings
	UserName  string
	UserEmail string
	UserRole  string
}

type ChatRoom struct {
	ID          string
	Name        string
	Description *string
	Type        string // project, dm, or group

	// Project rooms
	ProjectID *string

	// DM rooms
	User1ID *string
	User2ID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID         string
	ChatRoomID string
	SenderID   string
	SenderName string
	SenderRole string
	Type       string // text, file, feedback, system
	Content    string
	Timestamp  time.Time

	FileURL  *string
	FileName *string

	// Feedback threading
	ParentMessageID *string
	FeedbackIDs     []string
}

type ChatVersion struct {
	ID            string
	ChatRoomID    string
	VersionNumber int
	Description   *string
	CreatedAt     time.Time
	CreatedBy     string
	MessageIDs    []string
}
