package store

import "time"

// Turn roles, matching what the Gemini API expects in chat history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type SearchEntry struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID        string    `json:"id"` // UUID
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Turn struct {
	ID             string    `json:"id"` // UUID
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "model"
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}
