package pkg

import (
	"time"
)

// Core types shared by the assistant components

// MemoryRecord is one consolidated long-term fact about the user
type MemoryRecord struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
	Timestamp  int64  `json:"timestamp"` // epoch milliseconds
}

// Tone is the personality register requested from the model
type Tone string

const (
	ToneTechnical   Tone = "technical"
	ToneCasual      Tone = "casual"
	ToneEngineering Tone = "engineering"
)

// ContextDecision is the outcome of scoring one user input
type ContextDecision struct {
	Score            int      `json:"score"`
	Tone             Tone     `json:"tone"`
	RequiresStrategy bool     `json:"requires_strategy"`
	IsImageRequest   bool     `json:"is_image_request"`
	Reasoning        []string `json:"reasoning"`
}

// Role identifies the author of a transcript turn
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// TurnState tracks whether a turn is still receiving streamed text
type TurnState string

const (
	TurnPending     TurnState = "pending"     // created, no chunk received yet
	TurnStreaming   TurnState = "streaming"   // at least one chunk applied
	TurnFinal       TurnState = "final"       // complete, immutable
	TurnInterrupted TurnState = "interrupted" // stream failed part way, immutable
)

// Open reports whether the turn may still be extended
func (s TurnState) Open() bool {
	return s == TurnPending || s == TurnStreaming
}

// Turn represents a message in the conversation transcript
type Turn struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	Text     string    `json:"text"`
	ImageRef string    `json:"image_ref,omitempty"`
	VideoRef string    `json:"video_ref,omitempty"`
	IsError  bool      `json:"is_error,omitempty"`
	State    TurnState `json:"state"`
}

// TaskStatus is the lifecycle of a task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is an item from the external task store
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// MediaKind classifies an attachment sent with a submission
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Media is an inline attachment, already base64 encoded
type Media struct {
	Kind     MediaKind `json:"kind"`
	Base64   string    `json:"base64"`
	MIMEType string    `json:"mime_type"`
	URL      string    `json:"url,omitempty"` // local reference shown in the transcript
}

// Submission is one user request to the coordinator
type Submission struct {
	Text  string `json:"text"`
	Media *Media `json:"media,omitempty"`
}
