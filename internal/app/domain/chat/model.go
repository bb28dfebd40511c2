// Package chat defines group sessions and their message history.
package chat

import "time"

// GroupSession is a scheduled shared practice session with a chat room.
type GroupSession struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	HostID       string    `json:"host_id"`
	MeditationID string    `json:"meditation_id,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MessageType distinguishes user chat from server announcements.
type MessageType string

// Message types.
const (
	MessageTypeUser   MessageType = "user"
	MessageTypeSystem MessageType = "system"
)

// Message is one chat room entry. System messages have no sender.
type Message struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	SenderID   string      `json:"sender_id,omitempty"`
	SenderName string      `json:"sender_name,omitempty"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}
