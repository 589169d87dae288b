package history

import "time"

// Action is what happened to a file
type Action string

const (
	ActionCaptured    Action = "captured"
	ActionOverwritten Action = "overwritten"
	ActionDeleted     Action = "deleted"
)

// Event is one journal entry
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Action    Action    `gorm:"not null;index" json:"action"`
	FileName  string    `gorm:"not null" json:"file_name"`
	Folder    string    `gorm:"not null" json:"folder"`
	Strategy  string    `json:"strategy,omitempty"` // "screen_rect" or "window"
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Permanent bool      `gorm:"not null;default:false" json:"permanent,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
