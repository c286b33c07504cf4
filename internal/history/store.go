package history

import (
	"context"
	"time"
)

// ChatMessage is one message broadcast to a room.
type ChatMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"size:255;not null;index" json:"username"`
	RoomName  string    `gorm:"size:255;not null;index" json:"room_name"`
	Message   string    `gorm:"not null" json:"message"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// TableName returns the table name for ChatMessage.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// DirectMessage is one message addressed to a single recipient. It is
// recorded even when the recipient was offline at send time.
type DirectMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Sender    string    `gorm:"size:255;not null;index" json:"sender"`
	Recipient string    `gorm:"size:255;not null;index" json:"recipient"`
	Message   string    `gorm:"not null" json:"message"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// TableName returns the table name for DirectMessage.
func (DirectMessage) TableName() string {
	return "direct_messages"
}

// Store is a write-only message log. The relay never reads messages back;
// reading is left to whatever serves the archive.
type Store interface {
	SaveChatMessage(ctx context.Context, msg *ChatMessage) error
	SaveDirectMessage(ctx context.Context, msg *DirectMessage) error
	Close() error
}
