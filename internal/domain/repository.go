package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListActiveExcept(ctx context.Context, excludeID int64) ([]*User, error)
}

// MessageRepository is the conversation store.
type MessageRepository interface {
	// Create persists m and fills in its ID and CreatedAt.
	Create(ctx context.Context, m *Message) error
	// ListConversation returns the messages exchanged between selfID and
	// otherID in creation order and marks the returned messages sent by
	// otherID as seen, atomically with the read.
	ListConversation(ctx context.Context, selfID, otherID int64) ([]*Message, error)
	// ListCounterparts returns everyone selfID has exchanged messages with,
	// most recent first, with unseen counts.
	ListCounterparts(ctx context.Context, selfID int64) ([]Counterpart, error)
	// MarkSeen flags a single message addressed to receiverID as seen.
	// Missing or already-seen messages are not an error.
	MarkSeen(ctx context.Context, messageID, receiverID int64) error
}

// Pusher delivers real-time events to a user's active connection.
// Push reports whether a connection was found and the write succeeded.
type Pusher interface {
	Push(userID int64, event any) bool
}
