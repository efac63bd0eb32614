package domain

import "time"

// User represents an application user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	FullName       string    `db:"full_name" json:"full_name"`
	ProfilePic     *string   `db:"profile_pic" json:"profile_pic,omitempty"`
	Bio            *string   `db:"bio" json:"bio,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Message is a single direct message between two users.
// Text is always ciphertext; ImageURL is an external reference and is never encrypted.
type Message struct {
	ID         int64     `db:"id" json:"id"`
	SenderID   int64     `db:"sender_id" json:"sender_id"`
	ReceiverID int64     `db:"receiver_id" json:"receiver_id"`
	Text       *string   `db:"text" json:"text,omitempty"`
	ImageURL   *string   `db:"image_url" json:"image,omitempty"`
	Seen       bool      `db:"seen" json:"seen"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// HasText reports whether the message carries a non-empty text payload.
func (m *Message) HasText() bool {
	return m.Text != nil && *m.Text != ""
}

// HasImage reports whether the message carries an image reference.
func (m *Message) HasImage() bool {
	return m.ImageURL != nil && *m.ImageURL != ""
}

// Validate checks the text/image presence invariant.
func (m *Message) Validate() error {
	if m.SenderID == 0 || m.ReceiverID == 0 {
		return ErrInvalidInput
	}
	if !m.HasText() && !m.HasImage() {
		return ErrEmptyMessage
	}
	return nil
}

// Counterpart is a user who has exchanged messages with the current user,
// together with the number of their messages the current user has not seen.
type Counterpart struct {
	UserID int64 `json:"user_id"`
	Unseen int   `json:"unseen"`
}
