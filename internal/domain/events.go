package domain

// Real-time event types sent over the websocket channel.
const (
	EventNewMessage  = "newMessage"
	EventOnlineUsers = "onlineUsers"
)

// Event is the envelope for every server-initiated push.
type Event struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	UserIDs []int64  `json:"user_ids,omitempty"`
}

// NewMessageEvent wraps a stored message for delivery to its receiver.
func NewMessageEvent(m *Message) Event {
	return Event{Type: EventNewMessage, Message: m}
}
