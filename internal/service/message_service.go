package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
	"github.com/Sabbir9535/BlinkChat/internal/security"
)

// MaxTextLength bounds the plaintext length of a single message, in runes.
const MaxTextLength = 5000

// ImageStore turns an inline image payload into a stable external URL.
type ImageStore interface {
	PutDataURL(ctx context.Context, dataURL string) (string, error)
}

// MessageService is the delivery pipeline and the query side of the
// conversation store.
type MessageService struct {
	messages  domain.MessageRepository
	users     domain.UserRepository
	encryptor *security.Encryptor
	pusher    domain.Pusher
	images    ImageStore
}

func NewMessageService(
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
	pusher domain.Pusher,
	images ImageStore,
) *MessageService {
	return &MessageService{
		messages:  messages,
		users:     users,
		encryptor: encryptor,
		pusher:    pusher,
		images:    images,
	}
}

type SendInput struct {
	SenderID   int64
	ReceiverID int64
	// Text is plaintext; it is encrypted before it reaches the store.
	Text *string
	// Image is either a data URL to upload or an already-hosted http(s) URL.
	Image *string
}

// Send encrypts, persists and, when the receiver is online, pushes a new
// message. The returned record carries ciphertext text, exactly as stored.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	if in.Text != nil && *in.Text == "" {
		in.Text = nil
	}
	if in.Image != nil && strings.TrimSpace(*in.Image) == "" {
		in.Image = nil
	}
	if in.Text == nil && in.Image == nil {
		return nil, domain.ErrEmptyMessage
	}
	if in.Text != nil && utf8.RuneCountInString(*in.Text) > MaxTextLength {
		return nil, fmt.Errorf("message text exceeds %d characters: %w", MaxTextLength, domain.ErrInvalidInput)
	}

	if _, err := s.users.GetByID(ctx, in.ReceiverID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("receiver: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get receiver: %w", err)
	}

	msg := &domain.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
	}

	if in.Image != nil {
		url, err := s.resolveImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		msg.ImageURL = &url
	}

	if in.Text != nil {
		encrypted, err := s.encryptor.Encrypt(*in.Text)
		if err != nil {
			return nil, fmt.Errorf("encrypt text: %w", err)
		}
		msg.Text = &encrypted
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	// Fire-and-forget: the store is the source of truth for offline receivers.
	if s.pusher.Push(msg.ReceiverID, domain.NewMessageEvent(msg)) {
		log.Debug().Int64("message_id", msg.ID).Int64("receiver_id", msg.ReceiverID).Msg("message pushed")
	}
	return msg, nil
}

func (s *MessageService) resolveImage(ctx context.Context, image string) (string, error) {
	image = strings.TrimSpace(image)
	switch {
	case strings.HasPrefix(image, "data:"):
		if s.images == nil {
			return "", fmt.Errorf("image uploads are not configured: %w", domain.ErrInvalidInput)
		}
		url, err := s.images.PutDataURL(ctx, image)
		if err != nil {
			return "", fmt.Errorf("upload image: %w", err)
		}
		return url, nil
	case strings.HasPrefix(image, "https://"), strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "/"):
		return image, nil
	default:
		return "", fmt.Errorf("image must be a data URL or an http(s) URL: %w", domain.ErrInvalidInput)
	}
}

// Conversation returns the history between selfID and otherID and marks
// otherID's messages as seen.
func (s *MessageService) Conversation(ctx context.Context, selfID, otherID int64) ([]*domain.Message, error) {
	msgs, err := s.messages.ListConversation(ctx, selfID, otherID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return msgs, nil
}

// MarkSeen flags one message addressed to receiverID as seen.
func (s *MessageService) MarkSeen(ctx context.Context, messageID, receiverID int64) error {
	return s.messages.MarkSeen(ctx, messageID, receiverID)
}

// Sidebar is the initial state a client needs: who it can talk to and how
// many unseen messages each counterpart has sent.
type Sidebar struct {
	Users        []*domain.User       `json:"users"`
	Counterparts []domain.Counterpart `json:"counterparts"`
	Unseen       map[int64]int        `json:"unseen"`
}

func (s *MessageService) Sidebar(ctx context.Context, selfID int64) (*Sidebar, error) {
	users, err := s.users.ListActiveExcept(ctx, selfID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	counterparts, err := s.messages.ListCounterparts(ctx, selfID)
	if err != nil {
		return nil, fmt.Errorf("list counterparts: %w", err)
	}

	res := &Sidebar{
		Users:        users,
		Counterparts: counterparts,
		Unseen:       make(map[int64]int),
	}
	if res.Users == nil {
		res.Users = []*domain.User{}
	}
	if res.Counterparts == nil {
		res.Counterparts = []domain.Counterpart{}
	}
	for _, c := range counterparts {
		if c.Unseen > 0 {
			res.Unseen[c.UserID] = c.Unseen
		}
	}
	return res, nil
}
