package chatclient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

const markSeenTimeout = 10 * time.Second

var ErrNoConversation = errors.New("no conversation selected")

// Backend is the subset of the REST surface a Session drives.
type Backend interface {
	Sidebar(ctx context.Context) (*Sidebar, error)
	Conversation(ctx context.Context, otherID int64) ([]*domain.Message, error)
	Send(ctx context.Context, otherID int64, req SendRequest) (*domain.Message, error)
	MarkSeen(ctx context.Context, messageID int64) error
}

// Subscriber delivers pushed events until the returned function is called.
type Subscriber interface {
	Subscribe(fn func(domain.Event)) (unsubscribe func())
}

type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(enc string) (string, error)
}

// Notifier hears about everything that changes outside a direct call.
// Methods are invoked without the session lock held.
type Notifier interface {
	MessageReceived(m Message, inSelected bool)
	OnlineChanged(userIDs []int64)
	Error(err error)
}

// Message is a stored message with its text decrypted. Undecryptable is set
// when the message had text that could not be opened, which is distinct
// from a message that carries only an image.
type Message struct {
	domain.Message
	Plaintext     string
	Undecryptable bool
}

// Session is one signed-in user's view: at most one selected counterpart,
// its messages in order, and unseen counts for everyone else.
type Session struct {
	selfID  int64
	backend Backend
	events  Subscriber
	cipher  Cipher
	notify  Notifier

	mu          sync.Mutex
	selected    int64
	loading     bool
	pending     []Message
	messages    []Message
	unseen      map[int64]int
	users       []*domain.User
	online      []int64
	generation  uint64
	unsubscribe func()
	closed      bool

	inflight sync.WaitGroup
}

type nopNotifier struct{}

func (nopNotifier) MessageReceived(Message, bool) {}
func (nopNotifier) OnlineChanged([]int64)        {}
func (nopNotifier) Error(error)                  {}

func NewSession(selfID int64, backend Backend, events Subscriber, cipher Cipher, notify Notifier) *Session {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Session{
		selfID:  selfID,
		backend: backend,
		events:  events,
		cipher:  cipher,
		notify:  notify,
		unseen:  make(map[int64]int),
	}
}

// Start loads the sidebar and subscribes with nothing selected.
func (s *Session) Start(ctx context.Context) error {
	sidebar, err := s.backend.Sidebar(ctx)
	if err != nil {
		return fmt.Errorf("load sidebar: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.users = sidebar.Users
	s.unseen = make(map[int64]int, len(sidebar.Unseen))
	for id, n := range sidebar.Unseen {
		if n > 0 {
			s.unseen[id] = n
		}
	}
	s.subscribeLocked()
	return nil
}

// subscribeLocked opens the session's single subscription. It stays open
// until Close; selection changes are applied when each event is handled.
func (s *Session) subscribeLocked() {
	if s.unsubscribe != nil || s.closed {
		return
	}
	s.unsubscribe = s.events.Subscribe(s.handle)
}

// selectLocked switches the selection and starts a new generation. The
// generation only tells a finishing fetch whether it is still current.
func (s *Session) selectLocked(otherID int64) uint64 {
	s.generation++
	s.selected = otherID
	s.messages = nil
	s.pending = nil
	s.loading = otherID != 0
	return s.generation
}

// Select replaces the displayed sequence with a fresh fetch of the
// conversation with otherID. On a failed fetch the session falls back to
// nothing selected.
func (s *Session) Select(ctx context.Context, otherID int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.subscribeLocked()
	gen := s.selectLocked(otherID)
	s.mu.Unlock()

	msgs, err := s.backend.Conversation(ctx, otherID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return err
	}
	if err != nil {
		s.selectLocked(0)
		return fmt.Errorf("load conversation: %w", err)
	}

	fetched := make([]Message, 0, len(msgs)+len(s.pending))
	for _, m := range msgs {
		fetched = append(fetched, s.open(m))
	}
	for _, p := range s.pending {
		if !containsID(fetched, p.ID) {
			fetched = append(fetched, p)
		}
	}
	s.messages = fetched
	s.pending = nil
	s.loading = false
	delete(s.unseen, otherID)
	return nil
}

// Deselect returns to nothing selected.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.selectLocked(0)
}

// Send encrypts text, posts it to the selected counterpart and appends the
// decrypted echo.
func (s *Session) Send(ctx context.Context, text string, image *string) (Message, error) {
	s.mu.Lock()
	otherID, gen := s.selected, s.generation
	s.mu.Unlock()
	if otherID == 0 {
		return Message{}, ErrNoConversation
	}

	var req SendRequest
	if text != "" {
		enc, err := s.cipher.Encrypt(text)
		if err != nil {
			return Message{}, fmt.Errorf("encrypt: %w", err)
		}
		req.Text = &enc
	}
	req.Image = image

	stored, err := s.backend.Send(ctx, otherID, req)
	if err != nil {
		return Message{}, err
	}
	m := s.open(stored)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen && !s.closed {
		if s.loading {
			s.pending = append(s.pending, m)
		} else if !containsID(s.messages, m.ID) {
			s.messages = append(s.messages, m)
		}
	}
	return m, nil
}

// handle reconciles a pushed event against the selection current at the
// time it is handled.
func (s *Session) handle(ev domain.Event) {
	switch ev.Type {
	case domain.EventOnlineUsers:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.online = slices.Clone(ev.UserIDs)
		s.mu.Unlock()
		s.notify.OnlineChanged(slices.Clone(ev.UserIDs))

	case domain.EventNewMessage:
		if ev.Message == nil {
			return
		}
		m := s.open(ev.Message)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		inSelected := s.selected != 0 && m.SenderID == s.selected && m.ReceiverID == s.selfID
		if inSelected {
			m.Seen = true
			switch {
			case s.loading:
				s.pending = append(s.pending, m)
			case !containsID(s.messages, m.ID):
				s.messages = append(s.messages, m)
			}
			s.inflight.Add(1)
		} else if m.ReceiverID == s.selfID {
			s.unseen[m.SenderID]++
		}
		s.mu.Unlock()

		if inSelected {
			go s.markSeen(m.ID)
		}
		s.notify.MessageReceived(m, inSelected)
	}
}

func (s *Session) markSeen(messageID int64) {
	defer s.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), markSeenTimeout)
	defer cancel()
	if err := s.backend.MarkSeen(ctx, messageID); err != nil {
		s.notify.Error(fmt.Errorf("mark message %d seen: %w", messageID, err))
	}
}

func (s *Session) open(m *domain.Message) Message {
	v := Message{Message: *m}
	if m.Text != nil {
		plain, err := s.cipher.Decrypt(*m.Text)
		if err != nil {
			v.Undecryptable = true
		} else {
			v.Plaintext = plain
		}
	}
	return v
}

// Close drops the subscription and waits for outstanding mark-seen requests.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()
	s.inflight.Wait()
}

func (s *Session) Selected() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != 0
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

func (s *Session) Unseen() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.unseen))
	for k, v := range s.unseen {
		out[k] = v
	}
	return out
}

func (s *Session) Users() []*domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users)
}

func (s *Session) Online() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.online)
}

func containsID(msgs []Message, id int64) bool {
	return slices.ContainsFunc(msgs, func(m Message) bool { return m.ID == id })
}
