package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
	"github.com/Sabbir9535/BlinkChat/internal/security"
	"github.com/Sabbir9535/BlinkChat/internal/service"
	"github.com/Sabbir9535/BlinkChat/internal/store/sqlite"
)

type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Push(userID int64, event any) bool {
	args := m.Called(userID, event)
	return args.Bool(0)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) PutDataURL(ctx context.Context, dataURL string) (string, error) {
	args := m.Called(ctx, dataURL)
	return args.String(0), args.Error(1)
}

type fixture struct {
	auth      *service.AuthService
	msgs      *service.MessageService
	users     domain.UserRepository
	encryptor *security.Encryptor
	pusher    *MockPusher
	images    *MockImageStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	enc, err := security.NewEncryptor([]byte("test-secret"), nil)
	require.NoError(t, err)

	users := sqlite.NewUserRepo(db)
	pusher := new(MockPusher)
	images := new(MockImageStore)
	return &fixture{
		auth:      service.NewAuthService(users, security.NewTokenService("jwt", time.Hour), security.NewPasswordHasher(4)),
		msgs:      service.NewMessageService(sqlite.NewMessageRepo(db), users, enc, pusher, images),
		users:     users,
		encryptor: enc,
		pusher:    pusher,
		images:    images,
	}
}

func (f *fixture) register(t *testing.T, name string) *domain.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), service.RegisterInput{Username: name, Password: "Password1!"})
	require.NoError(t, err)
	return res.User
}

func text(s string) *string { return &s }

func isNewMessageFor(id int64) any {
	return mock.MatchedBy(func(ev domain.Event) bool {
		return ev.Type == domain.EventNewMessage && ev.Message != nil && ev.Message.ID == id
	})
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		res, err := f.auth.Register(ctx, service.RegisterInput{Username: "newuser", Password: "Password1!"})
		require.NoError(t, err)
		assert.Equal(t, "newuser", res.User.Username)
		assert.Equal(t, "newuser", res.User.FullName)
		assert.NotEmpty(t, res.AccessToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, 5*time.Second)

		user, err := f.auth.Authenticate(ctx, res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, user.ID)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		_, err := f.auth.Register(ctx, service.RegisterInput{Username: "newuser", Password: "Password1!"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("WeakPassword", func(t *testing.T) {
		_, err := f.auth.Register(ctx, service.RegisterInput{Username: "weak", Password: "123"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Login", func(t *testing.T) {
		res, err := f.auth.Login(ctx, service.LoginInput{Username: "newuser", Password: "Password1!"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)

		_, err = f.auth.Login(ctx, service.LoginInput{Username: "newuser", Password: "nope-nope"})
		assert.ErrorIs(t, err, service.ErrBadCredentials)

		_, err = f.auth.Login(ctx, service.LoginInput{Username: "ghost", Password: "Password1!"})
		assert.ErrorIs(t, err, service.ErrBadCredentials)
	})

	t.Run("BadToken", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "garbage")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("TokenForOtherAccount", func(t *testing.T) {
		user, err := f.users.GetByUsername(ctx, "newuser")
		require.NoError(t, err)
		stale := *user
		stale.ID = user.ID + 100
		tok, _, err := security.NewTokenService("jwt", time.Hour).Issue(&stale)
		require.NoError(t, err)

		_, err = f.auth.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestSendToOfflineReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.register(t, "a"), f.register(t, "b")

	f.pusher.On("Push", b.ID, mock.Anything).Return(false).Once()

	msg, err := f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: b.ID, Text: text("hello")})
	require.NoError(t, err)
	require.NotNil(t, msg.Text)
	assert.NotEqual(t, "hello", *msg.Text)
	assert.False(t, msg.Seen)
	f.pusher.AssertExpectations(t)

	side, err := f.msgs.Sidebar(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{a.ID: 1}, side.Unseen)
	require.Len(t, side.Users, 1)
	assert.Equal(t, a.ID, side.Users[0].ID)

	// B opens the conversation later.
	conv, err := f.msgs.Conversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	plain, err := f.encryptor.Decrypt(*conv[0].Text)
	require.NoError(t, err)
	assert.Equal(t, "hello", plain)
	assert.True(t, conv[0].Seen)

	side, err = f.msgs.Sidebar(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, side.Unseen)
}

func TestSendPushesAfterPersisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.register(t, "a"), f.register(t, "b")

	var pushed *domain.Message
	f.pusher.On("Push", b.ID, mock.Anything).Return(true).Run(func(args mock.Arguments) {
		pushed = args.Get(1).(domain.Event).Message
		// The record must already be committed when the push fires.
		conv, err := f.msgs.Conversation(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.Len(t, conv, 1)
		assert.Equal(t, pushed.ID, conv[0].ID)
	}).Once()

	msg, err := f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: b.ID, Text: text("second")})
	require.NoError(t, err)
	f.pusher.AssertCalled(t, "Push", b.ID, isNewMessageFor(msg.ID))
	require.NotNil(t, pushed)
	assert.Equal(t, *msg.Text, *pushed.Text, "push carries the stored ciphertext")
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a")

	_, err := f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: a.ID, Text: text("")})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: 9999, Text: text("hi")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: a.ID, Text: text(strings.Repeat("x", service.MaxTextLength+1))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: a.ID, Image: text("ftp://nope")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
}

func TestSendImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.register(t, "a"), f.register(t, "b")
	f.pusher.On("Push", b.ID, mock.Anything).Return(false)

	dataURL := "data:image/png;base64,iVBORw0KGgo="
	f.images.On("PutDataURL", mock.Anything, dataURL).Return("https://cdn.test/a.png", nil).Once()

	msg, err := f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: b.ID, Image: &dataURL})
	require.NoError(t, err)
	assert.Nil(t, msg.Text)
	require.NotNil(t, msg.ImageURL)
	assert.Equal(t, "https://cdn.test/a.png", *msg.ImageURL)

	hosted := "https://cdn.test/already.png"
	msg, err = f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: b.ID, Image: &hosted, Text: text("look")})
	require.NoError(t, err)
	assert.Equal(t, hosted, *msg.ImageURL, "image references are never encrypted")
	assert.NotEqual(t, "look", *msg.Text)

	f.images.On("PutDataURL", mock.Anything, "data:broken").Return("", errors.New("bucket down")).Once()
	broken := "data:broken"
	_, err = f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: b.ID, Image: &broken})
	assert.Error(t, err)

	f.images.AssertExpectations(t)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.register(t, "a"), f.register(t, "b")
	f.pusher.On("Push", mock.Anything, mock.Anything).Return(true)

	msg, err := f.msgs.Send(ctx, service.SendInput{SenderID: a.ID, ReceiverID: b.ID, Text: text("yo")})
	require.NoError(t, err)

	require.NoError(t, f.msgs.MarkSeen(ctx, msg.ID, b.ID))
	require.NoError(t, f.msgs.MarkSeen(ctx, msg.ID, b.ID))

	side, err := f.msgs.Sidebar(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, side.Unseen)
	assert.Equal(t, []domain.Counterpart{{UserID: a.ID, Unseen: 0}}, side.Counterparts)
}
