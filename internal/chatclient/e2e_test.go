package chatclient_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabbir9535/BlinkChat/internal/chatclient"
	"github.com/Sabbir9535/BlinkChat/internal/httpserver"
	"github.com/Sabbir9535/BlinkChat/internal/security"
	"github.com/Sabbir9535/BlinkChat/internal/service"
	"github.com/Sabbir9535/BlinkChat/internal/store/sqlite"
	"github.com/Sabbir9535/BlinkChat/internal/ws"
)

func startServer(t *testing.T, enc *security.Encryptor) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	users := sqlite.NewUserRepo(db)
	registry := ws.NewRegistry()
	t.Cleanup(registry.Close)

	router := httpserver.NewRouter(httpserver.Deps{
		Auth:      service.NewAuthService(users, security.NewTokenService("jwt", time.Hour), security.NewPasswordHasher(4)),
		Messages:  service.NewMessageService(sqlite.NewMessageRepo(db), users, enc, registry, nil),
		Encryptor: enc,
		Registry:  registry,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func signUp(t *testing.T, baseURL, name string) (*chatclient.API, int64) {
	t.Helper()
	api := chatclient.NewAPI(baseURL, nil)
	res, err := api.Register(context.Background(), name, "Password1!")
	require.NoError(t, err)
	return api, res.User.ID
}

func sendPlain(t *testing.T, api *chatclient.API, enc *security.Encryptor, to int64, plain string) {
	t.Helper()
	cipher, err := enc.Encrypt(plain)
	require.NoError(t, err)
	stored, err := api.Send(context.Background(), to, chatclient.SendRequest{Text: &cipher})
	require.NoError(t, err)
	require.NotNil(t, stored.Text)
	assert.NotEqual(t, plain, *stored.Text)
	assert.False(t, stored.Seen)
}

func TestDeliveryEndToEnd(t *testing.T) {
	ctx := context.Background()
	enc, err := security.NewEncryptor([]byte("e2e-shared"), nil)
	require.NoError(t, err)
	srv := startServer(t, enc)

	aliceAPI, aliceID := signUp(t, srv.URL, "alice")
	bobAPI, bobID := signUp(t, srv.URL, "bob")
	_, carolID := signUp(t, srv.URL, "carol")

	// B offline: the message waits in the store, counted as unseen.
	sendPlain(t, aliceAPI, enc, bobID, "hello")
	sidebar, err := bobAPI.Sidebar(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{aliceID: 1}, sidebar.Unseen)

	wsURL, err := chatclient.WSURL(srv.URL)
	require.NoError(t, err)
	channel, err := chatclient.Dial(ctx, wsURL, bobAPI.Token())
	require.NoError(t, err)
	defer channel.Close()

	require.Eventually(t, func() bool {
		ids, err := aliceAPI.Online(ctx)
		return err == nil && slices.Contains(ids, bobID)
	}, 2*time.Second, 10*time.Millisecond)

	session := chatclient.NewSession(bobID, bobAPI, channel, enc, nil)
	defer session.Close()
	require.NoError(t, session.Start(ctx))
	assert.Equal(t, map[int64]int{aliceID: 1}, session.Unseen())

	// B opens the conversation: decrypted history, sweep clears the counter.
	require.NoError(t, session.Select(ctx, aliceID))
	msgs := session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Plaintext)
	assert.Empty(t, session.Unseen())

	history, err := aliceAPI.Conversation(ctx, bobID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Seen)

	// B has A open: the push is appended and marked seen without a refetch.
	sendPlain(t, aliceAPI, enc, bobID, "second")
	require.Eventually(t, func() bool {
		return len(session.Messages()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "second", session.Messages()[1].Plaintext)
	assert.Empty(t, session.Unseen())
	require.Eventually(t, func() bool {
		sb, err := bobAPI.Sidebar(ctx)
		return err == nil && len(sb.Unseen) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// B has C open: A's message only bumps the counter.
	require.NoError(t, session.Select(ctx, carolID))
	sendPlain(t, aliceAPI, enc, bobID, "third")
	require.Eventually(t, func() bool {
		return session.Unseen()[aliceID] == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, session.Messages())
}
