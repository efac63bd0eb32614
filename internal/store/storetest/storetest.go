// Package storetest holds behaviour checks shared by every conversation
// store backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

// Factory returns fresh, empty repositories for one test.
type Factory func(t *testing.T) (domain.UserRepository, domain.MessageRepository)

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, users domain.UserRepository, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, FullName: name, HashedPassword: "x"}
	require.NoError(t, users.Create(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func mustSend(t *testing.T, msgs domain.MessageRepository, from, to int64, text string) *domain.Message {
	t.Helper()
	m := &domain.Message{SenderID: from, ReceiverID: to, Text: strPtr(text)}
	require.NoError(t, msgs.Create(context.Background(), m))
	return m
}

func unseenFrom(t *testing.T, msgs domain.MessageRepository, self, other int64) int {
	t.Helper()
	cps, err := msgs.ListCounterparts(context.Background(), self)
	require.NoError(t, err)
	for _, c := range cps {
		if c.UserID == other {
			return c.Unseen
		}
	}
	return 0
}

// Run exercises the full MessageRepository and UserRepository contract.
func Run(t *testing.T, newRepos Factory) {
	t.Run("UserCreateAndLookup", func(t *testing.T) {
		users, _ := newRepos(t)
		ctx := context.Background()

		alice := mustUser(t, users, "alice")
		assert.True(t, alice.IsActive)

		got, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		got, err = users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = users.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = users.Create(ctx, &domain.User{Username: "alice", HashedPassword: "x"})
		assert.ErrorIs(t, err, domain.ErrConflict)

		bob := mustUser(t, users, "bob")
		others, err := users.ListActiveExcept(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, others, 1)
		assert.Equal(t, bob.ID, others[0].ID)
	})

	t.Run("CreateRejectsEmptyMessage", func(t *testing.T) {
		users, msgs := newRepos(t)
		a, b := mustUser(t, users, "a"), mustUser(t, users, "b")

		err := msgs.Create(context.Background(), &domain.Message{SenderID: a.ID, ReceiverID: b.ID})
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)

		img := &domain.Message{SenderID: a.ID, ReceiverID: b.ID, ImageURL: strPtr("https://cdn/x.png")}
		require.NoError(t, msgs.Create(context.Background(), img))
		assert.NotZero(t, img.ID)
		assert.False(t, img.Seen)
		assert.False(t, img.CreatedAt.IsZero())
	})

	t.Run("ListConversationOrderAndSweep", func(t *testing.T) {
		users, msgs := newRepos(t)
		ctx := context.Background()
		a, b, c := mustUser(t, users, "a"), mustUser(t, users, "b"), mustUser(t, users, "c")

		m1 := mustSend(t, msgs, a.ID, b.ID, "one")
		m2 := mustSend(t, msgs, b.ID, a.ID, "two")
		m3 := mustSend(t, msgs, a.ID, b.ID, "three")
		mustSend(t, msgs, c.ID, b.ID, "unrelated")

		assert.Equal(t, 2, unseenFrom(t, msgs, b.ID, a.ID))
		assert.Equal(t, 1, unseenFrom(t, msgs, b.ID, c.ID))

		got, err := msgs.ListConversation(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{m1.ID, m2.ID, m3.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
		assert.True(t, got[0].Seen)
		assert.False(t, got[1].Seen, "own outgoing message is not swept")
		assert.True(t, got[2].Seen)

		assert.Equal(t, 0, unseenFrom(t, msgs, b.ID, a.ID))
		assert.Equal(t, 1, unseenFrom(t, msgs, b.ID, c.ID))
		assert.Equal(t, 1, unseenFrom(t, msgs, a.ID, b.ID), "the reader's own messages stay unseen for the other side")

		// A message committed after the sweep stays unseen.
		mustSend(t, msgs, a.ID, b.ID, "four")
		assert.Equal(t, 1, unseenFrom(t, msgs, b.ID, a.ID))

		again, err := msgs.ListConversation(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Len(t, again, 4)
		assert.Equal(t, 0, unseenFrom(t, msgs, b.ID, a.ID))
	})

	t.Run("ListConversationEmpty", func(t *testing.T) {
		users, msgs := newRepos(t)
		a, b := mustUser(t, users, "a"), mustUser(t, users, "b")

		got, err := msgs.ListConversation(context.Background(), a.ID, b.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ListCounterpartsMostRecentFirst", func(t *testing.T) {
		users, msgs := newRepos(t)
		self := mustUser(t, users, "self")
		x, y := mustUser(t, users, "x"), mustUser(t, users, "y")

		mustSend(t, msgs, x.ID, self.ID, "hi")
		mustSend(t, msgs, self.ID, y.ID, "hello")

		cps, err := msgs.ListCounterparts(context.Background(), self.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.Counterpart{
			{UserID: y.ID, Unseen: 0},
			{UserID: x.ID, Unseen: 1},
		}, cps)
	})

	t.Run("MarkSeenIdempotent", func(t *testing.T) {
		users, msgs := newRepos(t)
		ctx := context.Background()
		a, b := mustUser(t, users, "a"), mustUser(t, users, "b")
		m := mustSend(t, msgs, a.ID, b.ID, "hey")

		require.NoError(t, msgs.MarkSeen(ctx, m.ID, a.ID))
		assert.Equal(t, 1, unseenFrom(t, msgs, b.ID, a.ID), "only the receiver can mark a message seen")

		require.NoError(t, msgs.MarkSeen(ctx, m.ID, b.ID))
		require.NoError(t, msgs.MarkSeen(ctx, m.ID, b.ID))
		require.NoError(t, msgs.MarkSeen(ctx, 999999, b.ID))
		assert.Equal(t, 0, unseenFrom(t, msgs, b.ID, a.ID))
	})

	t.Run("ConcurrentInsertsAndSweeps", func(t *testing.T) {
		users, msgs := newRepos(t)
		ctx := context.Background()
		a, b := mustUser(t, users, "a"), mustUser(t, users, "b")

		const n = 20
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				m := &domain.Message{SenderID: a.ID, ReceiverID: b.ID, Text: strPtr(fmt.Sprintf("m%d", i))}
				assert.NoError(t, msgs.Create(ctx, m))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < n/2; i++ {
				_, err := msgs.ListConversation(ctx, b.ID, a.ID)
				assert.NoError(t, err)
			}
		}()
		wg.Wait()

		got, err := msgs.ListConversation(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Len(t, got, n)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1].ID, got[i].ID, "single sender order is preserved")
		}
		assert.Equal(t, 0, unseenFrom(t, msgs, b.ID, a.ID))
	})
}
