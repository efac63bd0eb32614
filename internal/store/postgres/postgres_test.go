package postgres_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
	"github.com/Sabbir9535/BlinkChat/internal/store/postgres"
	"github.com/Sabbir9535/BlinkChat/internal/store/storetest"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping: TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) (domain.UserRepository, domain.MessageRepository) {
		db, err := postgres.Open(dsn)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		require.NoError(t, postgres.Migrate(db))
		_, err = db.Exec(`TRUNCATE messages, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return postgres.NewUserRepo(db), postgres.NewMessageRepo(db)
	})
}
