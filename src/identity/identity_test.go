package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevan/parley/src/convstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *convstore.DB {
	t.Helper()
	db, err := convstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestResolveSessionTokenWins(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id := Resolve(ctx, db, "secret-token-9876", testLogger())

	assert.Equal(t, "secret-token-9876", id.SessionToken)
	assert.Empty(t, id.VisitorID)
	assert.True(t, id.CanSync())
	assert.Equal(t, KindSession, id.Kind())

	// Only a short suffix is persisted as a hint.
	state, err := convstore.GetClientState(ctx, db.DB())
	require.NoError(t, err)
	assert.Equal(t, "...9876", state.APIKeyHint)
}

func TestResolveMintsDurableVisitorID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first := Resolve(ctx, db, "", testLogger())
	require.NotEmpty(t, first.VisitorID)
	assert.Equal(t, KindVisitor, first.Kind())
	assert.True(t, first.CanSync())

	// The same id comes back on later runs.
	second := Resolve(ctx, db, "", testLogger())
	assert.Equal(t, first.VisitorID, second.VisitorID)
}

func TestIdentityKindNone(t *testing.T) {
	id := &Identity{}
	assert.False(t, id.CanSync())
	assert.Equal(t, KindNone, id.Kind())
}
