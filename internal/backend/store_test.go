package backend

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemory(clockwork.NewFakeClock()).Store()

	_, err := store.Get(context.Background(), "users", "nobody")
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestMemoryStore_ServerTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory(clockwork.NewFakeClockAt(at)).Store()
	ctx := context.Background()

	err := store.Set(ctx, "users", "u1", Document{
		"full_name": "Ada",
		"createdAt": ServerTimestamp,
	}, false)
	require.NoError(t, err)

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc["full_name"])

	stamp, ok := doc["createdAt"].(string)
	require.True(t, ok, "timestamp should read back as RFC 3339 text")
	parsed, err := time.Parse(time.RFC3339Nano, stamp)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}

func TestMemoryStore_MergeAndReplace(t *testing.T) {
	store := NewMemory(clockwork.NewFakeClock()).Store()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users", "u1", Document{"a": "1", "b": "2"}, false))
	require.NoError(t, store.Set(ctx, "users", "u1", Document{"b": "3", "c": "4"}, true))

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, Document{"a": "1", "b": "3", "c": "4"}, doc)

	require.NoError(t, store.Set(ctx, "users", "u1", Document{"z": "9"}, false))
	doc, err = store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, Document{"z": "9"}, doc)
}

func TestMemoryStore_CallerCannotMutateStoredDocument(t *testing.T) {
	store := NewMemory(clockwork.NewFakeClock()).Store()
	ctx := context.Background()

	in := Document{"k": "v"}
	require.NoError(t, store.Set(ctx, "users", "u1", in, false))
	in["k"] = "changed"

	out, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	out["k"] = "also changed"

	again, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "v", again["k"])
}

func TestMemory_Reset(t *testing.T) {
	mem := NewMemory(clockwork.NewFakeClock())
	ctx := context.Background()

	require.NoError(t, mem.Store().Set(ctx, "users", "u1", Document{"k": "v"}, false))
	require.NoError(t, mem.Accounts().Create(ctx, &Account{UID: "u1", Email: "a@b.edu"}))
	mem.Reset()

	_, err := mem.Store().Get(ctx, "users", "u1")
	assert.Equal(t, CodeNotFound, ErrorCode(err))
	exists, err := mem.Accounts().EmailExists(ctx, "a@b.edu")
	require.NoError(t, err)
	assert.False(t, exists)
}
