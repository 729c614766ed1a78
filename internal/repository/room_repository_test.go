package repository

import (
	"context"
	"testing"
	"time"

	"chat-relay/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepo(store.NewMemoryStore(), PolicyLenient)

	room, err := repo.CreateRoom(ctx, "General", "Town square")
	require.NoError(t, err)
	require.NotNil(t, room)

	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "General", room.Name)
	assert.Equal(t, "Town square", room.Description)
	assert.Empty(t, room.ActiveUsers)
	assert.False(t, room.CreatedAt.IsZero())
	assert.Equal(t, room.CreatedAt, room.LastActivity)

	other, err := repo.CreateRoom(ctx, "General", "Town square")
	require.NoError(t, err)
	assert.NotEqual(t, room.ID, other.ID, "ids must be freshly generated")
}

func TestGetRoom(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepo(store.NewMemoryStore(), PolicyLenient)

	created, err := repo.CreateRoom(ctx, "General", "Town square")
	require.NoError(t, err)

	got, err := repo.GetRoom(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Description, got.Description)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.Empty(t, got.ActiveUsers)

	// Absence is a normal outcome, not an error.
	missing, err := repo.GetRoom(ctx, "never-created")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetRoom_EmptyMetadataHashIsAbsence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewRoomRepo(st, PolicyLenient)

	// A metadata hash with no fields, as left behind when the room is
	// deleted between the existence check and the read.
	require.NoError(t, st.HashSetAll(ctx, store.RoomKey("ghost"), map[string]string{}))

	room, err := repo.GetRoom(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, room)
}

func TestListRoomIDs_ExcludesAuxiliaryKeys(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewRoomRepo(st, PolicyLenient)

	r1, err := repo.CreateRoom(ctx, "One", "")
	require.NoError(t, err)
	r2, err := repo.CreateRoom(ctx, "Two", "")
	require.NoError(t, err)

	// Populate log and member-set keys that share the room: namespace.
	require.NoError(t, repo.AddUser(ctx, r1.ID, "alice"))
	require.NoError(t, st.ListPush(ctx, store.RoomMessagesKey(r2.ID), []byte("{}")))

	ids, err := repo.ListRoomIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, ids)
}

func TestDeleteRoom_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewRoomRepo(st, PolicyLenient)

	keep, err := repo.CreateRoom(ctx, "Keep", "")
	require.NoError(t, err)
	doomed, err := repo.CreateRoom(ctx, "Doomed", "")
	require.NoError(t, err)
	require.NoError(t, repo.AddUser(ctx, doomed.ID, "alice"))
	require.NoError(t, st.ListPush(ctx, store.RoomMessagesKey(doomed.ID), []byte("{}")))

	require.NoError(t, repo.DeleteRoom(ctx, doomed.ID))

	gone, err := repo.GetRoom(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	count, err := repo.GetUserCount(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Second delete and deletes of never-created ids are no-ops.
	require.NoError(t, repo.DeleteRoom(ctx, doomed.ID))
	require.NoError(t, repo.DeleteRoom(ctx, "never-created"))

	still, err := repo.GetRoom(ctx, keep.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, "Keep", still.Name)
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepo(store.NewMemoryStore(), PolicyLenient)

	room, err := repo.CreateRoom(ctx, "General", "")
	require.NoError(t, err)

	require.NoError(t, repo.AddUser(ctx, room.ID, "alice"))
	require.NoError(t, repo.AddUser(ctx, room.ID, "bob"))

	count, err := repo.GetUserCount(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	users, err := repo.GetUsers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	require.NoError(t, repo.RemoveUser(ctx, room.ID, "alice"))
	users, err = repo.GetUsers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, users)

	// Removing a non-member is a no-op.
	require.NoError(t, repo.RemoveUser(ctx, room.ID, "ghost"))
	count, err = repo.GetUserCount(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMembershipTouchesLastActivity(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewRoomRepo(st, PolicyLenient)

	room, err := repo.CreateRoom(ctx, "General", "")
	require.NoError(t, err)

	// Backdate last_activity so the touch is observable despite
	// second-granularity timestamps.
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, st.HashSetAll(ctx, store.RoomKey(room.ID), map[string]string{
		"last_activity": past.Format(time.RFC3339),
	}))

	require.NoError(t, repo.AddUser(ctx, room.ID, "alice"))

	got, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LastActivity.After(past))
}

func TestMissingRoomPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("strict fails fast", func(t *testing.T) {
		repo := NewRoomRepo(store.NewMemoryStore(), PolicyStrict)
		err := repo.AddUser(ctx, "missing", "alice")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		err = repo.RemoveUser(ctx, "missing", "alice")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("lenient silently proceeds", func(t *testing.T) {
		repo := NewRoomRepo(store.NewMemoryStore(), PolicyLenient)
		require.NoError(t, repo.AddUser(ctx, "missing", "alice"))
		require.NoError(t, repo.RemoveUser(ctx, "missing", "alice"))
	})
}
