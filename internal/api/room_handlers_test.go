package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-relay/internal/chat"
	"chat-relay/internal/models"
	"chat-relay/internal/repository"
	"chat-relay/internal/store"
	"chat-relay/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, policy repository.MissingRoomPolicy) (*http.ServeMux, *chat.Service) {
	t.Helper()
	st := store.NewMemoryStore()
	rooms := repository.NewRoomRepo(st, policy)
	messages := repository.NewMessageRepo(st, repository.DefaultHistoryLimit)
	h := chat.NewHub()
	go h.Run()
	svc := chat.NewService(rooms, messages, h, st, "test-server", policy)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/rooms", CreateRoomHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms", ListRoomsHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}", GetRoomHandler(svc))
	mux.HandleFunc("DELETE /api/chat/rooms/{roomId}", DeleteRoomHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}/messages", HistoryHandler(svc))
	mux.HandleFunc("POST /api/chat/rooms/{roomId}/messages", PostMessageHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}/users", RoomUsersHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}/users/count", RoomUserCountHandler(svc))
	return mux, svc
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCreateRoom(t *testing.T) {
	mux, _ := newTestRouter(t, repository.PolicyLenient)

	rec := doJSON(t, mux, http.MethodPost, "/api/chat/rooms", types.CreateRoomRequest{Name: "General", Description: "main hangout"})
	require.Equal(t, http.StatusCreated, rec.Code)

	room := decodeBody[models.Room](t, rec)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "General", room.Name)
	assert.Equal(t, "main hangout", room.Description)
	assert.False(t, room.CreatedAt.IsZero())
}

func TestCreateRoom_EmptyNameRejected(t *testing.T) {
	mux, _ := newTestRouter(t, repository.PolicyLenient)

	rec := doJSON(t, mux, http.MethodPost, "/api/chat/rooms", types.CreateRoomRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRoom_BadBodyRejected(t *testing.T) {
	mux, _ := newTestRouter(t, repository.PolicyLenient)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/rooms", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoom(t *testing.T) {
	mux, svc := newTestRouter(t, repository.PolicyLenient)
	room, err := svc.CreateRoom(context.Background(), "General", "")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodGet, "/api/chat/rooms/"+room.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[models.Room](t, rec)
	assert.Equal(t, room.ID, got.ID)

	rec = doJSON(t, mux, http.MethodGet, "/api/chat/rooms/no-such-room", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRooms(t *testing.T) {
	mux, svc := newTestRouter(t, repository.PolicyLenient)
	a, err := svc.CreateRoom(context.Background(), "A", "")
	require.NoError(t, err)
	b, err := svc.CreateRoom(context.Background(), "B", "")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodGet, "/api/chat/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ids := decodeBody[[]string](t, rec)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func TestDeleteRoom_Idempotent(t *testing.T) {
	mux, svc := newTestRouter(t, repository.PolicyLenient)
	room, err := svc.CreateRoom(context.Background(), "General", "")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodDelete, "/api/chat/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second delete of the same room is still a success.
	rec = doJSON(t, mux, http.MethodDelete, "/api/chat/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/chat/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageAndHistory(t *testing.T) {
	mux, svc := newTestRouter(t, repository.PolicyLenient)
	room, err := svc.CreateRoom(context.Background(), "General", "")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodPost, "/api/chat/rooms/"+room.ID+"/messages",
		types.PostMessageRequest{Sender: "alice", Content: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sender_server_id")
	posted := decodeBody[models.Message](t, rec)
	assert.NotEmpty(t, posted.ID)
	assert.Equal(t, room.ID, posted.RoomID)
	assert.Equal(t, models.TypeChat, posted.Type)

	rec = doJSON(t, mux, http.MethodGet, "/api/chat/rooms/"+room.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sender_server_id")
	history := decodeBody[[]models.Message](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "alice", history[0].Sender)
}

func TestPostMessage_MissingFieldsRejected(t *testing.T) {
	mux, svc := newTestRouter(t, repository.PolicyLenient)
	room, err := svc.CreateRoom(context.Background(), "General", "")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodPost, "/api/chat/rooms/"+room.ID+"/messages",
		types.PostMessageRequest{Sender: "", Content: "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage_StrictUnknownRoom(t *testing.T) {
	mux, _ := newTestRouter(t, repository.PolicyStrict)

	rec := doJSON(t, mux, http.MethodPost, "/api/chat/rooms/no-such-room/messages",
		types.PostMessageRequest{Sender: "alice", Content: "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomUsersAndCount(t *testing.T) {
	mux, svc := newTestRouter(t, repository.PolicyLenient)
	room, err := svc.CreateRoom(context.Background(), "General", "")
	require.NoError(t, err)
	require.NoError(t, svc.JoinRoom(context.Background(), room.ID, "alice"))
	require.NoError(t, svc.JoinRoom(context.Background(), room.ID, "bob"))

	rec := doJSON(t, mux, http.MethodGet, "/api/chat/rooms/"+room.ID+"/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[[]string](t, rec)
	assert.Equal(t, []string{"alice", "bob"}, users)

	rec = doJSON(t, mux, http.MethodGet, "/api/chat/rooms/"+room.ID+"/users/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count := decodeBody[types.UserCountResponse](t, rec)
	assert.Equal(t, int64(2), count.Count)
}
