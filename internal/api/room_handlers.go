package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"chat-relay/internal/chat"
	"chat-relay/internal/repository"
	"chat-relay/internal/types"
)

const storeTimeout = 5 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CreateRoomHandler POST /api/chat/rooms
func CreateRoomHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.CreateRoomRequest

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			log.Printf("[ROOMS] Decode error: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		payload.Name = strings.TrimSpace(payload.Name)
		if payload.Name == "" {
			http.Error(w, "Room name is required", http.StatusBadRequest)
			return
		}

		room, err := svc.CreateRoom(ctx, payload.Name, payload.Description)
		if err != nil {
			log.Printf("[ROOMS] Create failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Printf("[ROOMS] Created room %s (%s)", room.ID, room.Name)
		writeJSON(w, http.StatusCreated, room)
	}
}

// ListRoomsHandler GET /api/chat/rooms
func ListRoomsHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		ids, err := svc.ListRoomIDs(ctx)
		if err != nil {
			log.Printf("[ROOMS] List failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

// GetRoomHandler GET /api/chat/rooms/{roomId}
func GetRoomHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("roomId")

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		room, err := svc.GetRoom(ctx, roomID)
		if err != nil {
			log.Printf("[ROOMS] Get %s failed: %v", roomID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if room == nil {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// DeleteRoomHandler DELETE /api/chat/rooms/{roomId}
//
// Deletion is idempotent: a missing room still answers 200.
func DeleteRoomHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("roomId")

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		if err := svc.DeleteRoom(ctx, roomID); err != nil {
			log.Printf("[ROOMS] Delete %s failed: %v", roomID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		log.Printf("[ROOMS] Deleted room %s", roomID)
		w.WriteHeader(http.StatusOK)
	}
}

// HistoryHandler GET /api/chat/rooms/{roomId}/messages
func HistoryHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("roomId")

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		messages, err := svc.History(ctx, roomID)
		if err != nil {
			log.Printf("[ROOMS] History of %s failed: %v", roomID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

// PostMessageHandler POST /api/chat/rooms/{roomId}/messages
//
// The room id always comes from the path, never from the body.
func PostMessageHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("roomId")
		var payload types.PostMessageRequest

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			log.Printf("[ROOMS] Decode error: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(payload.Sender) == "" || strings.TrimSpace(payload.Content) == "" {
			http.Error(w, "Sender and content are required", http.StatusBadRequest)
			return
		}

		message, err := svc.SendChat(ctx, roomID, payload.Sender, payload.Content)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				http.Error(w, "Room not found", http.StatusNotFound)
				return
			}
			log.Printf("[ROOMS] Post to %s failed: %v", roomID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, message)
	}
}

// RoomUsersHandler GET /api/chat/rooms/{roomId}/users
func RoomUsersHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("roomId")

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		users, err := svc.RoomUsers(ctx, roomID)
		if err != nil {
			log.Printf("[ROOMS] Users of %s failed: %v", roomID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// RoomUserCountHandler GET /api/chat/rooms/{roomId}/users/count
func RoomUserCountHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("roomId")

		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		count, err := svc.RoomUserCount(ctx, roomID)
		if err != nil {
			log.Printf("[ROOMS] User count of %s failed: %v", roomID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, types.UserCountResponse{Count: count})
	}
}
