package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/api"
	"chat-relay/internal/chat"
	"chat-relay/internal/config"
	"chat-relay/internal/repository"
	"chat-relay/internal/store"
	"chat-relay/internal/tasks"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 512,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func serveWS(h *chat.Hub, svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Upgrade error: %v", err)
			return
		}

		client := chat.NewClient(h, conn, svc)

		go client.WritePump()
		go client.ReadPump()
	}
}

func main() {

	cfg := config.Load()

	client, err := store.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
		return
	}
	st := store.NewRedisStore(client)
	defer st.Close()

	roomRepo := repository.NewRoomRepo(st, cfg.MissingRoomPolicy)
	messageRepo := repository.NewMessageRepo(st, cfg.HistoryLimit)

	h := chat.NewHub()
	go h.Run()

	svc := chat.NewService(roomRepo, messageRepo, h, st, cfg.ServerID, cfg.MissingRoomPolicy)

	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()
	go func() {
		if err := svc.Run(relayCtx); err != nil {
			log.Printf("[RELAY] Relay loop stopped: %v", err)
		}
	}()

	monitor := tasks.NewHealthMonitor(st)
	monitor.Start()
	defer monitor.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", serveWS(h, svc))
	mux.HandleFunc("GET /healthz", api.HealthHandler(monitor))

	mux.HandleFunc("POST /api/chat/rooms", api.CreateRoomHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms", api.ListRoomsHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}", api.GetRoomHandler(svc))
	mux.HandleFunc("DELETE /api/chat/rooms/{roomId}", api.DeleteRoomHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}/messages", api.HistoryHandler(svc))
	mux.HandleFunc("POST /api/chat/rooms/{roomId}/messages", api.PostMessageHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}/users", api.RoomUsersHandler(svc))
	mux.HandleFunc("GET /api/chat/rooms/{roomId}/users/count", api.RoomUserCountHandler(svc))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Printf("🚀 Chat relay starting on :%s...\n", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
			if err != http.ErrServerClosed {
				log.Fatalf("ListenAndServe: %v", err)
			}
		}
	}()

	<-stop

	fmt.Println("\nShutdown signal received. Cleaning up...")
	close(h.Quit)
	relayCancel()

	time.Sleep(1 * time.Second)
	fmt.Println("Graceful shutdown complete. Goodnight!")
}
