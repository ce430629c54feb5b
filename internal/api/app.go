// Package api exposes the HTTP surface of the chat service: the
// websocket endpoints, the thread and friendship REST endpoints, and the
// debug metrics.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/robbine75/chat/internal/chat"
	"github.com/robbine75/chat/internal/config"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/presence"
	"github.com/robbine75/chat/internal/server"
	"github.com/robbine75/chat/internal/stats"
)

type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	srv            *http.Server
	cs             *server.ChatServer
	messenger      *chat.Messenger
	presence       presence.Tracker
	stats          *stats.StatsUpdater
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(logger *log.Logger, cs *server.ChatServer, db database.ChatRepository,
	messenger *chat.Messenger, tracker presence.Tracker, su *stats.StatsUpdater, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		messenger:      messenger,
		presence:       tracker,
		stats:          su,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws/users", s.authMiddleware(s.serveUsersWs)).Methods(http.MethodGet)
	r.HandleFunc("/ws/thread/{thread_id:[0-9]+}", s.authMiddleware(s.serveThreadWs)).Methods(http.MethodGet)

	r.HandleFunc("/api/users/online", s.authMiddleware(s.onlineUsers)).Methods(http.MethodGet)
	r.HandleFunc("/api/threads/unread", s.authMiddleware(s.unreadThreads)).Methods(http.MethodGet)
	r.HandleFunc("/api/threads/direct/{username}", s.authMiddleware(s.directThread)).Methods(http.MethodPost)
	r.HandleFunc("/api/threads/{thread_id:[0-9]+}", s.authMiddleware(s.renameThread)).Methods(http.MethodPatch)
	r.HandleFunc("/api/threads/{thread_id:[0-9]+}/messages", s.authMiddleware(s.threadMessages)).Methods(http.MethodGet)
	r.HandleFunc("/api/messages/{message_id:[0-9]+}", s.authMiddleware(s.deleteMessage)).Methods(http.MethodDelete)

	r.HandleFunc("/api/friendships", s.authMiddleware(s.listFriends)).Methods(http.MethodGet)
	r.HandleFunc("/api/friendships/requests", s.authMiddleware(s.createFriendshipRequest)).Methods(http.MethodPost)
	r.HandleFunc("/api/friendships/requests", s.authMiddleware(s.listFriendshipRequests)).Methods(http.MethodGet)
	r.HandleFunc("/api/friendships/requests/{request_id:[0-9]+}/accept", s.authMiddleware(s.acceptFriendshipRequest)).Methods(http.MethodPost)
	r.HandleFunc("/api/friendships/requests/{request_id:[0-9]+}/reject", s.authMiddleware(s.rejectFriendshipRequest)).Methods(http.MethodPost)
	r.HandleFunc("/api/friendships/requests/{request_id:[0-9]+}", s.authMiddleware(s.cancelFriendshipRequest)).Methods(http.MethodDelete)

	r.Handle("/debug/vars", su.Handler()).Methods(http.MethodGet)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(r)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
