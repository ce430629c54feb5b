package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/robbine75/chat/internal/chat"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/server"
	"github.com/robbine75/chat/internal/types"
)

const (
	defaultHistoryLimit = 50
	threadListLimit     = 10
	maxThreadNameLen    = 64
)

type RenameThreadRequest struct {
	Name string `json:"name"`
}

type FriendshipRequestBody struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ThreadListResponse carries either the unread threads or, when there
// are none, the most recent ones. UnreadCount distinguishes the two.
type ThreadListResponse struct {
	Threads     []types.ThreadBrief `json:"threads"`
	UnreadCount int                 `json:"unread_count"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) onlineUsers(w http.ResponseWriter, r *http.Request) {
	online, err := s.presence.ListOnline(r.Context())
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, online)
}

// directThread finds or lazily creates the two-person thread between the
// caller and the named user.
func (s *ChatApp) directThread(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	username := mux.Vars(r)["username"]
	if username == user.Username {
		errResp := NewUnprocessableEntityError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	other, err := s.db.GetAccountByUsername(username)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	statusCode := http.StatusOK
	thread, err := s.db.GetDirectThread(user.Id, other.Id)
	if errors.Is(err, sql.ErrNoRows) {
		name := fmt.Sprintf("%s, %s", user.Username, other.Username)
		thread, err = s.db.CreateThread(name, user.Id, other.Id)
		statusCode = http.StatusCreated
	}
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, statusCode, threadFromDB(thread))
}

// threadMessages returns the last messages of the thread and clears the
// caller's unread marker, like opening the thread page.
func (s *ChatApp) threadMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	threadId, err := strconv.Atoi(mux.Vars(r)["thread_id"])
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.IsThreadMember(threadId, user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !member {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages, err := s.db.GetMessages(threadId, defaultHistoryLimit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.messenger.MarkRead(r.Context(), threadId, user.Id); err != nil {
		s.log.Printf("clear unread marker for thread %d: %v", threadId, err)
	}

	resp := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, types.Message{
			Id:       msg.Id,
			ThreadId: msg.ThreadId,
			UserId:   msg.AcctId,
			Username: msg.Username,
			Text:     msg.Text,
			Lang:     msg.Lang,
			Date:     msg.Date,
		})
	}

	s.writeJson(w, http.StatusOK, resp)
}

// unreadThreads lists the caller's unread threads, falling back to the
// most recently active threads when everything is read.
func (s *ChatApp) unreadThreads(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	unread, err := s.db.ListUnreadThreads(user.Id, threadListLimit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	threads := unread
	if len(unread) == 0 {
		threads, err = s.db.ListRecentThreads(user.Id, threadListLimit)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	resp := ThreadListResponse{
		Threads:     make([]types.ThreadBrief, 0, len(threads)),
		UnreadCount: len(unread),
	}
	for _, t := range threads {
		resp.Threads = append(resp.Threads, types.ThreadBrief{Id: t.Id, Name: t.Name})
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *ChatApp) renameThread(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	threadId, err := strconv.Atoi(mux.Vars(r)["thread_id"])
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req RenameThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || len(req.Name) > maxThreadNameLen {
		errResp := NewUnprocessableEntityError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.IsThreadMember(threadId, user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !member {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	thread, err := s.db.UpdateThreadName(threadId, req.Name)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, threadFromDB(thread))
}

// deleteMessage removes a message the caller authored and broadcasts the
// delete action to the thread group.
func (s *ChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := strconv.Atoi(mux.Vars(r)["message_id"])
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.GetMessage(messageId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if msg.AcctId != user.Id {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.messenger.DeleteMessage(r.Context(), messageId); err != nil {
		var errResp *ApiError
		if errors.Is(err, chat.ErrMessageNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) serveUsersWs(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.upgradeAndRegister(w, r, user, server.KindPresence, 0)
}

func (s *ChatApp) serveThreadWs(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	threadId, err := strconv.Atoi(mux.Vars(r)["thread_id"])
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.IsThreadMember(threadId, user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !member {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.upgradeAndRegister(w, r, user, server.KindThread, threadId)
}

func (s *ChatApp) upgradeAndRegister(w http.ResponseWriter, r *http.Request, user types.User,
	kind server.SessionKind, threadId int) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, kind, threadId, conn, s.cs, s.log)

	s.cs.RegisterChan <- client
	go client.Write()
	go client.Read()
}

func threadFromDB(thread database.Thread) types.Thread {
	t := types.Thread{
		Id:   thread.Id,
		Name: thread.Name,
	}
	if thread.LastMessage.Valid {
		lm := thread.LastMessage.Time
		t.LastMessage = &lm
	}
	for _, m := range thread.Members {
		t.Users = append(t.Users, types.User{Id: m.Id, Username: m.Username})
	}

	return t
}
