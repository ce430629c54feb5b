package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/types"
)

func (s *ChatApp) createFriendshipRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req FriendshipRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Username == user.Username {
		errResp := NewUnprocessableEntityError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	to, err := s.db.GetAccountByUsername(req.Username)
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

	fr, err := s.db.CreateFriendshipRequest(user.Id, to.Id, req.Message)
	if err != nil {
		errResp := NewUnprocessableEntityError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, friendshipRequestFromDB(fr))
}

func (s *ChatApp) listFriendshipRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRequests, err := s.db.ListFriendshipRequests(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requests := make([]types.FriendshipRequest, 0, len(dbRequests))
	for _, fr := range dbRequests {
		requests = append(requests, friendshipRequestFromDB(fr))
	}

	s.writeJson(w, http.StatusOK, requests)
}

func (s *ChatApp) acceptFriendshipRequest(w http.ResponseWriter, r *http.Request) {
	s.resolveFriendshipRequest(w, r, func(fr database.FriendshipRequest, userId int) *ApiError {
		// Only the recipient may accept.
		if fr.ToAcctId != userId {
			return NewForbiddenError()
		}
		if err := s.db.AcceptFriendshipRequest(fr.Id); err != nil {
			return NewInternalServerError(err)
		}

		return nil
	})
}

func (s *ChatApp) rejectFriendshipRequest(w http.ResponseWriter, r *http.Request) {
	s.resolveFriendshipRequest(w, r, func(fr database.FriendshipRequest, userId int) *ApiError {
		if fr.ToAcctId != userId {
			return NewForbiddenError()
		}
		if err := s.db.RejectFriendshipRequest(fr.Id); err != nil {
			return NewInternalServerError(err)
		}

		return nil
	})
}

func (s *ChatApp) cancelFriendshipRequest(w http.ResponseWriter, r *http.Request) {
	s.resolveFriendshipRequest(w, r, func(fr database.FriendshipRequest, userId int) *ApiError {
		// Only the sender may cancel.
		if fr.FromAcctId != userId {
			return NewForbiddenError()
		}
		if err := s.db.DeleteFriendshipRequest(fr.Id); err != nil {
			return NewInternalServerError(err)
		}

		return nil
	})
}

// resolveFriendshipRequest loads the request named in the path, applies
// the action, and writes 204 on success.
func (s *ChatApp) resolveFriendshipRequest(w http.ResponseWriter, r *http.Request,
	action func(fr database.FriendshipRequest, userId int) *ApiError) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requestId, err := strconv.Atoi(mux.Vars(r)["request_id"])
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	fr, err := s.db.GetFriendshipRequest(requestId)
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

	if errResp := action(fr, user.Id); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) listFriends(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbFriends, err := s.db.ListFriends(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	friends := make([]types.User, 0, len(dbFriends))
	for _, f := range dbFriends {
		friends = append(friends, types.User{Id: f.Id, Username: f.Username, CreatedAt: f.CreatedAt})
	}

	s.writeJson(w, http.StatusOK, friends)
}

func friendshipRequestFromDB(fr database.FriendshipRequest) types.FriendshipRequest {
	req := types.FriendshipRequest{
		Id:       fr.Id,
		FromUser: types.User{Id: fr.FromAcctId, Username: fr.FromUsername},
		ToUser:   types.User{Id: fr.ToAcctId, Username: fr.ToUsername},
		Message:  fr.Message,
		Created:  fr.Created,
	}
	if fr.Rejected.Valid {
		rejected := fr.Rejected.Time
		req.Rejected = &rejected
	}
	if fr.Viewed.Valid {
		viewed := fr.Viewed.Time
		req.Viewed = &viewed
	}

	return req
}
