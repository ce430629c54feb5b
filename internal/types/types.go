package types

import (
	"time"
)

type User struct {
	Id        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Thread struct {
	Id          int        `json:"id"`
	Name        string     `json:"name"`
	LastMessage *time.Time `json:"last_message,omitempty"`
	Users       []User     `json:"users,omitempty"`
}

// ThreadBrief is the compact row returned by the unread/recent thread
// listings.
type ThreadBrief struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	Id       int       `json:"id"`
	ThreadId int       `json:"thread"`
	UserId   int       `json:"user"`
	Username string    `json:"username,omitempty"`
	Text     string    `json:"text"`
	Lang     string    `json:"lang"`
	Date     time.Time `json:"date"`
}

type FriendshipRequest struct {
	Id       int        `json:"id"`
	FromUser User       `json:"from_user"`
	ToUser   User       `json:"to_user"`
	Message  string     `json:"message,omitempty"`
	Created  time.Time  `json:"created"`
	Rejected *time.Time `json:"rejected,omitempty"`
	Viewed   *time.Time `json:"viewed,omitempty"`
}
