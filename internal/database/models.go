package database

import (
	"database/sql"
	"time"
)

type Account struct {
	Id        int
	Username  string
	CreatedAt time.Time
}

type Thread struct {
	Id          int
	Name        string
	LastMessage sql.NullTime
	Members     []Account
}

type Message struct {
	Id       int
	ThreadId int
	AcctId   int
	Username string
	Text     string
	Lang     string
	Date     time.Time
}

type ThreadBrief struct {
	Id   int
	Name string
}

type FriendshipRequest struct {
	Id           int
	FromAcctId   int
	FromUsername string
	ToAcctId     int
	ToUsername   string
	Message      string
	Created      time.Time
	Rejected     sql.NullTime
	Viewed       sql.NullTime
}

type CreateMessageParams struct {
	ThreadId int
	AcctId   int
	Text     string
	Lang     string
	// SkipUnread lists account ids that must not receive an unread marker
	// for this message (the author, the bot, active viewers).
	SkipUnread []int
}
