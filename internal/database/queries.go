package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

func (db *PgChatRepository) CreateAccount(username string) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, created_at) VALUES ($1, $2) "+
			"RETURNING id, username, created_at",
		username,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(&a.Id, &a.Username, &a.CreatedAt)

	return a, err
}

func (db *PgChatRepository) EnsureAccount(username string) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, created_at) VALUES ($1, $2) "+
			"ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username "+
			"RETURNING id, username, created_at",
		username,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(&a.Id, &a.Username, &a.CreatedAt)

	return a, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, created_at FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(&a.Id, &a.Username, &a.CreatedAt)

	return a, err
}

func (db *PgChatRepository) GetAccountByUsername(username string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, created_at FROM accounts WHERE username = $1 LIMIT 1",
		username,
	)

	var a Account
	err := row.Scan(&a.Id, &a.Username, &a.CreatedAt)

	return a, err
}

func (db *PgChatRepository) GetThread(threadId int) (Thread, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, last_message FROM threads WHERE id = $1 LIMIT 1",
		threadId,
	)

	var t Thread
	if err := row.Scan(&t.Id, &t.Name, &t.LastMessage); err != nil {
		return Thread{}, err
	}

	members, err := db.ThreadMembers(t.Id)
	if err != nil {
		return Thread{}, err
	}
	t.Members = members

	return t, nil
}

// GetDirectThread returns the thread whose member set is exactly the two
// given accounts.
func (db *PgChatRepository) GetDirectThread(accountA, accountB int) (Thread, error) {
	row := db.conn.QueryRow(
		"SELECT t.id, t.name, t.last_message FROM threads t "+
			"JOIN thread_users ua ON ua.thread_id = t.id AND ua.account_id = $1 "+
			"JOIN thread_users ub ON ub.thread_id = t.id AND ub.account_id = $2 "+
			"WHERE (SELECT count(*) FROM thread_users tu WHERE tu.thread_id = t.id) = 2 "+
			"LIMIT 1",
		accountA,
		accountB,
	)

	var t Thread
	if err := row.Scan(&t.Id, &t.Name, &t.LastMessage); err != nil {
		return Thread{}, err
	}

	members, err := db.ThreadMembers(t.Id)
	if err != nil {
		return Thread{}, err
	}
	t.Members = members

	return t, nil
}

func (db *PgChatRepository) CreateThread(name string, memberIds ...int) (Thread, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Thread{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO threads (name) VALUES ($1) RETURNING id, name, last_message",
		name,
	)

	var t Thread
	err = res.Scan(&t.Id, &t.Name, &t.LastMessage)
	if err != nil {
		return Thread{}, err
	}

	for _, id := range memberIds {
		_, err = tx.Exec(
			"INSERT INTO thread_users (thread_id, account_id) VALUES ($1, $2)",
			t.Id,
			id,
		)
		if err != nil {
			return Thread{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Thread{}, err
	}

	members, err := db.ThreadMembers(t.Id)
	if err != nil {
		return Thread{}, err
	}
	t.Members = members

	return t, nil
}

func (db *PgChatRepository) UpdateThreadName(threadId int, name string) (Thread, error) {
	res := db.conn.QueryRow(
		"UPDATE threads SET name = $2 WHERE id = $1 RETURNING id, name, last_message",
		threadId,
		name,
	)

	var t Thread
	err := res.Scan(&t.Id, &t.Name, &t.LastMessage)

	return t, err
}

// DeleteThread removes the thread; messages, membership rows and unread
// markers cascade.
func (db *PgChatRepository) DeleteThread(threadId int) error {
	_, err := db.conn.Exec("DELETE FROM threads WHERE id = $1", threadId)

	return err
}

func (db *PgChatRepository) ThreadMembers(threadId int) ([]Account, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.created_at FROM thread_users AS tu "+
			"JOIN accounts AS a ON tu.account_id = a.id "+
			"WHERE tu.thread_id = $1 ORDER BY a.username",
		threadId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members = make([]Account, 0)
	for rows.Next() {
		var a Account
		if err = rows.Scan(&a.Id, &a.Username, &a.CreatedAt); err != nil {
			return nil, err
		}

		members = append(members, a)
	}

	return members, rows.Err()
}

func (db *PgChatRepository) IsThreadMember(threadId, accountId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM thread_users WHERE thread_id = $1 AND account_id = $2)",
		threadId,
		accountId,
	)

	var exists bool
	err := row.Scan(&exists)

	return exists, err
}

// CreateMessage persists a message, bumps the thread's last_message
// timestamp and upserts unread markers for every member not listed in
// params.SkipUnread, in one transaction, holding the thread's row lock
// so concurrent senders to the same thread are serialized.
func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var threadId int
	err = tx.QueryRow(
		"SELECT id FROM threads WHERE id = $1 FOR UPDATE",
		params.ThreadId,
	).Scan(&threadId)
	if err != nil {
		return Message{}, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(
		"UPDATE threads SET last_message = $2 WHERE id = $1",
		params.ThreadId,
		now,
	)
	if err != nil {
		return Message{}, err
	}

	res := tx.QueryRow(
		"INSERT INTO messages (thread_id, account_id, text, lang, date) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"RETURNING id, thread_id, account_id, text, lang, date",
		params.ThreadId,
		params.AcctId,
		params.Text,
		params.Lang,
		now,
	)

	var msg Message
	err = res.Scan(&msg.Id, &msg.ThreadId, &msg.AcctId, &msg.Text, &msg.Lang, &msg.Date)
	if err != nil {
		return Message{}, err
	}

	err = tx.QueryRow(
		"SELECT username FROM accounts WHERE id = $1",
		params.AcctId,
	).Scan(&msg.Username)
	if err != nil {
		return Message{}, err
	}

	skip := make([]int64, 0, len(params.SkipUnread))
	for _, id := range params.SkipUnread {
		skip = append(skip, int64(id))
	}

	_, err = tx.Exec(
		"INSERT INTO unread_threads (thread_id, account_id, date) "+
			"SELECT tu.thread_id, tu.account_id, $3 FROM thread_users tu "+
			"WHERE tu.thread_id = $1 AND tu.account_id <> ALL ($2) "+
			"ON CONFLICT (thread_id, account_id) DO NOTHING",
		params.ThreadId,
		pq.Array(skip),
		now,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgChatRepository) GetMessage(messageId int) (Message, error) {
	res := db.conn.QueryRow(
		"SELECT m.id, m.thread_id, m.account_id, a.username, m.text, m.lang, m.date "+
			"FROM messages m JOIN accounts a ON m.account_id = a.id "+
			"WHERE m.id = $1",
		messageId,
	)

	var msg Message
	err := res.Scan(&msg.Id, &msg.ThreadId, &msg.AcctId, &msg.Username, &msg.Text, &msg.Lang, &msg.Date)

	return msg, err
}

func (db *PgChatRepository) DeleteMessage(messageId int) (Message, error) {
	res := db.conn.QueryRow(
		"DELETE FROM messages WHERE id = $1 "+
			"RETURNING id, thread_id, account_id, text, lang, date",
		messageId,
	)

	var msg Message
	err := res.Scan(&msg.Id, &msg.ThreadId, &msg.AcctId, &msg.Text, &msg.Lang, &msg.Date)

	return msg, err
}

// GetMessages returns the last limit messages of a thread, oldest first.
func (db *PgChatRepository) GetMessages(threadId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.thread_id, m.account_id, a.username, m.text, m.lang, m.date "+
			"FROM (SELECT * FROM messages WHERE thread_id = $1 ORDER BY date DESC LIMIT $2) m "+
			"JOIN accounts a ON m.account_id = a.id "+
			"ORDER BY m.date ASC",
		threadId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.ThreadId, &msg.AcctId, &msg.Username,
			&msg.Text, &msg.Lang, &msg.Date); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgChatRepository) DeleteUnreadThread(threadId, accountId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM unread_threads WHERE thread_id = $1 AND account_id = $2",
		threadId,
		accountId,
	)

	return err
}

func (db *PgChatRepository) ListUnreadThreads(accountId, limit int) ([]ThreadBrief, error) {
	rows, err := db.conn.Query(
		"SELECT t.id, t.name FROM unread_threads ut "+
			"JOIN threads t ON t.id = ut.thread_id "+
			"WHERE ut.account_id = $1 ORDER BY ut.date DESC LIMIT $2",
		accountId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanThreadBriefs(rows)
}

func (db *PgChatRepository) ListRecentThreads(accountId, limit int) ([]ThreadBrief, error) {
	rows, err := db.conn.Query(
		"SELECT t.id, t.name FROM threads t "+
			"JOIN thread_users tu ON tu.thread_id = t.id "+
			"WHERE tu.account_id = $1 AND t.last_message IS NOT NULL "+
			"ORDER BY t.last_message DESC LIMIT $2",
		accountId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanThreadBriefs(rows)
}

func scanThreadBriefs(rows *sql.Rows) ([]ThreadBrief, error) {
	var threads = make([]ThreadBrief, 0)
	for rows.Next() {
		var t ThreadBrief
		if err := rows.Scan(&t.Id, &t.Name); err != nil {
			return nil, err
		}

		threads = append(threads, t)
	}

	return threads, rows.Err()
}

const friendshipRequestColumns = "fr.id, fr.from_account, fa.username, fr.to_account, ta.username, " +
	"fr.message, fr.created, fr.rejected, fr.viewed"

func (db *PgChatRepository) CreateFriendshipRequest(fromId, toId int, message string) (FriendshipRequest, error) {
	if fromId == toId {
		return FriendshipRequest{}, fmt.Errorf("cannot request friendship with yourself")
	}

	res := db.conn.QueryRow(
		"INSERT INTO friendship_requests (from_account, to_account, message, created) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, from_account, to_account, message, created",
		fromId,
		toId,
		message,
		time.Now().UTC(),
	)

	var fr FriendshipRequest
	err := res.Scan(&fr.Id, &fr.FromAcctId, &fr.ToAcctId, &fr.Message, &fr.Created)

	return fr, err
}

func (db *PgChatRepository) GetFriendshipRequest(requestId int) (FriendshipRequest, error) {
	row := db.conn.QueryRow(
		"SELECT "+friendshipRequestColumns+" FROM friendship_requests fr "+
			"JOIN accounts fa ON fa.id = fr.from_account "+
			"JOIN accounts ta ON ta.id = fr.to_account "+
			"WHERE fr.id = $1 LIMIT 1",
		requestId,
	)

	var fr FriendshipRequest
	err := row.Scan(&fr.Id, &fr.FromAcctId, &fr.FromUsername, &fr.ToAcctId, &fr.ToUsername,
		&fr.Message, &fr.Created, &fr.Rejected, &fr.Viewed)

	return fr, err
}

// AcceptFriendshipRequest creates the symmetric friendship pair and
// removes the request along with any reverse request.
func (db *PgChatRepository) AcceptFriendshipRequest(requestId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var fromId, toId int
	err = tx.QueryRow(
		"SELECT from_account, to_account FROM friendship_requests WHERE id = $1 FOR UPDATE",
		requestId,
	).Scan(&fromId, &toId)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(
		"INSERT INTO friends (from_account, to_account, created) VALUES ($1, $2, $3), ($2, $1, $3) "+
			"ON CONFLICT (from_account, to_account) DO NOTHING",
		fromId,
		toId,
		now,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"DELETE FROM friendship_requests WHERE (from_account = $1 AND to_account = $2) "+
			"OR (from_account = $2 AND to_account = $1)",
		fromId,
		toId,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) RejectFriendshipRequest(requestId int) error {
	res, err := db.conn.Exec(
		"UPDATE friendship_requests SET rejected = $2 WHERE id = $1",
		requestId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *PgChatRepository) DeleteFriendshipRequest(requestId int) error {
	_, err := db.conn.Exec("DELETE FROM friendship_requests WHERE id = $1", requestId)

	return err
}

func (db *PgChatRepository) ListFriendshipRequests(toId int) ([]FriendshipRequest, error) {
	rows, err := db.conn.Query(
		"SELECT "+friendshipRequestColumns+" FROM friendship_requests fr "+
			"JOIN accounts fa ON fa.id = fr.from_account "+
			"JOIN accounts ta ON ta.id = fr.to_account "+
			"WHERE fr.to_account = $1 AND fr.rejected IS NULL ORDER BY fr.created DESC",
		toId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests = make([]FriendshipRequest, 0)
	for rows.Next() {
		var fr FriendshipRequest
		if err = rows.Scan(&fr.Id, &fr.FromAcctId, &fr.FromUsername, &fr.ToAcctId, &fr.ToUsername,
			&fr.Message, &fr.Created, &fr.Rejected, &fr.Viewed); err != nil {
			return nil, err
		}

		requests = append(requests, fr)
	}

	return requests, rows.Err()
}

func (db *PgChatRepository) ListFriends(accountId int) ([]Account, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.created_at FROM friends f "+
			"JOIN accounts a ON a.id = f.from_account "+
			"WHERE f.to_account = $1 ORDER BY a.username",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends = make([]Account, 0)
	for rows.Next() {
		var a Account
		if err = rows.Scan(&a.Id, &a.Username, &a.CreatedAt); err != nil {
			return nil, err
		}

		friends = append(friends, a)
	}

	return friends, rows.Err()
}
