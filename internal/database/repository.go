package database

type ChatRepository interface {
	Ping() error

	CreateAccount(username string) (Account, error)
	EnsureAccount(username string) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByUsername(username string) (Account, error)

	GetThread(threadId int) (Thread, error)
	GetDirectThread(accountA, accountB int) (Thread, error)
	CreateThread(name string, memberIds ...int) (Thread, error)
	UpdateThreadName(threadId int, name string) (Thread, error)
	DeleteThread(threadId int) error
	ThreadMembers(threadId int) ([]Account, error)
	IsThreadMember(threadId, accountId int) (bool, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessage(messageId int) (Message, error)
	DeleteMessage(messageId int) (Message, error)
	GetMessages(threadId, limit int) ([]Message, error)

	DeleteUnreadThread(threadId, accountId int) error
	ListUnreadThreads(accountId, limit int) ([]ThreadBrief, error)
	ListRecentThreads(accountId, limit int) ([]ThreadBrief, error)

	CreateFriendshipRequest(fromId, toId int, message string) (FriendshipRequest, error)
	GetFriendshipRequest(requestId int) (FriendshipRequest, error)
	AcceptFriendshipRequest(requestId int) error
	RejectFriendshipRequest(requestId int) error
	DeleteFriendshipRequest(requestId int) error
	ListFriendshipRequests(toId int) ([]FriendshipRequest, error)
	ListFriends(accountId int) ([]Account, error)
}
