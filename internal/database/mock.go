package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(username string) (Account, error) {
	args := m.Called(username)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) EnsureAccount(username string) (Account, error) {
	args := m.Called(username)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) GetAccountByUsername(username string) (Account, error) {
	args := m.Called(username)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) GetThread(threadId int) (Thread, error) {
	args := m.Called(threadId)
	return args.Get(0).(Thread), args.Error(1)
}
func (m *MockChatRepository) GetDirectThread(accountA, accountB int) (Thread, error) {
	args := m.Called(accountA, accountB)
	return args.Get(0).(Thread), args.Error(1)
}
func (m *MockChatRepository) CreateThread(name string, memberIds ...int) (Thread, error) {
	callArgs := make([]any, 0, len(memberIds)+1)
	callArgs = append(callArgs, name)
	for _, id := range memberIds {
		callArgs = append(callArgs, id)
	}
	args := m.Called(callArgs...)
	return args.Get(0).(Thread), args.Error(1)
}
func (m *MockChatRepository) UpdateThreadName(threadId int, name string) (Thread, error) {
	args := m.Called(threadId, name)
	return args.Get(0).(Thread), args.Error(1)
}
func (m *MockChatRepository) DeleteThread(threadId int) error {
	args := m.Called(threadId)
	return args.Error(0)
}
func (m *MockChatRepository) ThreadMembers(threadId int) ([]Account, error) {
	args := m.Called(threadId)
	return args.Get(0).([]Account), args.Error(1)
}
func (m *MockChatRepository) IsThreadMember(threadId, accountId int) (bool, error) {
	args := m.Called(threadId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessage(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) DeleteMessage(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessages(threadId, limit int) ([]Message, error) {
	args := m.Called(threadId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) DeleteUnreadThread(threadId, accountId int) error {
	args := m.Called(threadId, accountId)
	return args.Error(0)
}
func (m *MockChatRepository) ListUnreadThreads(accountId, limit int) ([]ThreadBrief, error) {
	args := m.Called(accountId, limit)
	return args.Get(0).([]ThreadBrief), args.Error(1)
}
func (m *MockChatRepository) ListRecentThreads(accountId, limit int) ([]ThreadBrief, error) {
	args := m.Called(accountId, limit)
	return args.Get(0).([]ThreadBrief), args.Error(1)
}
func (m *MockChatRepository) CreateFriendshipRequest(fromId, toId int, message string) (FriendshipRequest, error) {
	args := m.Called(fromId, toId, message)
	return args.Get(0).(FriendshipRequest), args.Error(1)
}
func (m *MockChatRepository) GetFriendshipRequest(requestId int) (FriendshipRequest, error) {
	args := m.Called(requestId)
	return args.Get(0).(FriendshipRequest), args.Error(1)
}
func (m *MockChatRepository) AcceptFriendshipRequest(requestId int) error {
	args := m.Called(requestId)
	return args.Error(0)
}
func (m *MockChatRepository) RejectFriendshipRequest(requestId int) error {
	args := m.Called(requestId)
	return args.Error(0)
}
func (m *MockChatRepository) DeleteFriendshipRequest(requestId int) error {
	args := m.Called(requestId)
	return args.Error(0)
}
func (m *MockChatRepository) ListFriendshipRequests(toId int) ([]FriendshipRequest, error) {
	args := m.Called(toId)
	return args.Get(0).([]FriendshipRequest), args.Error(1)
}
func (m *MockChatRepository) ListFriends(accountId int) ([]Account, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Account), args.Error(1)
}
