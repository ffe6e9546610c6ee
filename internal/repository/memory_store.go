package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/messagely/internal/model"
)

// MemoryStore はUserRepositoryとMessageRepositoryのインメモリ実装。
// PostgreSQLと同じ制約（ユーザー名の一意性、メッセージの参照整合性）を守る。
// テストやローカルでの動作確認に使用する。
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]model.User
	messages map[string]model.Message
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]model.User),
		messages: make(map[string]model.Message),
	}
}

// Users はUserRepositoryとしてのビューを返す。
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Messages はMessageRepositoryとしてのビューを返す。
func (s *MemoryStore) Messages() MessageRepository { return memoryMessages{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m memoryUsers) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[user.Username]; ok {
		return ErrDuplicateKey
	}
	m.s.users[user.Username] = *user
	return nil
}

func (m memoryUsers) UpdateLastLogin(_ context.Context, username string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[username]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	m.s.users[username] = u
	return nil
}

func (m memoryUsers) List(_ context.Context) ([]*model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	users := make([]*model.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

type memoryMessages struct{ s *MemoryStore }

func (m memoryMessages) Create(_ context.Context, msg *model.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[msg.FromUsername]; !ok {
		return ErrUnknownSender
	}
	if _, ok := m.s.users[msg.ToUsername]; !ok {
		return ErrUnknownRecipient
	}
	if _, ok := m.s.messages[msg.ID]; ok {
		return ErrDuplicateKey
	}
	m.s.messages[msg.ID] = *msg
	return nil
}

func (m memoryMessages) FindByID(_ context.Context, id string) (*model.MessageRow, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	msg, ok := m.s.messages[id]
	if !ok {
		return nil, nil
	}
	row := m.s.joinLocked(msg)
	return &row, nil
}

func (m memoryMessages) MarkRead(_ context.Context, id, recipient string, at time.Time) (*time.Time, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	msg, ok := m.s.messages[id]
	if !ok || msg.ToUsername != recipient {
		return nil, nil
	}
	if msg.ReadAt == nil {
		msg.ReadAt = &at
		m.s.messages[id] = msg
	}
	readAt := *msg.ReadAt
	return &readAt, nil
}

func (m memoryMessages) ListFrom(_ context.Context, username string) ([]model.MessageRow, error) {
	return m.s.list(func(msg model.Message) bool { return msg.FromUsername == username }), nil
}

func (m memoryMessages) ListTo(_ context.Context, username string) ([]model.MessageRow, error) {
	return m.s.list(func(msg model.Message) bool { return msg.ToUsername == username }), nil
}

// list はmatchに一致するメッセージを送信日時の昇順で返す。
func (s *MemoryStore) list(match func(model.Message) bool) []model.MessageRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := []model.MessageRow{}
	for _, msg := range s.messages {
		if match(msg) {
			rows = append(rows, s.joinLocked(msg))
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].SentAt.Equal(rows[j].SentAt) {
			return rows[i].SentAt.Before(rows[j].SentAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// joinLocked は呼び出し側でロックを保持している前提でメッセージとユーザーを結合する。
func (s *MemoryStore) joinLocked(msg model.Message) model.MessageRow {
	from := s.users[msg.FromUsername]
	to := s.users[msg.ToUsername]
	return model.MessageRow{
		ID:     msg.ID,
		Body:   msg.Body,
		SentAt: msg.SentAt,
		ReadAt: msg.ReadAt,
		From:   from.Profile(),
		To:     to.Profile(),
	}
}

// compile-time interface check
var (
	_ UserRepository    = memoryUsers{}
	_ MessageRepository = memoryMessages{}
)
