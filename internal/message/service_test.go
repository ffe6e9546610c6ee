package message

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/messagely/internal/model"
	"github.com/hitoshi/messagely/internal/repository"
	"github.com/hitoshi/messagely/internal/security"
)

// --- モック定義 ---

type mockMessageRepo struct {
	createFn   func(ctx context.Context, msg *model.Message) error
	findByIDFn func(ctx context.Context, id string) (*model.MessageRow, error)
	markReadFn func(ctx context.Context, id, recipient string, at time.Time) (*time.Time, error)
	listFromFn func(ctx context.Context, username string) ([]model.MessageRow, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*model.MessageRow, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, id, recipient string, at time.Time) (*time.Time, error) {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, id, recipient, at)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListFrom(ctx context.Context, username string) ([]model.MessageRow, error) {
	if m.listFromFn != nil {
		return m.listFromFn(ctx, username)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListTo(_ context.Context, _ string) ([]model.MessageRow, error) {
	return nil, nil
}

var _ repository.MessageRepository = (*mockMessageRepo)(nil)

// --- ヘルパー ---

var (
	alice = &model.Identity{Username: "alice"}
	bob   = &model.Identity{Username: "bob"}
	carol = &model.Identity{Username: "carol"}
)

func newStoreWithUsers(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	for _, name := range []string{"alice", "bob", "carol"} {
		err := store.Users().Create(context.Background(), &model.User{
			Username:     name,
			PasswordHash: "hash",
			FirstName:    name + "-first",
			LastName:     name + "-last",
			Phone:        "555-" + name,
			JoinAt:       time.Now(),
		})
		if err != nil {
			t.Fatalf("ユーザー作成に失敗: %v", err)
		}
	}
	return store
}

func newTestService(store *repository.MemoryStore) *Service {
	return NewService(store.Messages(), nil)
}

// --- テスト ---

func TestCreate_PersistsMessage(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)
	sent := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return sent }
	svc.newID = func() string { return "m-1" }

	msg, err := svc.Create(context.Background(), alice, "bob", "hello bob")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if msg.ID != "m-1" || msg.FromUsername != "alice" || msg.ToUsername != "bob" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Body != "hello bob" {
		t.Errorf("Body = %q, want %q", msg.Body, "hello bob")
	}
	if !msg.SentAt.Equal(sent) {
		t.Errorf("SentAt = %v, want %v", msg.SentAt, sent)
	}
	if msg.ReadAt != nil {
		t.Errorf("ReadAt = %v, want nil", msg.ReadAt)
	}
}

func TestCreate_Errors(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	tests := []struct {
		name     string
		sender   *model.Identity
		to       string
		body     string
		wantCode string
	}{
		{"未ログイン", nil, "bob", "hi", model.ErrCodeUnauthorized},
		{"宛先なし", alice, "", "hi", model.ErrCodeInvalidRequest},
		{"本文なし", alice, "bob", "", model.ErrCodeInvalidRequest},
		{"本文が空白のみ", alice, "bob", "  \n\t", model.ErrCodeInvalidRequest},
		{"存在しない宛先", alice, "ghost", "hi", model.ErrCodeUserNotFound},
		{"存在しない送信者", &model.Identity{Username: "ghost"}, "bob", "hi", model.ErrCodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.sender, tt.to, tt.body)
			if !model.HasCode(err, tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestCreate_SelfMessageAllowed(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	msg, err := svc.Create(context.Background(), alice, "alice", "note to self")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	receipt, err := svc.MarkRead(context.Background(), msg.ID, alice)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if receipt.ID != msg.ID {
		t.Errorf("receipt.ID = %q, want %q", receipt.ID, msg.ID)
	}
}

// 送信者と受信者の双方が参照でき、第三者は参照できない
// TestCreate_BodyRoundTrip は本文が書き換えられずに保存・参照されることを検証する。
func TestCreate_BodyRoundTrip(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	bodies := []string{
		"if x<y then swap",
		"type &lt;b&gt; for bold",
		"  indented code",
		"a<b>c</b>",
		"trailing newline\n",
		"Tom & Jerry say 1 < 2",
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			msg, err := svc.Create(context.Background(), alice, "bob", body)
			if err != nil {
				t.Fatalf("Create(%q) failed: %v", body, err)
			}
			if msg.Body != body {
				t.Errorf("created Body = %q, want %q", msg.Body, body)
			}

			for _, requester := range []*model.Identity{alice, bob} {
				detail, err := svc.Get(context.Background(), msg.ID, requester)
				if err != nil {
					t.Fatalf("Get as %s failed: %v", requester.Username, err)
				}
				if detail.Body != body {
					t.Errorf("Get as %s: Body = %q, want %q", requester.Username, detail.Body, body)
				}
			}

			received, err := svc.ListTo(context.Background(), "bob")
			if err != nil {
				t.Fatalf("ListTo failed: %v", err)
			}
			found := false
			for _, m := range received {
				if m.ID == msg.ID {
					found = true
					if m.Body != body {
						t.Errorf("ListTo Body = %q, want %q", m.Body, body)
					}
				}
			}
			if !found {
				t.Errorf("message %s not in ListTo", msg.ID)
			}
		})
	}
}

// TestCreate_PolicyRejectsBody はContentPolicyが拒否した本文を保存しないことを検証する。
func TestCreate_PolicyRejectsBody(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := NewService(store.Messages(), security.NewMarkupRejector())

	if _, err := svc.Create(context.Background(), alice, "bob", "<script>alert(1)</script>"); !model.HasCode(err, model.ErrCodeInvalidRequest) {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeInvalidRequest)
	}
	sent, err := svc.ListFrom(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListFrom failed: %v", err)
	}
	if len(sent) != 0 {
		t.Errorf("rejected body was stored: %+v", sent)
	}

	msg, err := svc.Create(context.Background(), alice, "bob", "if x<y then swap")
	if err != nil {
		t.Fatalf("plain text rejected: %v", err)
	}
	if msg.Body != "if x<y then swap" {
		t.Errorf("Body = %q, want unchanged", msg.Body)
	}
}

// TestCreate_UnknownSenderNamesSender は送信者が存在しない場合に送信者名でエラーを返すことを検証する。
func TestCreate_UnknownSenderNamesSender(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), &model.Identity{Username: "ghost"}, "bob", "hi")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("error = %v, want code %s", err, model.ErrCodeUserNotFound)
	}
	if !strings.Contains(apiErr.Message, "ghost") || strings.Contains(apiErr.Message, "bob") {
		t.Errorf("Message = %q, want sender name", apiErr.Message)
	}
}

func TestGet_AccessSymmetry(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	msg, err := svc.Create(context.Background(), alice, "bob", "hi bob")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for _, who := range []*model.Identity{alice, bob} {
		detail, err := svc.Get(context.Background(), msg.ID, who)
		if err != nil {
			t.Errorf("Get as %s failed: %v", who.Username, err)
			continue
		}
		if detail.FromUser.Username != "alice" || detail.ToUser.Username != "bob" {
			t.Errorf("unexpected parties: %+v", detail)
		}
		if detail.FromUser.Phone != "555-alice" {
			t.Errorf("FromUser.Phone = %q, want %q", detail.FromUser.Phone, "555-alice")
		}
	}

	_, err = svc.Get(context.Background(), msg.ID, carol)
	if !model.HasCode(err, model.ErrCodeForbidden) {
		t.Errorf("Get as carol: error = %v, want FORBIDDEN", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	_, err := svc.Get(context.Background(), "missing", alice)
	if !model.HasCode(err, model.ErrCodeMessageNotFound) {
		t.Errorf("error = %v, want MESSAGE_NOT_FOUND", err)
	}
}

// 受信者のみが既読化でき、それ以外の試行ではread_atが変わらない
func TestMarkRead_RecipientOnly(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	msg, _ := svc.Create(context.Background(), alice, "bob", "hi bob")

	for _, who := range []*model.Identity{alice, carol} {
		_, err := svc.MarkRead(context.Background(), msg.ID, who)
		if !model.HasCode(err, model.ErrCodeForbidden) {
			t.Errorf("MarkRead as %s: error = %v, want FORBIDDEN", who.Username, err)
		}
	}

	detail, _ := svc.Get(context.Background(), msg.ID, bob)
	if detail.ReadAt != nil {
		t.Errorf("ReadAt = %v, want nil after rejected attempts", detail.ReadAt)
	}
}

// 2回目以降の既読化は最初のread_atを返し、値を変更しない
func TestMarkRead_Idempotent(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	msg, _ := svc.Create(context.Background(), alice, "bob", "hi bob")

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	r1, err := svc.MarkRead(context.Background(), msg.ID, bob)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	svc.now = func() time.Time { return first.Add(time.Hour) }
	r2, err := svc.MarkRead(context.Background(), msg.ID, bob)
	if err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}

	if !r1.ReadAt.Equal(first) || !r2.ReadAt.Equal(first) {
		t.Errorf("read_at = %v then %v, want %v both times", r1.ReadAt, r2.ReadAt, first)
	}
}

func TestMarkRead_NotFound(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	_, err := svc.MarkRead(context.Background(), "missing", bob)
	if !model.HasCode(err, model.ErrCodeMessageNotFound) {
		t.Errorf("error = %v, want MESSAGE_NOT_FOUND", err)
	}
}

func TestListFromAndTo(t *testing.T) {
	store := newStoreWithUsers(t)
	svc := newTestService(store)

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ids := []string{"m-1", "m-2", "m-3"}
	n := 0
	svc.newID = func() string { id := ids[n]; n++; return id }
	svc.now = func() time.Time { return base.Add(time.Duration(n) * time.Minute) }

	svc.Create(context.Background(), alice, "bob", "first")
	svc.Create(context.Background(), alice, "carol", "second")
	svc.Create(context.Background(), bob, "alice", "reply")

	sent, err := svc.ListFrom(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListFrom failed: %v", err)
	}
	if len(sent) != 2 || sent[0].Body != "first" || sent[1].Body != "second" {
		t.Fatalf("ListFrom = %+v", sent)
	}
	if sent[1].ToUser.Username != "carol" || sent[1].ToUser.FirstName != "carol-first" {
		t.Errorf("ToUser = %+v", sent[1].ToUser)
	}

	received, err := svc.ListTo(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListTo failed: %v", err)
	}
	if len(received) != 1 || received[0].FromUser.Username != "bob" {
		t.Errorf("ListTo = %+v", received)
	}

	none, err := svc.ListTo(context.Background(), "carol-nobody")
	if err != nil {
		t.Fatalf("ListTo failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestListFrom_RepoError(t *testing.T) {
	repoErr := errors.New("db down")
	svc := NewService(&mockMessageRepo{
		listFromFn: func(_ context.Context, _ string) ([]model.MessageRow, error) {
			return nil, repoErr
		},
	}, nil)

	_, err := svc.ListFrom(context.Background(), "alice")
	if !errors.Is(err, repoErr) {
		t.Errorf("error = %v, want wrapped %v", err, repoErr)
	}
}

// 参照と既読化の間にメッセージが受信者以外のものになった場合はMESSAGE_NOT_FOUNDとする
func TestMarkRead_RepoReturnsNil(t *testing.T) {
	svc := NewService(&mockMessageRepo{
		findByIDFn: func(_ context.Context, id string) (*model.MessageRow, error) {
			return &model.MessageRow{ID: id, From: model.UserProfile{Username: "alice"}, To: model.UserProfile{Username: "bob"}}, nil
		},
	}, nil)

	_, err := svc.MarkRead(context.Background(), "m-1", bob)
	if !model.HasCode(err, model.ErrCodeMessageNotFound) {
		t.Errorf("error = %v, want MESSAGE_NOT_FOUND", err)
	}
}
