package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/messagely/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	All(ctx context.Context) ([]model.UserProfile, error)
	Get(ctx context.Context, username string) (*model.UserDetail, error)
}

// MessageListerInterface はユーザーごとのメッセージ一覧を取得するインターフェース。
// message.Serviceの部分集合として定義する。
type MessageListerInterface interface {
	ListFrom(ctx context.Context, username string) ([]model.SentMessage, error)
	ListTo(ctx context.Context, username string) ([]model.ReceivedMessage, error)
}

// UserHandler はユーザー参照のHTTPハンドラー。
type UserHandler struct {
	users    UserServiceInterface
	messages MessageListerInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserServiceInterface, messages MessageListerInterface) *UserHandler {
	return &UserHandler{
		users:    users,
		messages: messages,
	}
}

type usersResponse struct {
	Users []model.UserProfile `json:"users"`
}

type userResponse struct {
	User *model.UserDetail `json:"user"`
}

type messagesResponse[T any] struct {
	Messages []T `json:"messages"`
}

// List は全ユーザーの公開プロフィールを返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.All(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

// Get はユーザー詳細を返す。
// GET /users/{username}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Received はユーザー宛てのメッセージ一覧を返す。
// GET /users/{username}/to
func (h *UserHandler) Received(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.ListTo(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse[model.ReceivedMessage]{Messages: msgs})
}

// Sent はユーザーが送信したメッセージ一覧を返す。
// GET /users/{username}/from
func (h *UserHandler) Sent(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.ListFrom(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse[model.SentMessage]{Messages: msgs})
}
