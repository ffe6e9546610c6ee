package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/messagely/internal/metrics"
	"github.com/hitoshi/messagely/internal/middleware"
	"github.com/hitoshi/messagely/internal/model"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
// アクセス制御はサービス側で行う。
type MessageServiceInterface interface {
	Create(ctx context.Context, sender *model.Identity, toUsername, body string) (*model.Message, error)
	Get(ctx context.Context, id string, requester *model.Identity) (*model.MessageDetail, error)
	MarkRead(ctx context.Context, id string, requester *model.Identity) (*model.ReadReceipt, error)
}

// MessageHandler はメッセージのHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
	metrics metrics.MetricsCollector
}

// NewMessageHandler はMessageHandlerを生成する。collectorがnilの場合は記録しない。
func NewMessageHandler(service MessageServiceInterface, collector metrics.MetricsCollector) *MessageHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &MessageHandler{
		service: service,
		metrics: collector,
	}
}

// createMessageRequest はメッセージ送信リクエストのボディ。
type createMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

type messageResponse[T any] struct {
	Message T `json:"message"`
}

// Get はメッセージ詳細を返す。送信者と受信者のみ参照できる。
// GET /messages/{id}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse[*model.MessageDetail]{Message: detail})
}

// Create はログインユーザーからのメッセージを作成する。
// POST /messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Create(r.Context(), middleware.IdentityFromContext(r.Context()), req.ToUsername, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordMessageSent()

	writeJSON(w, http.StatusCreated, messageResponse[*model.Message]{Message: msg})
}

// MarkRead はメッセージを既読にする。受信者のみ実行できる。
// POST /messages/{id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordMessageRead()

	writeJSON(w, http.StatusOK, messageResponse[*model.ReadReceipt]{Message: receipt})
}
