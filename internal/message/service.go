// Package message はメッセージの作成・参照・既読化と、そのアクセス制御を提供する。
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/messagely/internal/auth"
	"github.com/hitoshi/messagely/internal/model"
	"github.com/hitoshi/messagely/internal/repository"
	"github.com/hitoshi/messagely/internal/security"
)

// Service はメッセージに関するビジネスロジックを提供する。
// 参照は送信者または受信者、既読化は受信者のみに許可する。
type Service struct {
	msgRepo repository.MessageRepository
	policy  security.ContentPolicy
	now     func() time.Time
	newID   func() string
}

// NewService はServiceの新しいインスタンスを生成する。
// policyがnilの場合、空白のみでない本文はすべて受け入れる。
func NewService(msgRepo repository.MessageRepository, policy security.ContentPolicy) *Service {
	return &Service{
		msgRepo: msgRepo,
		policy:  policy,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Create はsenderからtoUsername宛てのメッセージを作成する。
// 本文は受け取った内容のまま保存する。送信者または宛先が存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Create(ctx context.Context, sender *model.Identity, toUsername, body string) (*model.Message, error) {
	if err := auth.RequireLoggedIn(sender); err != nil {
		return nil, err
	}
	if toUsername == "" {
		return nil, model.NewValidationError("to_username は必須です")
	}

	if strings.TrimSpace(body) == "" {
		return nil, model.NewValidationError("body は必須です")
	}
	if s.policy != nil {
		if err := s.policy.Check(body); err != nil {
			return nil, err
		}
	}

	msg := &model.Message{
		ID:           s.newID(),
		FromUsername: sender.Username,
		ToUsername:   toUsername,
		Body:         body,
		SentAt:       s.now(),
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownSender):
			return nil, model.NewUserNotFoundError(sender.Username)
		case errors.Is(err, repository.ErrForeignKey):
			return nil, model.NewUserNotFoundError(toUsername)
		}
		return nil, fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}

	slog.Info("message sent",
		slog.String("message_id", msg.ID),
		slog.String("from_username", msg.FromUsername),
		slog.String("to_username", msg.ToUsername),
	)

	return msg, nil
}

// Get はメッセージ詳細を返す。requesterが送信者でも受信者でもない場合はFORBIDDENを返す。
func (s *Service) Get(ctx context.Context, id string, requester *model.Identity) (*model.MessageDetail, error) {
	if err := auth.RequireLoggedIn(requester); err != nil {
		return nil, err
	}

	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if requester.Username != row.From.Username && requester.Username != row.To.Username {
		return nil, model.NewForbiddenError()
	}

	detail := ToDetail(*row)
	return &detail, nil
}

// MarkRead はメッセージを既読にする。受信者以外はFORBIDDENとなり、read_atは変更されない。
// 既読済みの場合は何もせず、最初に記録されたread_atを返す。
func (s *Service) MarkRead(ctx context.Context, id string, requester *model.Identity) (*model.ReadReceipt, error) {
	if err := auth.RequireLoggedIn(requester); err != nil {
		return nil, err
	}

	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester.Username != row.To.Username {
		return nil, model.NewForbiddenError()
	}

	readAt, err := s.msgRepo.MarkRead(ctx, row.ID, requester.Username, s.now())
	if err != nil {
		return nil, fmt.Errorf("メッセージの既読化に失敗しました: %w", err)
	}
	if readAt == nil {
		return nil, model.NewMessageNotFoundError(id)
	}

	if row.ReadAt == nil {
		slog.Info("message marked read",
			slog.String("message_id", row.ID),
			slog.String("username", requester.Username),
		)
	}

	return &model.ReadReceipt{ID: row.ID, ReadAt: *readAt}, nil
}

// ListFrom はusernameが送信したメッセージをsent_at昇順で返す。
func (s *Service) ListFrom(ctx context.Context, username string) ([]model.SentMessage, error) {
	rows, err := s.msgRepo.ListFrom(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("送信メッセージの取得に失敗しました: %w", err)
	}
	result := make([]model.SentMessage, 0, len(rows))
	for _, row := range rows {
		result = append(result, ToSent(row))
	}
	return result, nil
}

// ListTo はusernameが受信したメッセージをsent_at昇順で返す。
func (s *Service) ListTo(ctx context.Context, username string) ([]model.ReceivedMessage, error) {
	rows, err := s.msgRepo.ListTo(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("受信メッセージの取得に失敗しました: %w", err)
	}
	result := make([]model.ReceivedMessage, 0, len(rows))
	for _, row := range rows {
		result = append(result, ToReceived(row))
	}
	return result, nil
}

func (s *Service) find(ctx context.Context, id string) (*model.MessageRow, error) {
	row, err := s.msgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	if row == nil {
		return nil, model.NewMessageNotFoundError(id)
	}
	return row, nil
}
