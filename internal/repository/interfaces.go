// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/messagely/internal/model"
)

var (
	// ErrDuplicateKey は一意制約違反（ユーザー名の重複など）を表す。
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKey は参照先が存在しない外部キー制約違反を表す。
	ErrForeignKey = errors.New("foreign key violation")
	// ErrNotFound は更新対象の行が存在しないことを表す。
	ErrNotFound = errors.New("record not found")

	// ErrUnknownSender はメッセージの送信者が存在しないことを表す。errors.Is(err, ErrForeignKey)も真となる。
	ErrUnknownSender = fmt.Errorf("%w: from_username", ErrForeignKey)
	// ErrUnknownRecipient はメッセージの受信者が存在しないことを表す。errors.Is(err, ErrForeignKey)も真となる。
	ErrUnknownRecipient = fmt.Errorf("%w: to_username", ErrForeignKey)
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateKeyを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateLastLogin はlast_login_atを更新する。ユーザーが存在しない場合はErrNotFoundを返す。
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error

	// List は全ユーザーをユーザー名順に返す。
	List(ctx context.Context) ([]*model.User, error)
}

// MessageRepository はメッセージデータの永続化インターフェース。
type MessageRepository interface {
	// Create はメッセージを作成する。
	// 送信者が存在しない場合はErrUnknownSender、受信者が存在しない場合はErrUnknownRecipientを返す。
	Create(ctx context.Context, msg *model.Message) error

	// FindByID は送信者・受信者のプロフィールと結合したメッセージを取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.MessageRow, error)

	// MarkRead は受信者がrecipientであるメッセージのread_atを設定する。
	// 既に既読の場合は既存のread_atを維持して返す。
	// 該当するメッセージが無い場合はnilを返す。
	MarkRead(ctx context.Context, id, recipient string, at time.Time) (*time.Time, error)

	// ListFrom は指定ユーザーが送信したメッセージをsent_at昇順で返す。
	ListFrom(ctx context.Context, username string) ([]model.MessageRow, error)

	// ListTo は指定ユーザーが受信したメッセージをsent_at昇順で返す。
	ListTo(ctx context.Context, username string) ([]model.MessageRow, error)
}
