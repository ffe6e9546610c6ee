package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// messagesテーブルの外部キー制約名
const (
	fkMessagesFromUsername = "messages_from_username_fkey"
	fkMessagesToUsername   = "messages_to_username_fkey"
)

// translatePQError はlib/pqのエラーをリポジトリのセンチネルエラーに変換する。
// 該当しない場合はnilを返す。
func translatePQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicateKey
	case pqForeignKeyViolation:
		switch pqErr.Constraint {
		case fkMessagesFromUsername:
			return ErrUnknownSender
		case fkMessagesToUsername:
			return ErrUnknownRecipient
		}
		return ErrForeignKey
	}
	return nil
}
