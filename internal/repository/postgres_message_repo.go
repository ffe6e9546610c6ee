package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/messagely/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// messageRowColumns はmessagesと送信者・受信者を結合したSELECT列。
// scanMessageRowの引数順と一致させること。
const messageRowColumns = `m.id, m.body, m.sent_at, m.read_at,
	f.username, f.first_name, f.last_name, f.phone,
	t.username, t.first_name, t.last_name, t.phone`

const messageRowFrom = `FROM messages AS m
	JOIN users AS f ON f.username = m.from_username
	JOIN users AS t ON t.username = m.to_username`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessageRow(s rowScanner) (*model.MessageRow, error) {
	row := &model.MessageRow{}
	var readAt sql.NullTime
	err := s.Scan(
		&row.ID, &row.Body, &row.SentAt, &readAt,
		&row.From.Username, &row.From.FirstName, &row.From.LastName, &row.From.Phone,
		&row.To.Username, &row.To.FirstName, &row.To.LastName, &row.To.Phone,
	)
	if err != nil {
		return nil, err
	}
	if readAt.Valid {
		t := readAt.Time
		row.ReadAt = &t
	}
	return row, nil
}

// Create はメッセージを作成する。
// 送信者が存在しない場合はErrUnknownSender、受信者が存在しない場合はErrUnknownRecipientを返す。
func (r *PostgresMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, from_username, to_username, body, sent_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt,
	)
	if err != nil {
		if sentinel := translatePQError(err); sentinel != nil {
			return fmt.Errorf("failed to insert message: %w", sentinel)
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// FindByID は送信者・受信者のプロフィールと結合したメッセージを取得する。
// 見つからない場合、またはIDがUUID形式でない場合はnilを返す。
func (r *PostgresMessageRepo) FindByID(ctx context.Context, id string) (*model.MessageRow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row, err := scanMessageRow(r.db.QueryRowContext(ctx,
		`SELECT `+messageRowColumns+` `+messageRowFrom+` WHERE m.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message by ID: %w", err)
	}
	return row, nil
}

// MarkRead は受信者がrecipientであるメッセージのread_atを設定する。
// 既に既読の場合は既存のread_atを維持して返す。
func (r *PostgresMessageRepo) MarkRead(ctx context.Context, id, recipient string, at time.Time) (*time.Time, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var readAt time.Time
	err := r.db.QueryRowContext(ctx,
		`UPDATE messages SET read_at = COALESCE(read_at, $3)
		 WHERE id = $1 AND to_username = $2
		 RETURNING read_at`,
		id, recipient, at,
	).Scan(&readAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	return &readAt, nil
}

// ListFrom は指定ユーザーが送信したメッセージをsent_at昇順で返す。
func (r *PostgresMessageRepo) ListFrom(ctx context.Context, username string) ([]model.MessageRow, error) {
	return r.list(ctx, `m.from_username = $1`, username)
}

// ListTo は指定ユーザーが受信したメッセージをsent_at昇順で返す。
func (r *PostgresMessageRepo) ListTo(ctx context.Context, username string) ([]model.MessageRow, error) {
	return r.list(ctx, `m.to_username = $1`, username)
}

func (r *PostgresMessageRepo) list(ctx context.Context, where, username string) ([]model.MessageRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageRowColumns+` `+messageRowFrom+` WHERE `+where+` ORDER BY m.sent_at, m.id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	result := []model.MessageRow{}
	for rows.Next() {
		row, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result = append(result, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
