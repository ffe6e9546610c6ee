package model

import "time"

// Message はユーザー間で送受信されるメッセージを表す。
// ReadAtは受信者が既読にするまでnil。
type Message struct {
	ID           string     `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

// MessageRow はmessagesとusers（送信者・受信者）を結合したフラットな行を表す。
type MessageRow struct {
	ID     string
	Body   string
	SentAt time.Time
	ReadAt *time.Time
	From   UserProfile
	To     UserProfile
}

// MessageDetail は送信者と受信者のプロフィールを入れ子にしたメッセージ詳細。
type MessageDetail struct {
	ID       string      `json:"id"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at"`
	FromUser UserProfile `json:"from_user"`
	ToUser   UserProfile `json:"to_user"`
}

// SentMessage は送信済み一覧の1件を表す。相手は受信者。
type SentMessage struct {
	ID     string      `json:"id"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at"`
	ToUser UserProfile `json:"to_user"`
}

// ReceivedMessage は受信一覧の1件を表す。相手は送信者。
type ReceivedMessage struct {
	ID       string      `json:"id"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at"`
	FromUser UserProfile `json:"from_user"`
}

// ReadReceipt は既読化の結果を表す。
type ReadReceipt struct {
	ID     string    `json:"id"`
	ReadAt time.Time `json:"read_at"`
}
